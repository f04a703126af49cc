package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEventJSONShape(t *testing.T) {
	sel := true
	ev := Event{
		Type:          EventComparisonResolved,
		FlashcardID:   "f1",
		ComparisonID:  "c1",
		IsSelectedNew: &sel,
		At:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "comparison.resolved" || m["is_selected_new"] != true {
		t.Fatalf("event json: got=%s", raw)
	}
	if _, ok := m["media_id"]; ok {
		t.Fatalf("empty media_id should be omitted: %s", raw)
	}
}

func TestNoopBus(t *testing.T) {
	b := NewNoopBus()
	if err := b.Publish(context.Background(), Event{Type: EventComparisonCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
