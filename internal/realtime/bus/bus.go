package bus

import (
	"context"
	"time"
)

const (
	EventComparisonCreated  = "comparison.created"
	EventComparisonResolved = "comparison.resolved"
)

// Event is the payload published when a comparison changes state.
type Event struct {
	Type          string    `json:"type"`
	FlashcardID   string    `json:"flashcard_id"`
	ComparisonID  string    `json:"comparison_id"`
	MediaID       string    `json:"media_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	IsSelectedNew *bool     `json:"is_selected_new,omitempty"`
	At            time.Time `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, onEvent func(Event)) error
	Close() error
}

type noopBus struct{}

// NewNoopBus drops every event; used when REDIS_ADDR is unset.
func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(context.Context, Event) error         { return nil }
func (noopBus) Subscribe(context.Context, func(Event)) error { return nil }
func (noopBus) Close() error                                 { return nil }
