package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/realtime/bus"
)

func runCLI(t *testing.T, cc *commandContext, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "flashmedia", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(newGenerateCommand(cc))
	root.AddCommand(newResolveCommand(cc))
	root.AddCommand(newPendingCommand(cc))
	root.AddCommand(newTemplatesCommand(cc))
	root.AddCommand(newMigrateCommand(cc))
	root.AddCommand(newWatchCommand(cc))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func failingContext(t *testing.T) *commandContext {
	t.Helper()
	return &commandContext{
		newApp: func(context.Context) (*app.App, error) {
			t.Fatalf("app must not be wired")
			return nil, nil
		},
		migrate: func(context.Context) error { return nil },
	}
}

func TestFormatErrorPrefixesKind(t *testing.T) {
	got := formatError(apierr.Conflict("comparison already resolved"))
	if got != "conflict: comparison already resolved" {
		t.Fatalf("formatError: got=%q", got)
	}
	got = formatError(errors.New("boom"))
	if got != "general: boom" {
		t.Fatalf("formatError plain: got=%q", got)
	}
}

func TestGenerateFlagsBuildRequest(t *testing.T) {
	fc, mn, user, tpl := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	f := generateFlags{
		flashcard: fc.String(),
		meaning:   mn.String(),
		word:      "run",
		genType:   "image-to-image",
		template:  tpl.String(),
		settings:  []string{"watercolor", "no text"},
		inputURLs: []string{"https://cdn.test/seed.png"},
		user:      user.String(),
	}
	req, err := f.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.FlashcardID != fc || req.MeaningID != mn || req.RequestedBy != user {
		t.Fatalf("request ids: got=%+v", req)
	}
	if req.TemplateID == nil || *req.TemplateID != tpl {
		t.Fatalf("TemplateID: want=%s got=%v", tpl, req.TemplateID)
	}
	if len(req.OtherSettings) != 2 || len(req.InputMediaURLs) != 1 {
		t.Fatalf("repeatable flags: got settings=%v urls=%v", req.OtherSettings, req.InputMediaURLs)
	}
}

func TestGenerateRejectsBadIDBeforeWiring(t *testing.T) {
	_, err := runCLI(t, failingContext(t), "generate", "--flashcard", "nope", "--meaning", uuid.NewString(), "--user", uuid.NewString())
	if got := apierr.KindOf(err); got != apierr.KindValidation {
		t.Fatalf("kind: want=%q got=%q (%v)", apierr.KindValidation, got, err)
	}
	if !strings.Contains(err.Error(), "--flashcard") {
		t.Fatalf("error should name the flag: %v", err)
	}
}

func TestResolveAllowsMissingOldMedia(t *testing.T) {
	f := resolveFlags{
		comparison: uuid.NewString(),
		flashcard:  uuid.NewString(),
		newMedia:   uuid.NewString(),
		selectNew:  true,
	}
	req, err := f.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.OldMediaID != nil {
		t.Fatalf("OldMediaID: want=nil got=%v", req.OldMediaID)
	}
	if !req.IsSelectedNew {
		t.Fatalf("IsSelectedNew: want=true got=false")
	}
	if req.RequestedBy != uuid.Nil {
		t.Fatalf("RequestedBy: want=nil uuid got=%s", req.RequestedBy)
	}
}

func TestPendingRequiresUser(t *testing.T) {
	_, err := runCLI(t, failingContext(t), "pending")
	if got := apierr.KindOf(err); got != apierr.KindValidation {
		t.Fatalf("kind: want=%q got=%q", apierr.KindValidation, got)
	}
}

func TestMigrateRunsMigrator(t *testing.T) {
	called := false
	cc := failingContext(t)
	cc.migrate = func(context.Context) error {
		called = true
		return nil
	}
	out, err := runCLI(t, cc, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !called {
		t.Fatalf("migrate func not called")
	}
	if !strings.Contains(out, "schema up to date") {
		t.Fatalf("output: got=%q", out)
	}
}

func TestTemplatesUpdateOnlyAppliesChangedFlags(t *testing.T) {
	var name, description, prompt string
	cmd := &cobra.Command{Use: "update"}
	cmd.Flags().StringVar(&name, "name", "", "")
	cmd.Flags().StringVar(&description, "description", "", "")
	cmd.Flags().StringVar(&prompt, "prompt", "", "")
	if err := cmd.Flags().Parse([]string{"--prompt", "{word} at dawn"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	id := uuid.New()
	req := updateTemplateRequest(cmd, id, name, description, prompt)
	if req.ID != id {
		t.Fatalf("ID: want=%s got=%s", id, req.ID)
	}
	if req.Name != nil || req.Description != nil {
		t.Fatalf("unchanged flags must stay nil: %+v", req)
	}
	if req.PromptText == nil || *req.PromptText != "{word} at dawn" {
		t.Fatalf("PromptText: got=%v", req.PromptText)
	}
}

// replayBus delivers its events to each subscriber from a goroutine.
type replayBus struct {
	events []bus.Event
}

func (b *replayBus) Publish(context.Context, bus.Event) error { return nil }
func (b *replayBus) Close() error                             { return nil }

func (b *replayBus) Subscribe(ctx context.Context, onEvent func(bus.Event)) error {
	go func() {
		for _, ev := range b.events {
			if ctx.Err() != nil {
				return
			}
			onEvent(ev)
		}
	}()
	return nil
}

func TestWatchEventsFiltersByFlashcardAndStopsAtCount(t *testing.T) {
	want, other := uuid.New(), uuid.New()
	b := &replayBus{events: []bus.Event{
		{Type: bus.EventComparisonCreated, FlashcardID: other.String(), ComparisonID: "c0"},
		{Type: bus.EventComparisonCreated, FlashcardID: want.String(), ComparisonID: "c1"},
		{Type: bus.EventComparisonResolved, FlashcardID: want.String(), ComparisonID: "c1"},
		{Type: bus.EventComparisonCreated, FlashcardID: want.String(), ComparisonID: "c2"},
	}}
	var out bytes.Buffer
	cmd := &cobra.Command{Use: "watch"}
	cmd.SetOut(&out)

	if err := watchEvents(context.Background(), cmd, b, &want, 2); err != nil {
		t.Fatalf("watchEvents: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: want=2 got=%d (%q)", len(lines), out.String())
	}
	if !strings.Contains(lines[0], `"comparison.created"`) || !strings.Contains(lines[1], `"comparison.resolved"`) {
		t.Fatalf("event order: got=%q", lines)
	}
	if strings.Contains(out.String(), other.String()) {
		t.Fatalf("other flashcard leaked into output: %q", out.String())
	}
}

func TestWatchEventsReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := &cobra.Command{Use: "watch"}
	cmd.SetOut(&bytes.Buffer{})
	if err := watchEvents(ctx, cmd, &replayBus{}, nil, 0); err != nil {
		t.Fatalf("watchEvents after cancel: %v", err)
	}
}

func TestWatchRejectsBadFlashcardBeforeWiring(t *testing.T) {
	_, err := runCLI(t, failingContext(t), "watch", "--flashcard", "nope")
	if got := apierr.KindOf(err); got != apierr.KindValidation {
		t.Fatalf("kind: want=%q got=%q", apierr.KindValidation, got)
	}
}
