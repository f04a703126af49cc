package main

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/realtime/bus"
)

func newWatchCommand(cc *commandContext) *cobra.Command {
	var (
		flashcard string
		count     int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream comparison events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flashcardID, err := parseOptionalID("flashcard", flashcard)
			if err != nil {
				return err
			}
			return cc.withApp(cmd.Context(), uuid.Nil, func(ctx context.Context, a *app.App) error {
				if a.Clients.Redis == nil {
					return apierr.Validation("watch requires REDIS_ADDR")
				}
				return watchEvents(ctx, cmd, a.Clients.Bus, flashcardID, count)
			})
		},
	}
	cmd.Flags().StringVar(&flashcard, "flashcard", "", "Only show events for this flashcard id")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0 streams until interrupted)")
	return cmd
}

// watchEvents writes one JSON line per matching event until ctx ends or count is reached.
func watchEvents(ctx context.Context, cmd *cobra.Command, b bus.Bus, flashcardID *uuid.UUID, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan bus.Event, 16)
	err := b.Subscribe(ctx, func(ev bus.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return apierr.ExternalAPI(err, "subscribe to comparison events")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if flashcardID != nil && ev.FlashcardID != flashcardID.String() {
				continue
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}
