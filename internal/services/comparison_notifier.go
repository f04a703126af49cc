package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/pkg/pointers"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
	"github.com/yungbote/flashcard-media/internal/realtime/bus"
)

// ComparisonNotifier publishes comparison lifecycle events. Publish failures are logged, never returned.
type ComparisonNotifier interface {
	ComparisonCreated(ctx context.Context, userID uuid.UUID, c *types.Comparison)
	ComparisonResolved(ctx context.Context, userID uuid.UUID, c *types.Comparison)
}

type comparisonNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

func NewComparisonNotifier(log *logger.Logger, b bus.Bus) ComparisonNotifier {
	if b == nil {
		b = bus.NewNoopBus()
	}
	return &comparisonNotifier{log: log.With("service", "ComparisonNotifier"), bus: b}
}

func (n *comparisonNotifier) ComparisonCreated(ctx context.Context, userID uuid.UUID, c *types.Comparison) {
	if c == nil {
		return
	}
	n.publish(ctx, bus.Event{
		Type:         bus.EventComparisonCreated,
		FlashcardID:  c.FlashcardID.String(),
		ComparisonID: c.ID.String(),
		MediaID:      c.NewMediaID.String(),
		UserID:       userIDString(userID),
	})
}

func (n *comparisonNotifier) ComparisonResolved(ctx context.Context, userID uuid.UUID, c *types.Comparison) {
	if c == nil || c.IsSelectedNew == nil {
		return
	}
	ev := bus.Event{
		Type:          bus.EventComparisonResolved,
		FlashcardID:   c.FlashcardID.String(),
		ComparisonID:  c.ID.String(),
		UserID:        userIDString(userID),
		IsSelectedNew: pointers.Ptr(*c.IsSelectedNew),
	}
	if chosen := c.ChosenMediaID(*c.IsSelectedNew); chosen != nil {
		ev.MediaID = chosen.String()
	}
	n.publish(ctx, ev)
}

func (n *comparisonNotifier) publish(ctx context.Context, ev bus.Event) {
	ev.At = time.Now().UTC()
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("publish event failed",
			"type", ev.Type,
			"comparison_id", ev.ComparisonID,
			"err", err.Error(),
		)
	}
}

func userIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
