package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/flashcard-media/internal/app"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/ctxutil"
)

type commandContext struct {
	newApp  func(ctx context.Context) (*app.App, error)
	migrate func(ctx context.Context) error
}

func newCommandContext() *commandContext {
	return &commandContext{newApp: app.New, migrate: app.Migrate}
}

// withApp wires the full application for one command and tears it down afterwards.
func (c *commandContext) withApp(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, a *app.App) error) error {
	a, err := c.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	td := &ctxutil.TraceData{RequestID: uuid.NewString()}
	if userID != uuid.Nil {
		td.UserID = userID.String()
	}
	return fn(ctxutil.WithTraceData(ctx, td), a)
}

func formatError(err error) string {
	return fmt.Sprintf("%s: %s", apierr.KindOf(err), err.Error())
}

func parseID(flag, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, apierr.Validation("--%s is required", flag)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("--%s: invalid id %q", flag, raw)
	}
	return id, nil
}

// parseOptionalID returns nil for an empty flag.
func parseOptionalID(flag, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(flag, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
