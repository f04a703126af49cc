package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
)

func newRecoverCommand(cc *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Replay or compensate generation and resolve runs left unfinished",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd.Context(), uuid.Nil, func(ctx context.Context, a *app.App) error {
				report, err := a.Services.Generation.Recover(ctx, olderThan, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd, report)
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "Only touch runs idle for at least this long")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum runs to scan")
	return cmd
}
