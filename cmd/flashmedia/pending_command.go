package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
)

func newPendingCommand(cc *commandContext) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List unresolved comparisons on the user's flashcards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", user)
			if err != nil {
				return err
			}
			return cc.withApp(cmd.Context(), userID, func(ctx context.Context, a *app.App) error {
				items, err := a.Services.Generation.ListPendingComparisons(ctx, userID)
				if err != nil {
					return err
				}
				return writeJSON(cmd, items)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Flashcard owner id")
	return cmd
}
