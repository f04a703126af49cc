package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
	"github.com/yungbote/flashcard-media/internal/services"
)

type resolveFlags struct {
	comparison string
	flashcard  string
	oldMedia   string
	newMedia   string
	selectNew  bool
	user       string
}

func (f resolveFlags) request() (services.ResolveRequest, error) {
	comparisonID, err := parseID("comparison", f.comparison)
	if err != nil {
		return services.ResolveRequest{}, err
	}
	flashcardID, err := parseID("flashcard", f.flashcard)
	if err != nil {
		return services.ResolveRequest{}, err
	}
	oldID, err := parseOptionalID("old", f.oldMedia)
	if err != nil {
		return services.ResolveRequest{}, err
	}
	newID, err := parseID("new", f.newMedia)
	if err != nil {
		return services.ResolveRequest{}, err
	}
	userID, err := parseOptionalID("user", f.user)
	if err != nil {
		return services.ResolveRequest{}, err
	}
	req := services.ResolveRequest{
		ComparisonID:  comparisonID,
		FlashcardID:   flashcardID,
		OldMediaID:    oldID,
		NewMediaID:    newID,
		IsSelectedNew: f.selectNew,
	}
	if userID != nil {
		req.RequestedBy = *userID
	}
	return req, nil
}

func newResolveCommand(cc *commandContext) *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Record the user's choice for a staged comparison",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return cc.withApp(cmd.Context(), req.RequestedBy, func(ctx context.Context, a *app.App) error {
				c, err := a.Services.Generation.ResolveComparison(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, c)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.comparison, "comparison", "", "Comparison id")
	flags.StringVar(&f.flashcard, "flashcard", "", "Flashcard id")
	flags.StringVar(&f.oldMedia, "old", "", "Old media id; empty when the flashcard had no media")
	flags.StringVar(&f.newMedia, "new", "", "New media id")
	flags.BoolVar(&f.selectNew, "select-new", false, "Keep the new media instead of the old one")
	flags.StringVar(&f.user, "user", "", "Resolving user id")
	return cmd
}
