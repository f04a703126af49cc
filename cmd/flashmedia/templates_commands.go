package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
	"github.com/yungbote/flashcard-media/internal/pkg/pointers"
	"github.com/yungbote/flashcard-media/internal/services"
)

func newTemplatesCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage stored prompt templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTemplatesListCommand(cc))
	cmd.AddCommand(newTemplatesGetCommand(cc))
	cmd.AddCommand(newTemplatesCreateCommand(cc))
	cmd.AddCommand(newTemplatesUpdateCommand(cc))
	return cmd
}

func newTemplatesListCommand(cc *commandContext) *cobra.Command {
	var genType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompt templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd.Context(), uuid.Nil, func(ctx context.Context, a *app.App) error {
				items, err := a.Services.Templates.List(ctx, genType)
				if err != nil {
					return err
				}
				return writeJSON(cmd, items)
			})
		},
	}
	cmd.Flags().StringVar(&genType, "type", "", "Only templates for this generation type")
	return cmd
}

func newTemplatesGetCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one prompt template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			return cc.withApp(cmd.Context(), uuid.Nil, func(ctx context.Context, a *app.App) error {
				t, err := a.Services.Templates.Get(ctx, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, t)
			})
		},
	}
}

func newTemplatesCreateCommand(cc *commandContext) *cobra.Command {
	var (
		req  services.CreatePromptTemplateRequest
		user string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a new prompt template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", user)
			if err != nil {
				return err
			}
			req.CreatedBy = userID
			return cc.withApp(cmd.Context(), userID, func(ctx context.Context, a *app.App) error {
				t, err := a.Services.Templates.Create(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, t)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Name, "name", "", "Template name")
	flags.StringVar(&req.Description, "description", "", "Template description")
	flags.StringVar(&req.GenerationType, "type", "", "Generation type the template targets")
	flags.StringVar(&req.PromptText, "prompt", "", "Template text with {word}, {pos}, {translation}, {example}, {explanation}")
	flags.StringVar(&user, "user", "", "Author id")
	return cmd
}

func newTemplatesUpdateCommand(cc *commandContext) *cobra.Command {
	var name, description, prompt string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a template's name, description or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			req := updateTemplateRequest(cmd, id, name, description, prompt)
			return cc.withApp(cmd.Context(), uuid.Nil, func(ctx context.Context, a *app.App) error {
				t, err := a.Services.Templates.Update(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, t)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "New name")
	flags.StringVar(&description, "description", "", "New description")
	flags.StringVar(&prompt, "prompt", "", "New template text")
	return cmd
}

// Only flags given on the command line are applied.
func updateTemplateRequest(cmd *cobra.Command, id uuid.UUID, name, description, prompt string) services.UpdatePromptTemplateRequest {
	req := services.UpdatePromptTemplateRequest{ID: id}
	if cmd.Flags().Changed("name") {
		req.Name = pointers.String(name)
	}
	if cmd.Flags().Changed("description") {
		req.Description = pointers.String(description)
	}
	if cmd.Flags().Changed("prompt") {
		req.PromptText = pointers.String(prompt)
	}
	return req
}
