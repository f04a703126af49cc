package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/flashcard-media/internal/app"
	"github.com/yungbote/flashcard-media/internal/services"
)

type generateFlags struct {
	flashcard   string
	meaning     string
	word        string
	pos         string
	translation string
	example     string
	explanation string
	genType     string
	template    string
	prompt      string
	settings    []string
	allowPerson bool
	inputURLs   []string
	user        string
}

func (f generateFlags) request() (services.GenerateMediaRequest, error) {
	flashcardID, err := parseID("flashcard", f.flashcard)
	if err != nil {
		return services.GenerateMediaRequest{}, err
	}
	meaningID, err := parseID("meaning", f.meaning)
	if err != nil {
		return services.GenerateMediaRequest{}, err
	}
	userID, err := parseID("user", f.user)
	if err != nil {
		return services.GenerateMediaRequest{}, err
	}
	templateID, err := parseOptionalID("template", f.template)
	if err != nil {
		return services.GenerateMediaRequest{}, err
	}
	return services.GenerateMediaRequest{
		FlashcardID:           flashcardID,
		MeaningID:             meaningID,
		Word:                  f.word,
		Pos:                   f.pos,
		Translation:           f.translation,
		Example:               f.example,
		Explanation:           f.explanation,
		GenerationType:        f.genType,
		TemplateID:            templateID,
		UserPrompt:            f.prompt,
		OtherSettings:         f.settings,
		AllowGeneratingPerson: f.allowPerson,
		InputMediaURLs:        f.inputURLs,
		RequestedBy:           userID,
	}, nil
}

type generateOutput struct {
	ComparisonID uuid.UUID `json:"comparison_id"`
	MediaID      uuid.UUID `json:"media_id"`
	MediaURLs    []string  `json:"media_urls"`
}

func newGenerateCommand(cc *commandContext) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate candidate media for a flashcard and stage a comparison",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return cc.withApp(cmd.Context(), req.RequestedBy, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Generation.GenerateMedia(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, generateOutput{
					ComparisonID: res.ComparisonID,
					MediaID:      res.MediaID,
					MediaURLs:    res.MediaURLs,
				})
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.flashcard, "flashcard", "", "Flashcard id")
	flags.StringVar(&f.meaning, "meaning", "", "Meaning id")
	flags.StringVar(&f.word, "word", "", "Headword")
	flags.StringVar(&f.pos, "pos", "", "Part of speech")
	flags.StringVar(&f.translation, "translation", "", "Translation")
	flags.StringVar(&f.example, "example", "", "Example sentence")
	flags.StringVar(&f.explanation, "explanation", "", "Explanation")
	flags.StringVar(&f.genType, "type", "text-to-image", "Generation type (text-to-image, image-to-image, text-to-video, image-to-video)")
	flags.StringVar(&f.template, "template", "", "Prompt template id")
	flags.StringVar(&f.prompt, "prompt", "", "Prompt template text; overrides --template")
	flags.StringArrayVar(&f.settings, "setting", nil, "Free-form generation setting (repeatable)")
	flags.BoolVar(&f.allowPerson, "allow-person", false, "Allow the backend to generate people")
	flags.StringArrayVar(&f.inputURLs, "input-url", nil, "Seed media URL for image-to-* types (repeatable)")
	flags.StringVar(&f.user, "user", "", "Requesting user id")
	return cmd
}
