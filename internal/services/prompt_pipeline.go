package services

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/flashcard-media/internal/observability"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/gemini"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

//go:embed locales/pos_labels.yaml
var posLabelsYAML []byte

// PosLabels maps locale -> part-of-speech key -> display label.
type PosLabels map[string]map[string]string

func LoadPosLabels() (PosLabels, error) {
	var out PosLabels
	if err := yaml.Unmarshal(posLabelsYAML, &out); err != nil {
		return nil, fmt.Errorf("parse pos labels: %w", err)
	}
	return out, nil
}

// Label returns the localized label, or pos unchanged when the table has no entry.
func (p PosLabels) Label(locale, pos string) string {
	if l, ok := p[locale][strings.TrimSpace(pos)]; ok {
		return l
	}
	return pos
}

type PromptValues struct {
	Word        string
	Pos         string
	Translation string
	Example     string
	Explanation string
}

type PromptResult struct {
	Content string
	Prompt  string
	Usage   gemini.Usage
}

type PromptPipeline interface {
	NormalizeOtherSettings(ctx context.Context, settings []string) (string, gemini.Usage, error)
	BuildContent(template string, v PromptValues, normalizedSettings string) string
	SynthesizePrompt(ctx context.Context, content string) (string, gemini.Usage, error)
	// Run chains the three steps and sums token usage across both backend calls.
	Run(ctx context.Context, template string, v PromptValues, settings []string) (*PromptResult, error)
}

type promptPipeline struct {
	log    *logger.Logger
	ai     gemini.Client
	labels PosLabels
	locale string
}

func NewPromptPipeline(log *logger.Logger, ai gemini.Client, labels PosLabels, locale string) PromptPipeline {
	if locale == "" {
		locale = "ja"
	}
	return &promptPipeline{
		log:    log.With("service", "PromptPipeline"),
		ai:     ai,
		labels: labels,
		locale: locale,
	}
}

const normalizeSettingsInstruction = `You are a prompt engineer. Reformat the following free-form image generation settings into markdown.
Rules:
- Each setting becomes an item whose header line starts with "### ".
- Put the setting content on the line after its header.
- When a setting has several aspects, list them as "- " bullets under the header.
- Keep the meaning of every setting; do not add new settings.

Settings:
%s`

const synthesizeInstruction = `You are a prompt engineer for an image and video generation model.
From the flashcard content below, write one generation-ready prompt that states the style, the subject and the context of the scene.
Return only the prompt.

Content:
%s`

var normalizeSettingsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"modified_other_settings": {Type: genai.TypeString},
	},
	Required: []string{"modified_other_settings"},
}

var synthesizeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"prompt": {Type: genai.TypeString},
	},
	Required: []string{"prompt"},
}

func (p *promptPipeline) NormalizeOtherSettings(ctx context.Context, settings []string) (out string, usage gemini.Usage, err error) {
	joined := joinSettings(settings)
	if joined == "" {
		return "", gemini.Usage{}, nil
	}
	ctx, span := observability.StartSpan(ctx, "prompt.normalize", attribute.Int("settings", len(settings)))
	defer func() { observability.EndSpan(span, err) }()

	var resp struct {
		ModifiedOtherSettings string `json:"modified_other_settings"`
	}
	usage, err = p.ai.GenerateJSON(ctx, fmt.Sprintf(normalizeSettingsInstruction, joined), normalizeSettingsSchema, &resp)
	if err != nil {
		return "", usage, apierr.ExternalAPI(err, "normalize other settings")
	}
	return strings.TrimSpace(resp.ModifiedOtherSettings), usage, nil
}

func joinSettings(settings []string) string {
	kept := make([]string, 0, len(settings))
	for _, s := range settings {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

func (p *promptPipeline) BuildContent(template string, v PromptValues, normalizedSettings string) string {
	r := strings.NewReplacer(
		"{word}", v.Word,
		"{pos}", p.labels.Label(p.locale, v.Pos),
		"{translation}", v.Translation,
		"{example_jpn}", v.Example,
		"{example}", v.Example,
		"{explanation}", v.Explanation,
		"{modified_other_settings}", normalizedSettings,
	)
	out := r.Replace(template)
	if normalizedSettings != "" && !strings.Contains(template, "{modified_other_settings}") {
		out += "\n\n" + normalizedSettings
	}
	return out
}

func (p *promptPipeline) SynthesizePrompt(ctx context.Context, content string) (prompt string, usage gemini.Usage, err error) {
	ctx, span := observability.StartSpan(ctx, "prompt.synthesize")
	defer func() { observability.EndSpan(span, err) }()

	var resp struct {
		Prompt string `json:"prompt"`
	}
	usage, err = p.ai.GenerateJSON(ctx, fmt.Sprintf(synthesizeInstruction, content), synthesizeSchema, &resp)
	if err != nil {
		return "", usage, apierr.ExternalAPI(err, "synthesize prompt")
	}
	prompt = strings.TrimSpace(resp.Prompt)
	if prompt == "" {
		return "", usage, apierr.ExternalAPI(nil, "synthesize prompt: backend returned no prompt")
	}
	return prompt, usage, nil
}

func (p *promptPipeline) Run(ctx context.Context, template string, v PromptValues, settings []string) (*PromptResult, error) {
	normalized, normUsage, err := p.NormalizeOtherSettings(ctx, settings)
	if err != nil {
		return nil, err
	}
	content := p.BuildContent(template, v, normalized)
	prompt, synthUsage, err := p.SynthesizePrompt(ctx, content)
	if err != nil {
		return nil, err
	}
	total := normUsage.Add(synthUsage)
	p.log.Debug("Prompt synthesized",
		"word", v.Word,
		"prompt_token_count", total.PromptTokens,
		"total_token_count", total.TotalTokens,
	)
	return &PromptResult{Content: content, Prompt: prompt, Usage: total}, nil
}
