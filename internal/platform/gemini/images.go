package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

func (c *client) GenerateImages(ctx context.Context, prompt string, opts ImageOptions) ([]Image, error) {
	count := opts.Count
	if count <= 0 {
		count = 1
	}
	cfg := &genai.GenerateImagesConfig{
		NumberOfImages:   int32(count),
		AspectRatio:      opts.AspectRatio,
		PersonGeneration: genai.PersonGeneration(opts.PersonGeneration),
		IncludeRAIReason: true,
		OutputMIMEType:   "image/png",
	}
	resp, err := withRetry(ctx, c, "generate_images", func(ctx context.Context) (*genai.GenerateImagesResponse, error) {
		return c.gc.Models.GenerateImages(ctx, c.cfg.ImagenModel, prompt, cfg)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Image, 0, len(resp.GeneratedImages))
	var filtered []string
	for _, gi := range resp.GeneratedImages {
		if gi == nil {
			continue
		}
		if gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			if r := strings.TrimSpace(gi.RAIFilteredReason); r != "" {
				filtered = append(filtered, r)
			}
			continue
		}
		out = append(out, Image{Bytes: gi.Image.ImageBytes, MIMEType: gi.Image.MIMEType})
	}
	if len(out) == 0 && len(filtered) > 0 {
		return nil, &FilteredError{Count: len(filtered), Reasons: filtered}
	}
	return out, nil
}

// EditImage sends the prompt and the source image and returns the response parts in order.
func (c *client) EditImage(ctx context.Context, prompt string, image Image) ([]Part, error) {
	if len(image.Bytes) == 0 {
		return nil, fmt.Errorf("source image required")
	}
	mime := image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image.Bytes, mime),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := withRetry(ctx, c, "edit_image", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.gc.Models.GenerateContent(ctx, c.cfg.ImageEditModel, contents, cfg)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}
	parts := make([]Part, 0, len(resp.Candidates[0].Content.Parts))
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		switch {
		case p.InlineData != nil && len(p.InlineData.Data) > 0:
			parts = append(parts, Part{Image: &Image{Bytes: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}})
		case p.Text != "":
			parts = append(parts, Part{Text: p.Text})
		}
	}
	return parts, nil
}

// FilteredError reports a safety-policy rejection with the backend's own count and reasons.
type FilteredError struct {
	Count   int
	Reasons []string
}

func (e *FilteredError) Error() string {
	return fmt.Sprintf("content filtered by safety policy: count=%d reasons=%s", e.Count, strings.Join(e.Reasons, "; "))
}
