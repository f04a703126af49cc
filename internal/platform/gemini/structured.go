package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenerateJSON runs a structured-completion call and decodes the JSON reply into out.
func (c *client) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) (Usage, error) {
	var usage Usage
	if strings.TrimSpace(prompt) == "" {
		return usage, fmt.Errorf("prompt required")
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	resp, err := withRetry(ctx, c, "generate_json", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.gc.Models.GenerateContent(ctx, c.cfg.TextModel, genai.Text(prompt), cfg)
	})
	if err != nil {
		return usage, err
	}
	usage = usageOf(resp)
	raw := strings.TrimSpace(responseText(resp))
	if raw == "" {
		return usage, fmt.Errorf("empty structured response from %s", c.cfg.TextModel)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return usage, fmt.Errorf("decode structured response: %w; raw=%s", err, truncate(raw, 512))
	}
	return usage, nil
}

func usageOf(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CandidatesTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
