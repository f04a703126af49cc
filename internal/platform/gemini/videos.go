package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/flashcard-media/internal/pkg/pointers"
)

func (c *client) StartVideo(ctx context.Context, prompt string, seed *Image, opts VideoOptions) (*VideoOperation, error) {
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:   1,
		PersonGeneration: opts.PersonGeneration,
		AspectRatio:      opts.AspectRatio,
	}
	if opts.DurationSeconds > 0 {
		cfg.DurationSeconds = pointers.Ptr(int32(opts.DurationSeconds))
	}
	var img *genai.Image
	if seed != nil {
		img = &genai.Image{ImageBytes: seed.Bytes, MIMEType: seed.MIMEType}
	}
	op, err := withRetry(ctx, c, "generate_videos", func(ctx context.Context) (*genai.GenerateVideosOperation, error) {
		return c.gc.Models.GenerateVideos(ctx, c.cfg.VeoModel, prompt, img, cfg)
	})
	if err != nil {
		return nil, err
	}
	return convertOperation(op), nil
}

func (c *client) GetVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if op == nil || op.raw == nil {
		return nil, fmt.Errorf("video operation required")
	}
	next, err := withRetry(ctx, c, "get_videos_operation", func(ctx context.Context) (*genai.GenerateVideosOperation, error) {
		return c.gc.Operations.GetVideosOperation(ctx, op.raw, nil)
	})
	if err != nil {
		return nil, err
	}
	return convertOperation(next), nil
}

// DownloadVideo resolves a Gemini API file URI to bytes. Vertex jobs return bytes or gs:// URIs instead.
func (c *client) DownloadVideo(ctx context.Context, v Video) ([]byte, error) {
	if len(v.Bytes) > 0 {
		return v.Bytes, nil
	}
	if strings.TrimSpace(v.URI) == "" {
		return nil, fmt.Errorf("video has neither bytes nor uri")
	}
	if c.cfg.Backend != BackendGemini {
		return nil, fmt.Errorf("download of %q not supported on %s backend", v.URI, c.cfg.Backend)
	}
	gv := &genai.Video{URI: v.URI, MIMEType: v.MIMEType}
	return withRetry(ctx, c, "download_video", func(ctx context.Context) ([]byte, error) {
		return c.gc.Files.Download(ctx, genai.NewDownloadURIFromVideo(gv), nil)
	})
}

func convertOperation(op *genai.GenerateVideosOperation) *VideoOperation {
	if op == nil {
		return &VideoOperation{}
	}
	out := &VideoOperation{Name: op.Name, Done: op.Done, raw: op}
	if len(op.Error) > 0 {
		if msg, ok := op.Error["message"].(string); ok && msg != "" {
			out.ErrorMessage = msg
		} else {
			out.ErrorMessage = fmt.Sprint(op.Error)
		}
	}
	if op.Response != nil {
		out.FilteredCount = int(op.Response.RAIMediaFilteredCount)
		out.FilteredReasons = append([]string(nil), op.Response.RAIMediaFilteredReasons...)
		for _, gv := range op.Response.GeneratedVideos {
			if gv == nil || gv.Video == nil {
				continue
			}
			out.Videos = append(out.Videos, Video{
				Bytes:    gv.Video.VideoBytes,
				URI:      gv.Video.URI,
				MIMEType: gv.Video.MIMEType,
			})
		}
	}
	return out
}
