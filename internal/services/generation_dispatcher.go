package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/observability"
	"github.com/yungbote/flashcard-media/internal/pkg/httpx"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/gcp"
	"github.com/yungbote/flashcard-media/internal/platform/gemini"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

// MediaPayload is one raw generated artifact ready for storage.
type MediaPayload struct {
	Bytes    []byte
	MIMEType string
	Video    bool
}

type DispatchRequest struct {
	Type           types.GenerationType
	Prompt         string
	AllowPerson    bool
	InputMediaURLs []string
}

type GenerationDispatcher interface {
	// Dispatch returns N images or exactly one video, never an empty list.
	Dispatch(ctx context.Context, req DispatchRequest) ([]MediaPayload, error)
}

// SeedFetcher downloads seed images; *httpx.Fetcher satisfies it.
type SeedFetcher interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, string, error)
}

type DispatcherConfig struct {
	PollInterval  time.Duration
	VideoTimeout  time.Duration
	MaxSeedPixels int
	// MaxDecodePixels caps width*height of any image before it is decoded.
	MaxDecodePixels int64
}

// DefaultMaxDecodePixels is about 160 MB of RGBA.
const DefaultMaxDecodePixels int64 = 40_000_000

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval:  20 * time.Second,
		VideoTimeout:  10 * time.Minute,
		MaxSeedPixels:   2048,
		MaxDecodePixels: DefaultMaxDecodePixels,
	}
}

type generationDispatcher struct {
	log     *logger.Logger
	ai      gemini.Client
	fetcher SeedFetcher
	bucket  gcp.BucketService
	cfg     DispatcherConfig
}

func NewGenerationDispatcher(log *logger.Logger, ai gemini.Client, fetcher SeedFetcher, bucket gcp.BucketService, cfg DispatcherConfig) GenerationDispatcher {
	def := DefaultDispatcherConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.VideoTimeout <= 0 {
		cfg.VideoTimeout = def.VideoTimeout
	}
	if cfg.MaxSeedPixels <= 0 {
		cfg.MaxSeedPixels = def.MaxSeedPixels
	}
	if cfg.MaxDecodePixels <= 0 {
		cfg.MaxDecodePixels = def.MaxDecodePixels
	}
	return &generationDispatcher{
		log:     log.With("service", "GenerationDispatcher"),
		ai:      ai,
		fetcher: fetcher,
		bucket:  bucket,
		cfg:     cfg,
	}
}

// PersonPolicy values differ per backend: Imagen uses enum names, Veo lowercase strings.
func imagePersonPolicy(allow bool) string {
	if allow {
		return "ALLOW_ADULT"
	}
	return "DONT_ALLOW"
}

func videoPersonPolicy(allow bool) string {
	return strings.ToLower(imagePersonPolicy(allow))
}

// ValidateDispatch checks the request shape before any backend call.
func ValidateDispatch(t types.GenerationType, inputMediaURLs []string) error {
	if !t.Valid() {
		return apierr.Validation("unsupported generation type %q", string(t))
	}
	if t.RequiresSeedImage() && (len(inputMediaURLs) == 0 || strings.TrimSpace(inputMediaURLs[0]) == "") {
		return apierr.Validation("%s requires inputMediaUrls[0]", string(t))
	}
	return nil
}

func (d *generationDispatcher) Dispatch(ctx context.Context, req DispatchRequest) (out []MediaPayload, err error) {
	if err := ValidateDispatch(req.Type, req.InputMediaURLs); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "generation.dispatch", attribute.String("generation_type", string(req.Type)))
	defer func() { observability.EndSpan(span, err) }()

	switch req.Type {
	case types.GenerationTextToImage:
		return d.textToImage(ctx, req)
	case types.GenerationImageToImage:
		return d.imageToImage(ctx, req)
	case types.GenerationTextToVideo, types.GenerationImageToVideo:
		return d.video(ctx, req)
	default:
		return nil, apierr.Validation("unsupported generation type %q", string(req.Type))
	}
}

func (d *generationDispatcher) textToImage(ctx context.Context, req DispatchRequest) ([]MediaPayload, error) {
	images, err := d.ai.GenerateImages(ctx, req.Prompt, gemini.ImageOptions{
		Count:            1,
		AspectRatio:      "1:1",
		PersonGeneration: imagePersonPolicy(req.AllowPerson),
	})
	if err != nil {
		return nil, apierr.ExternalAPI(err, "text-to-image generation failed")
	}
	if len(images) == 0 {
		return nil, apierr.ExternalAPI(nil, "text-to-image generation returned no images")
	}
	out := make([]MediaPayload, 0, len(images))
	for i, img := range images {
		b, err := ensurePNG(img)
		if err != nil {
			return nil, apierr.ExternalAPI(err, "decode generated image %d", i)
		}
		out = append(out, MediaPayload{Bytes: b, MIMEType: "image/png"})
	}
	return out, nil
}

func (d *generationDispatcher) imageToImage(ctx context.Context, req DispatchRequest) ([]MediaPayload, error) {
	seed, err := d.loadSeed(ctx, req.InputMediaURLs[0])
	if err != nil {
		return nil, err
	}
	parts, err := d.ai.EditImage(ctx, req.Prompt, *seed)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "image edit failed")
	}
	edited := SelectEditedImage(parts)
	if edited == nil {
		return nil, apierr.ExternalAPI(nil, "image edit returned no image after its explanation")
	}
	b, err := ensurePNG(*edited)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "decode edited image")
	}
	return []MediaPayload{{Bytes: b, MIMEType: "image/png"}}, nil
}

// SelectEditedImage keeps image parts that follow at least one text part and returns the last one.
// The edit backend explains its change in text before the final image.
func SelectEditedImage(parts []gemini.Part) *gemini.Image {
	var seenText bool
	var last *gemini.Image
	for _, p := range parts {
		if strings.TrimSpace(p.Text) != "" {
			seenText = true
		}
		if p.Image != nil && len(p.Image.Bytes) > 0 && seenText {
			last = p.Image
		}
	}
	return last
}

func (d *generationDispatcher) video(ctx context.Context, req DispatchRequest) ([]MediaPayload, error) {
	var seed *gemini.Image
	if req.Type == types.GenerationImageToVideo {
		s, err := d.loadSeed(ctx, req.InputMediaURLs[0])
		if err != nil {
			return nil, err
		}
		seed = s
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.VideoTimeout)
	defer cancel()

	op, err := d.ai.StartVideo(ctx, req.Prompt, seed, gemini.VideoOptions{
		PersonGeneration: videoPersonPolicy(req.AllowPerson),
	})
	if err != nil {
		return nil, apierr.ExternalAPI(err, "video generation submit failed")
	}
	d.log.Info("Video generation submitted", "operation", op.Name, "generation_type", req.Type)

	timer := time.NewTimer(d.cfg.PollInterval)
	defer timer.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, apierr.ExternalAPI(ctx.Err(), "video generation %s did not finish", op.Name)
		case <-timer.C:
		}
		next, err := d.ai.GetVideo(ctx, op)
		if err != nil {
			return nil, apierr.ExternalAPI(err, "video generation poll failed")
		}
		op = next
		timer.Reset(d.cfg.PollInterval)
	}

	if op.ErrorMessage != "" {
		return nil, apierr.ExternalAPI(errors.New(op.ErrorMessage), "video generation failed")
	}
	if len(op.Videos) == 0 {
		if op.FilteredCount > 0 || len(op.FilteredReasons) > 0 {
			return nil, apierr.ExternalAPI(&gemini.FilteredError{Count: op.FilteredCount, Reasons: op.FilteredReasons}, "video generation rejected")
		}
		return nil, apierr.ExternalAPI(nil, "video generation returned no videos")
	}

	data, err := d.videoBytes(ctx, op.Videos[0])
	if err != nil {
		return nil, apierr.ExternalAPI(err, "fetch generated video")
	}
	return []MediaPayload{{Bytes: data, MIMEType: "video/mp4", Video: true}}, nil
}

func (d *generationDispatcher) videoBytes(ctx context.Context, v gemini.Video) ([]byte, error) {
	if len(v.Bytes) > 0 {
		return v.Bytes, nil
	}
	if strings.HasPrefix(v.URI, "gs://") {
		if d.bucket == nil {
			return nil, fmt.Errorf("no storage client for %s", v.URI)
		}
		return d.bucket.ReadGSURI(ctx, v.URI)
	}
	return d.ai.DownloadVideo(ctx, v)
}

// loadSeed fetches inputMediaUrls[0] and re-encodes it as RGBA PNG.
func (d *generationDispatcher) loadSeed(ctx context.Context, rawURL string) (*gemini.Image, error) {
	rawURL = strings.TrimSpace(rawURL)
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(rawURL, "gs://"):
		if d.bucket == nil {
			return nil, apierr.ExternalAPI(nil, "no storage client for %s", rawURL)
		}
		data, err = d.bucket.ReadGSURI(ctx, rawURL)
	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		if d.fetcher == nil {
			return nil, apierr.ExternalAPI(nil, "no fetcher configured for seed image")
		}
		data, _, err = d.fetcher.Get(ctx, rawURL, nil)
	default:
		return nil, apierr.Validation("unsupported seed image url %q", rawURL)
	}
	if errors.Is(err, httpx.ErrBodyTooLarge) {
		return nil, apierr.Validation("seed image too large: %w", err)
	}
	if err != nil {
		return nil, apierr.ExternalAPI(err, "fetch seed image")
	}
	canon, err := CanonicalizeSeed(data, d.cfg.MaxSeedPixels, d.cfg.MaxDecodePixels)
	if err != nil {
		return nil, apierr.Validation("seed image: %w", err)
	}
	return &gemini.Image{Bytes: canon, MIMEType: "image/png"}, nil
}

// ErrImageTooLarge is returned before decoding when the header declares more
// pixels than the decode budget.
var ErrImageTooLarge = errors.New("image too large")

// CanonicalizeSeed decodes png/jpeg/gif/webp, converts to RGBA, downscales so the
// longest side is at most maxSide and encodes PNG. Headers declaring more than
// maxPixels pixels are rejected without decoding; maxPixels <= 0 disables the check.
func CanonicalizeSeed(data []byte, maxSide int, maxPixels int64) ([]byte, error) {
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return nil, fmt.Errorf("empty image")
	}
	if maxPixels > 0 && int64(hdr.Width)*int64(hdr.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, hdr.Width, hdr.Height, maxPixels)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && max(w, h) > maxSide {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func ensurePNG(img gemini.Image) ([]byte, error) {
	if strings.EqualFold(img.MIMEType, "image/png") || (img.MIMEType == "" && bytes.HasPrefix(img.Bytes, pngMagic)) {
		return img.Bytes, nil
	}
	return CanonicalizeSeed(img.Bytes, 0, DefaultMaxDecodePixels)
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")
