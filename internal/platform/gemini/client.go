package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/flashcard-media/internal/pkg/httpx"
	"github.com/yungbote/flashcard-media/internal/platform/envutil"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

type Config struct {
	APIKey   string
	Backend  string
	Project  string
	Location string

	TextModel      string
	ImageEditModel string
	ImagenModel    string
	VeoModel       string

	MaxRetries int
	Timeout    time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:         envutil.String("GEMINI_API_KEY", ""),
		Backend:        strings.ToLower(envutil.String("GEMINI_BACKEND", BackendGemini)),
		Project:        envutil.String("GOOGLE_CLOUD_PROJECT", ""),
		Location:       envutil.String("GOOGLE_CLOUD_LOCATION", "us-central1"),
		TextModel:      envutil.String("GEMINI_TEXT_MODEL", "gemini-2.0-flash"),
		ImageEditModel: envutil.String("GEMINI_IMAGE_EDIT_MODEL", "gemini-2.0-flash-preview-image-generation"),
		ImagenModel:    envutil.String("IMAGEN_MODEL", "imagen-3.0-generate-002"),
		VeoModel:       envutil.String("VEO_MODEL", "veo-2.0-generate-001"),
		MaxRetries:     envutil.Int("GEMINI_MAX_RETRIES", 3),
		Timeout:        envutil.Seconds("GEMINI_TIMEOUT_SECONDS", 180*time.Second),
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("missing GEMINI_API_KEY")
		}
	case BackendVertex:
		if c.Project == "" {
			return fmt.Errorf("missing GOOGLE_CLOUD_PROJECT for vertex backend")
		}
	default:
		return fmt.Errorf("invalid GEMINI_BACKEND=%q (allowed: %q, %q)", c.Backend, BackendGemini, BackendVertex)
	}
	return nil
}

// Usage is the token triple reported by a structured-completion call.
type Usage struct {
	PromptTokens     int
	CandidatesTokens int
	TotalTokens      int
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CandidatesTokens: u.CandidatesTokens + o.CandidatesTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

type Image struct {
	Bytes    []byte
	MIMEType string
}

// Part is one element of an interleaved text/image response.
type Part struct {
	Text  string
	Image *Image
}

type Video struct {
	Bytes    []byte
	URI      string
	MIMEType string
}

type ImageOptions struct {
	Count            int
	AspectRatio      string
	PersonGeneration string
}

type VideoOptions struct {
	PersonGeneration string
	AspectRatio      string
	DurationSeconds  int
}

// VideoOperation mirrors a long-running Veo job.
type VideoOperation struct {
	Name            string
	Done            bool
	Videos          []Video
	FilteredCount   int
	FilteredReasons []string
	ErrorMessage    string

	raw *genai.GenerateVideosOperation
}

type Client interface {
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) (Usage, error)
	GenerateImages(ctx context.Context, prompt string, opts ImageOptions) ([]Image, error)
	EditImage(ctx context.Context, prompt string, image Image) ([]Part, error)
	StartVideo(ctx context.Context, prompt string, seed *Image, opts VideoOptions) (*VideoOperation, error)
	GetVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error)
	DownloadVideo(ctx context.Context, v Video) ([]byte, error)
}

type client struct {
	log *logger.Logger
	cfg Config
	gc  *genai.Client
}

func NewClient(ctx context.Context, log *logger.Logger) (Client, error) {
	return NewClientWithConfig(ctx, log, ConfigFromEnv())
}

func NewClientWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cc := &genai.ClientConfig{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.Backend == BackendVertex {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	c := &client{log: log.With("service", "GeminiClient"), cfg: cfg, gc: gc}
	c.log.Info("Gemini client initialized",
		"backend", cfg.Backend,
		"text_model", cfg.TextModel,
		"image_edit_model", cfg.ImageEditModel,
		"imagen_model", cfg.ImagenModel,
		"veo_model", cfg.VeoModel,
	)
	return c, nil
}

// apiStatusError adapts genai.APIError to httpx retry classification.
type apiStatusError struct{ err genai.APIError }

func (e apiStatusError) Error() string       { return e.err.Error() }
func (e apiStatusError) HTTPStatusCode() int { return e.err.Code }
func (e apiStatusError) Unwrap() error       { return e.err }

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiStatusError{err: apiErr}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiStatusError{err: *apiErrPtr}
	}
	return err
}

func isRetryable(err error) bool {
	return httpx.IsRetryableError(classify(err))
}

func withRetry[T any](ctx context.Context, c *client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	backoff := 1 * time.Second
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !isRetryable(err) || attempt >= c.cfg.MaxRetries {
			return zero, err
		}
		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("Gemini request retrying",
			"op", op,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(sleepFor):
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}
