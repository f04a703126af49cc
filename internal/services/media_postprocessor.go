package services

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/flashcard-media/internal/observability"
	"github.com/yungbote/flashcard-media/internal/platform/localmedia"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type MediaPostProcessor interface {
	// Process normalizes video frame rate. It never fails: on any error the input is returned unchanged.
	Process(ctx context.Context, p MediaPayload) MediaPayload
}

type mediaPostProcessor struct {
	log       *logger.Logger
	tools     localmedia.Tools
	targetFPS int
}

func NewMediaPostProcessor(log *logger.Logger, tools localmedia.Tools, targetFPS int) MediaPostProcessor {
	if targetFPS <= 0 {
		targetFPS = 10
	}
	return &mediaPostProcessor{
		log:       log.With("service", "MediaPostProcessor"),
		tools:     tools,
		targetFPS: targetFPS,
	}
}

// FrameInterval is max(1, round(sourceFPS/targetFPS)) with ties to even, so 25 fps keeps every 2nd frame.
func FrameInterval(sourceFPS float64, targetFPS int) int {
	if targetFPS <= 0 || sourceFPS <= 0 || math.IsNaN(sourceFPS) || math.IsInf(sourceFPS, 0) {
		return 1
	}
	return max(1, int(math.RoundToEven(sourceFPS/float64(targetFPS))))
}

// ExpectedFrameCount is how many frames survive keeping every interval-th frame; never below 1.
func ExpectedFrameCount(sourceFrames int, interval int) int {
	if interval < 1 {
		interval = 1
	}
	return max(1, (sourceFrames+interval-1)/interval)
}

func (m *mediaPostProcessor) Process(ctx context.Context, p MediaPayload) MediaPayload {
	if !p.Video || len(p.Bytes) == 0 || m.tools == nil {
		return p
	}
	ctx, span := observability.StartSpan(ctx, "media.postprocess", attribute.Int("bytes", len(p.Bytes)))
	out, err := m.resample(ctx, p)
	if err != nil {
		span.SetAttributes(attribute.Bool("degraded", true))
		observability.EndSpan(span, err)
		m.log.Warn("Frame-rate normalization failed; keeping original video", "error", err)
		return p
	}
	observability.EndSpan(span, nil)
	return out
}

func (m *mediaPostProcessor) resample(ctx context.Context, p MediaPayload) (MediaPayload, error) {
	inPath, cleanupIn, err := m.tools.WriteTempFile(ctx, p.Bytes, ".mp4")
	if err != nil {
		return p, err
	}
	defer cleanupIn()

	info, err := m.tools.ProbeVideo(ctx, inPath)
	if err != nil {
		return p, err
	}
	interval := FrameInterval(info.FPS, m.targetFPS)

	outPath := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + "-fps.mp4"
	defer func() { _ = os.Remove(outPath) }()
	if err := m.tools.ResampleFrames(ctx, inPath, outPath, interval, m.targetFPS); err != nil {
		return p, err
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return p, err
	}
	if len(data) == 0 {
		return p, errEmptyResample
	}
	m.log.Debug("Video frame rate normalized",
		"source_fps", info.FPS,
		"source_frames", info.FrameCount,
		"frame_interval", interval,
		"expected_frames", ExpectedFrameCount(info.FrameCount, interval),
	)
	return MediaPayload{Bytes: data, MIMEType: "video/mp4", Video: true}, nil
}

var errEmptyResample = errors.New("ffmpeg produced an empty file")
