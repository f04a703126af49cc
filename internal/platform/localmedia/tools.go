package localmedia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/flashcard-media/internal/platform/ctxutil"
	"github.com/yungbote/flashcard-media/internal/platform/envutil"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

// Tools wraps the ffmpeg and ffprobe binaries used for video post-processing.
type Tools interface {
	AssertReady(ctx context.Context) error
	ProbeVideo(ctx context.Context, path string) (VideoInfo, error)
	ResampleFrames(ctx context.Context, inputPath string, outputPath string, frameInterval int, targetFPS int) error
	WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error)
}

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string
	workRoot    string

	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     envutil.String("FFMPEG_PATH", "ffmpeg"),
		ffprobePath:    envutil.String("FFPROBE_PATH", "ffprobe"),
		workRoot:       envutil.String("MEDIA_WORK_DIR", filepath.Join(os.TempDir(), "flashcard-media")),
		defaultTimeout: 5 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *tools) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	h := sha256.Sum256(data)
	base := hex.EncodeToString(h[:])[:16]
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(m.workRoot, fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), suffix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

// ResampleFrames keeps every frameInterval-th frame and writes the result at targetFPS.
func (m *tools) ResampleFrames(ctx context.Context, inputPath string, outputPath string, frameInterval int, targetFPS int) error {
	ctx = ctxutil.Default(ctx)
	if inputPath == "" || outputPath == "" {
		return fmt.Errorf("inputPath and outputPath required")
	}
	if frameInterval < 1 {
		frameInterval = 1
	}
	if targetFPS < 1 {
		return fmt.Errorf("targetFPS must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-vf", SelectFilter(frameInterval, targetFPS),
		"-r", fmt.Sprintf("%d", targetFPS),
		"-an",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg resample failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}
	m.log.Debug("video frames resampled", "frame_interval", frameInterval, "target_fps", targetFPS)
	return nil
}

// SelectFilter keeps frames 0, n, 2n, ... and retimes the survivors to targetFPS.
func SelectFilter(frameInterval int, targetFPS int) string {
	if frameInterval < 1 {
		frameInterval = 1
	}
	if targetFPS < 1 {
		targetFPS = 1
	}
	return fmt.Sprintf(`select='not(mod(n\,%d))',setpts=N/(%d*TB)`, frameInterval, targetFPS)
}
