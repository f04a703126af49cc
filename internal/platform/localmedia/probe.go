package localmedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/flashcard-media/internal/platform/ctxutil"
)

// VideoInfo is the subset of ffprobe output the frame-rate normalizer needs.
type VideoInfo struct {
	FPS        float64
	FrameCount int
	Width      int
	Height     int
	Duration   float64
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NBFrames     string `json:"nb_frames"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

func (m *tools) ProbeVideo(ctx context.Context, path string) (VideoInfo, error) {
	ctx = ctxutil.Default(ctx)
	path = strings.TrimSpace(path)
	if path == "" {
		return VideoInfo{}, errors.New("ffprobe: empty path")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(raw []byte) (VideoInfo, error) {
	var res probeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	for _, s := range res.Streams {
		if s.CodecType != "video" {
			continue
		}
		fps, err := ParseFrameRate(s.RFrameRate)
		if err != nil || fps <= 0 {
			fps, err = ParseFrameRate(s.AvgFrameRate)
			if err != nil {
				return VideoInfo{}, err
			}
		}
		info := VideoInfo{FPS: fps, Width: s.Width, Height: s.Height}
		info.FrameCount, _ = strconv.Atoi(strings.TrimSpace(s.NBFrames))
		info.Duration, _ = strconv.ParseFloat(strings.TrimSpace(res.Format.Duration), 64)
		return info, nil
	}
	return VideoInfo{}, errors.New("ffprobe: no video stream")
}

// ParseFrameRate parses ffprobe rates such as "30/1", "30000/1001" or "25".
func ParseFrameRate(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty frame rate")
	}
	num, den, found := strings.Cut(raw, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", raw, err)
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", raw, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("parse frame rate %q: zero denominator", raw)
	}
	return n / d, nil
}
