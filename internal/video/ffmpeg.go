package video

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// FFmpegSource decodes frames by invoking ffmpeg and ffprobe.
type FFmpegSource struct {
	path       string
	ffmpegBin  string
	ffprobeBin string

	mu   sync.Mutex
	info *Info
}

// NewFFmpegSource verifies that the video exists and that the ffmpeg tools
// are on PATH.
func NewFFmpegSource(path string) (*FFmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}
	ffmpegBin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	ffprobeBin, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	return &FFmpegSource{path: path, ffmpegBin: ffmpegBin, ffprobeBin: ffprobeBin}, nil
}

// Info probes the stream once and caches the result.
func (s *FFmpegSource) Info(ctx context.Context) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info != nil {
		return *s.info, nil
	}

	out, err := exec.CommandContext(ctx, s.ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		s.path,
	).Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w%s", s.path, err, stderrOf(err))
	}

	info, err := parseProbeOutput(out, s.path)
	if err != nil {
		return Info{}, err
	}
	s.info = &info
	return info, nil
}

// FrameAt decodes the frame nearest to the timestamp in seconds. Negative
// timestamps clamp to zero.
func (s *FFmpegSource) FrameAt(ctx context.Context, timestamp float64) (*Frame, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	ts := math.Max(timestamp, 0)

	out, err := exec.CommandContext(ctx, s.ffmpegBin,
		"-v", "error",
		"-ss", strconv.FormatFloat(ts, 'f', 6, 64),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("decode frame at %.3fs: %w%s", ts, err, stderrOf(err))
	}
	return frameFromRaw(out, info.Width, info.Height, ts)
}

// frameFromRaw validates raw rgb24 output against the probed dimensions.
func frameFromRaw(data []byte, width, height int, ts float64) (*Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no frame decoded at %.3fs", ts)
	}
	want := width * height * 3
	if len(data) < want {
		return nil, fmt.Errorf("frame buffer too small: %d bytes < %d expected (%dx%dx3)",
			len(data), want, width, height)
	}
	return &Frame{Data: data[:want], Width: width, Height: height}, nil
}

// stderrOf extracts captured stderr from a failed command for error context.
func stderrOf(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return ": " + strings.TrimSpace(string(exitErr.Stderr))
	}
	return ""
}
