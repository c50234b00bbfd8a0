package video

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// DefaultFPS is assumed when the stream reports no usable frame rate.
const DefaultFPS = 30.0

type probeDocument struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	NBFrames     string `json:"nb_frames"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// parseProbeOutput turns ffprobe's JSON document into an Info. The average
// frame rate is preferred; streams that report none fall back to the
// nominal rate, then to DefaultFPS. A missing frame count is derived from
// duration and rate.
func parseProbeOutput(data []byte, path string) (Info, error) {
	var doc probeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(doc.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream found in %s", path)
	}
	st := doc.Streams[0]
	if st.Width <= 0 || st.Height <= 0 {
		return Info{}, fmt.Errorf("video stream in %s has no dimensions", path)
	}

	fps := parseRate(st.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(st.RFrameRate)
	}
	if fps <= 0 {
		slog.Warn("could not read frame rate, using default", "path", path, "fps", DefaultFPS)
		fps = DefaultFPS
	}

	duration, _ := strconv.ParseFloat(doc.Format.Duration, 64)
	duration = math.Max(duration, 0)

	total, _ := strconv.ParseInt(st.NBFrames, 10, 64)
	if total <= 0 {
		total = int64(math.Round(duration * fps))
	}

	return Info{
		FPS:         fps,
		Width:       st.Width,
		Height:      st.Height,
		TotalFrames: total,
		Duration:    duration,
	}, nil
}

// parseRate parses an ffprobe rational like "30000/1001". Zero or negative
// numerators and zero denominators yield 0.
func parseRate(s string) float64 {
	num, den, isRatio := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if !isRatio {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
