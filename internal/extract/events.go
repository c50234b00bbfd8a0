package extract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/readout/internal/common"
)

// RegionReading is one region's fused result inside a frame event.
type RegionReading struct {
	RegionName string  `json:"region_name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Preview    []byte  `json:"ocr_preview,omitempty"`
}

// FrameProgress is emitted once per processed frame and batches every
// region's reading for that frame. ElapsedFrames counts the steps completed
// before this one, so the final frame carries Total-1.
type FrameProgress struct {
	Frame         int64           `json:"frame"`
	Total         int64           `json:"total"`
	Timestamp     float64         `json:"timestamp"`
	ElapsedFrames int64           `json:"elapsed_frames"`
	Readings      []RegionReading `json:"readings"`
}

// EventSink receives extraction lifecycle events. Methods are called
// sequentially from the extraction loop, never concurrently.
type EventSink interface {
	// OnStart is called once with the total number of frame steps.
	OnStart(total int64)

	// OnFrame is called after each processed frame.
	OnFrame(progress FrameProgress)

	// OnError is called when a frame could not be decoded.
	OnError(frame int64, err error)

	// OnComplete is called once when the run finishes or is canceled.
	OnComplete(summary Summary)
}

// NoopSink implements EventSink and does nothing. It is the default when
// no sink is injected.
type NoopSink struct{}

func (NoopSink) OnStart(int64)         {}
func (NoopSink) OnFrame(FrameProgress) {}
func (NoopSink) OnError(int64, error)  {}
func (NoopSink) OnComplete(Summary)    {}

// ConsoleSink draws a progress bar with rate and ETA on a terminal.
type ConsoleSink struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	mu             sync.Mutex
	lastUpdate     time.Time
	eta            *common.ETA
}

// NewConsoleSink creates a console progress reporter. A nil writer means
// stderr.
func NewConsoleSink(writer io.Writer, prefix string) *ConsoleSink {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleSink{
		writer:         writer,
		prefix:         prefix,
		width:          50,
		updateInterval: 100 * time.Millisecond,
	}
}

func (c *ConsoleSink) OnStart(total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eta = common.NewETA(total)
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleSink) OnFrame(p FrameProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	done := p.ElapsedFrames + 1
	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && done < p.Total {
		return
	}
	c.lastUpdate = now
	c.drawBar(done, p.Total)
}

func (c *ConsoleSink) OnError(frame int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sframe %d failed: %v\n", c.prefix, frame, err)
}

func (c *ConsoleSink) OnComplete(s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%s%d measurements in %v\n",
		c.prefix, s.Measurements, s.Elapsed.Round(time.Millisecond))
}

func (c *ConsoleSink) drawBar(done, total int64) {
	if total == 0 {
		return
	}
	percent := float64(done) / float64(total) * 100.0
	filled := int(int64(c.width) * done / total)
	if filled > c.width {
		filled = c.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)

	status := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, done, total, percent)
	if c.eta != nil {
		if elapsed := c.eta.Elapsed(); elapsed > 0 && done > 0 {
			status += fmt.Sprintf(" %.1f/s", float64(done)/elapsed.Seconds())
		}
		if remaining := c.eta.Remaining(done); remaining > 0 {
			status += fmt.Sprintf(" ETA: %v", remaining.Round(time.Second))
		}
	}
	_, _ = fmt.Fprint(c.writer, status)
}

// LogSink logs extraction progress through slog.
type LogSink struct {
	logger   *slog.Logger
	level    slog.Level
	interval int64 // log every N frames
	lastLog  int64
	started  time.Time
}

// NewLogSink creates a log-based progress reporter. A nil logger means the
// default logger.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level, interval: 10}
}

// WithInterval sets how many frames pass between progress records.
func (l *LogSink) WithInterval(interval int64) *LogSink {
	if interval > 0 {
		l.interval = interval
	}
	return l
}

func (l *LogSink) OnStart(total int64) {
	l.started = time.Now()
	l.lastLog = 0
	l.logger.Log(nil, l.level, "extraction started", "total_steps", total)
}

func (l *LogSink) OnFrame(p FrameProgress) {
	done := p.ElapsedFrames + 1
	if done-l.lastLog < l.interval && done < p.Total {
		return
	}
	l.lastLog = done

	elapsed := time.Since(l.started)
	args := []any{
		"frame", p.Frame,
		"done", done,
		"total", p.Total,
		"timestamp", fmt.Sprintf("%.3f", p.Timestamp),
		"elapsed", elapsed.Round(time.Millisecond),
	}
	if elapsed > 0 {
		args = append(args, "rate", fmt.Sprintf("%.1f/s", float64(done)/elapsed.Seconds()))
	}
	l.logger.Log(nil, l.level, "extraction progress", args...)
}

func (l *LogSink) OnError(frame int64, err error) {
	l.logger.Log(nil, slog.LevelWarn, "frame decode failed", "frame", frame, "error", err)
}

func (l *LogSink) OnComplete(s Summary) {
	l.logger.Log(nil, l.level, "extraction complete",
		"measurements", s.Measurements,
		"steps", s.Steps,
		"frames_failed", s.FramesFailed,
		"canceled", s.Canceled,
		"elapsed", s.Elapsed.Round(time.Millisecond))
}

// Event is the serialized form of a sink callback, for consumers that read
// a stream instead of implementing EventSink.
type Event struct {
	Type     string         `json:"type"` // "start", "frame", "error", "complete"
	Total    int64          `json:"total,omitempty"`
	Frame    *FrameProgress `json:"frame,omitempty"`
	ErrFrame int64          `json:"error_frame,omitempty"`
	Error    string         `json:"error,omitempty"`
	Summary  *Summary       `json:"summary,omitempty"`
}

// ChannelSink forwards events into a channel, one extraction run per sink.
// Frame events are dropped when the consumer lags; start, error and
// complete events always go through. OnComplete closes the channel.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink buffering up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Events returns the consumer side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

func (s *ChannelSink) OnStart(total int64) {
	s.ch <- Event{Type: "start", Total: total}
}

func (s *ChannelSink) OnFrame(p FrameProgress) {
	select {
	case s.ch <- Event{Type: "frame", Frame: &p}:
	default:
		// consumer is behind; skipping a progress frame is harmless
	}
}

func (s *ChannelSink) OnError(frame int64, err error) {
	s.ch <- Event{Type: "error", ErrFrame: frame, Error: err.Error()}
}

func (s *ChannelSink) OnComplete(summary Summary) {
	s.ch <- Event{Type: "complete", Summary: &summary}
	close(s.ch)
}

// MultiSink fans events out to several sinks in order.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add appends another sink.
func (m *MultiSink) Add(sink EventSink) {
	m.sinks = append(m.sinks, sink)
}

func (m *MultiSink) OnStart(total int64) {
	for _, s := range m.sinks {
		s.OnStart(total)
	}
}

func (m *MultiSink) OnFrame(p FrameProgress) {
	for _, s := range m.sinks {
		s.OnFrame(p)
	}
}

func (m *MultiSink) OnError(frame int64, err error) {
	for _, s := range m.sinks {
		s.OnError(frame, err)
	}
}

func (m *MultiSink) OnComplete(summary Summary) {
	for _, s := range m.sinks {
		s.OnComplete(summary)
	}
}

// ThrottledSink passes frame events through at most once per interval. The
// final frame always goes through; other callbacks are never throttled.
type ThrottledSink struct {
	wrapped     EventSink
	minInterval time.Duration
	mu          sync.Mutex
	lastUpdate  time.Time
}

// NewThrottledSink wraps a sink with a minimum frame-event interval.
func NewThrottledSink(wrapped EventSink, minInterval time.Duration) *ThrottledSink {
	return &ThrottledSink{wrapped: wrapped, minInterval: minInterval}
}

func (t *ThrottledSink) OnStart(total int64) {
	t.wrapped.OnStart(total)
}

func (t *ThrottledSink) OnFrame(p FrameProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	final := p.ElapsedFrames+1 >= p.Total
	if final || t.lastUpdate.IsZero() || now.Sub(t.lastUpdate) >= t.minInterval {
		t.lastUpdate = now
		t.wrapped.OnFrame(p)
	}
}

func (t *ThrottledSink) OnError(frame int64, err error) {
	t.wrapped.OnError(frame, err)
}

func (t *ThrottledSink) OnComplete(summary Summary) {
	t.wrapped.OnComplete(summary)
}
