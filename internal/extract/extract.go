// Package extract walks the keyframe-bounded frame range of an instrument
// video, fuses OCR readings for every region of every sampled frame, and
// renders the measurements as CSV.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/MeKo-Tech/readout/internal/common"
	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/video"
)

// Params configures one extraction run.
type Params struct {
	// Config holds keyframes and per-region expectations. It is normalized
	// (keyframes sorted) before use.
	Config regions.Config

	// FPSSample processes every Nth frame; values below 1 mean every frame.
	FPSSample int

	// Workers bounds the parallel region reads within a frame; values
	// below 1 run one worker per region.
	Workers int

	// OutputPath receives the CSV. Empty skips the file write.
	OutputPath string
}

// Measurement is one region reading at one sampled frame.
type Measurement struct {
	Timestamp   float64 `json:"timestamp"`
	FrameNumber int64   `json:"frame_number"`
	RegionName  string  `json:"region_name"`
	Value       string  `json:"value"`
	Confidence  float64 `json:"confidence"`
	RawText     string  `json:"raw_text"`
	Source      string  `json:"source"`
}

// Summary describes a finished run.
type Summary struct {
	Measurements int           `json:"measurements"`
	Steps        int64         `json:"steps"`
	FramesFailed int64         `json:"frames_failed"`
	Canceled     bool          `json:"canceled"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Result is the outcome of a run.
type Result struct {
	Measurements []Measurement `json:"measurements"`
	CSV          string        `json:"csv"`
	Summary      Summary       `json:"summary"`
}

// Extractor drives extraction over one video with a fixed fusion engine.
type Extractor struct {
	source video.FrameSource
	engine *fusion.Engine
	sink   EventSink
}

// New builds an extractor. A nil sink falls back to NoopSink.
func New(source video.FrameSource, engine *fusion.Engine, sink EventSink) *Extractor {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Extractor{source: source, engine: engine, sink: sink}
}

// Run processes the video between the first and last keyframe.
//
// Frames are visited sequentially; all regions of a frame run in parallel.
// Frames with no regions or failed decodes are skipped but still advance
// progress. Cancellation is checked once per frame: a canceled context
// stops the loop and returns the measurements gathered so far with
// Summary.Canceled set.
func (e *Extractor) Run(ctx context.Context, params Params) (*Result, error) {
	cfg := params.Config
	cfg.Normalize()
	if len(cfg.Keyframes) < 2 {
		return nil, errors.New("at least 2 keyframes are required to run extraction")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	info, err := e.source.Info(ctx)
	if err != nil {
		return nil, err
	}
	fps := info.FPS

	step := int64(params.FPSSample)
	if step < 1 {
		step = 1
	}
	firstFrame := int64(math.Round(cfg.Keyframes[0].Timestamp * fps))
	lastFrame := int64(math.Round(cfg.Keyframes[len(cfg.Keyframes)-1].Timestamp * fps))
	totalSteps := (lastFrame-firstFrame)/step + 1

	timer := common.NewNamedTimer("extract")
	e.sink.OnStart(totalSteps)
	slog.Info("extraction started",
		"fps", fps,
		"first_frame", firstFrame,
		"last_frame", lastFrame,
		"step", step,
		"total_steps", totalSteps)

	measurements := make([]Measurement, 0, totalSteps)
	prev := make(map[string]float64)
	var elapsed, failed int64
	canceled := false

	for frame := firstFrame; frame <= lastFrame; frame += step {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		timestamp := float64(frame) / fps
		regs := cfg.RegionsAt(timestamp)
		if len(regs) == 0 {
			elapsed++
			continue
		}

		decoded, err := e.source.FrameAt(ctx, timestamp)
		if err != nil {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			slog.Debug("skipping undecodable frame", "frame", frame, "error", err)
			e.sink.OnError(frame, err)
			failed++
			elapsed++
			continue
		}

		frameMeasurements, readings := e.readFrame(decoded.Image(), regs, &cfg, prev, timestamp, frame, params.Workers)

		// The previous-value map feeds deviation constraints. It updates
		// only after the whole frame joins, so every region of a frame
		// sees the same snapshot.
		for _, m := range frameMeasurements {
			if v, err := strconv.ParseFloat(m.Value, 64); err == nil {
				prev[m.RegionName] = v
			}
		}

		e.sink.OnFrame(FrameProgress{
			Frame:         frame,
			Total:         totalSteps,
			Timestamp:     timestamp,
			ElapsedFrames: elapsed,
			Readings:      readings,
		})

		measurements = append(measurements, frameMeasurements...)
		elapsed++
	}

	csvText, err := BuildCSV(measurements)
	if err != nil {
		return nil, err
	}
	if params.OutputPath != "" {
		if err := WriteCSV(params.OutputPath, measurements); err != nil {
			return nil, fmt.Errorf("write measurements: %w", err)
		}
	}

	summary := Summary{
		Measurements: len(measurements),
		Steps:        elapsed,
		FramesFailed: failed,
		Canceled:     canceled,
		Elapsed:      timer.Stop(),
	}
	e.sink.OnComplete(summary)
	slog.Info("extraction complete",
		"measurements", summary.Measurements,
		"steps", summary.Steps,
		"frames_failed", summary.FramesFailed,
		"canceled", summary.Canceled,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	return &Result{Measurements: measurements, CSV: csvText, Summary: summary}, nil
}

// readFrame fans all regions of one frame out over a bounded pool. The
// prev map is only read here; the caller owns updates.
func (e *Extractor) readFrame(
	img image.Image,
	regs []regions.Region,
	cfg *regions.Config,
	prev map[string]float64,
	timestamp float64,
	frame int64,
	workers int,
) ([]Measurement, []RegionReading) {
	if workers < 1 || workers > len(regs) {
		workers = len(regs)
	}

	results := make([]fusion.Reading, len(regs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, region := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var prevVal *float64
			if v, ok := prev[region.Name]; ok {
				prevVal = &v
			}
			results[i] = e.engine.ReadRegion(img, region, cfg.ExpectationFor(region.Name), prevVal)
		}()
	}
	wg.Wait()

	ms := make([]Measurement, 0, len(regs))
	readings := make([]RegionReading, 0, len(regs))
	for i, region := range regs {
		r := results[i]
		ms = append(ms, Measurement{
			Timestamp:   timestamp,
			FrameNumber: frame,
			RegionName:  region.Name,
			Value:       r.Value,
			Confidence:  r.Confidence,
			RawText:     r.RawText,
			Source:      r.Engine,
		})
		readings = append(readings, RegionReading{
			RegionName: region.Name,
			Value:      r.Value,
			Confidence: r.Confidence,
			Source:     r.Engine,
			Preview:    r.Preview,
		})
	}
	return ms, readings
}
