// Package fusion arbitrates between OCR backends for a single region crop.
//
// Backends are split into a priority tier and a fallback tier. The priority
// tier runs first; when its best constraint-satisfying candidate is confident
// enough, the fallback tier is skipped entirely. Otherwise every backend
// runs and the candidate with the highest validation-adjusted confidence
// wins. Candidates that violate a region's hard constraints never win: if
// nothing passes, the region reports an empty reading rather than a
// known-bad value.
package fusion

import (
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/readout/internal/recognizer"
	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/score"
)

// DefaultFastThreshold is the validation-adjusted confidence at which the
// fallback tier is skipped.
const DefaultFastThreshold = 0.9

// Recognizer is one OCR backend as seen by the fusion engine.
type Recognizer interface {
	Name() string
	Recognize(crop image.Image) (recognizer.Candidate, bool)
}

// Reading is the fused result for one region of one frame. A zero Reading
// means no backend produced an acceptable candidate.
type Reading struct {
	Value      string  // cleaned number for numeric regions, trimmed text otherwise
	Confidence float64 // winning backend's confidence, 0.0 - 1.0
	RawText    string  // trimmed backend output before numeric cleanup
	Preview    []byte  // PNG of what the winning backend actually processed
	Engine     string  // winning backend name
}

// Engine fuses candidates from a fixed set of backends.
type Engine struct {
	Priority      []Recognizer
	Fallback      []Recognizer
	FastThreshold float64
}

// NewEngine adapts a backend set. A non-positive fastThreshold falls back
// to DefaultFastThreshold.
func NewEngine(set recognizer.Set, fastThreshold float64) *Engine {
	if fastThreshold <= 0 {
		fastThreshold = DefaultFastThreshold
	}
	e := &Engine{FastThreshold: fastThreshold}
	for _, b := range set.Priority {
		e.Priority = append(e.Priority, b)
	}
	for _, b := range set.Fallback {
		e.Fallback = append(e.Fallback, b)
	}
	return e
}

// ReadRegion crops the region out of the frame and runs the tiers.
//
// exp carries the region's content expectations and may be nil. prev is the
// accepted numeric reading from an earlier frame for this region, used by
// deviation constraints; nil when unknown.
//
// A confident priority result short-circuits the fallback tier only when it
// also satisfies the hard constraints: an out-of-range reading must not
// suppress fallback backends that might produce a valid one.
func (e *Engine) ReadRegion(frame image.Image, region regions.Region, exp *regions.Expectation, prev *float64) Reading {
	filterNumeric := exp != nil && exp.Numeric

	if region.Width <= 0 || region.Height <= 0 {
		return Reading{}
	}
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).
		Intersect(frame.Bounds())
	if rect.Empty() {
		return Reading{}
	}

	// Crop once; every backend shares the same pixels.
	crop := imaging.Crop(frame, rect)

	priorityResults := runTier(e.Priority, crop)

	if best := bestConstrained(priorityResults, filterNumeric, exp, prev); best != nil {
		vscore := score.Validation(best.Text, exp, prev)
		eff := best.Confidence * vscore
		numericOK := !filterNumeric
		if !numericOK {
			_, numericOK = score.ParseNumber(best.Text)
		}
		if eff >= e.FastThreshold && numericOK {
			slog.Debug("fast path, skipping fallback tier",
				"engine", best.Engine,
				"effective_confidence", eff,
				"threshold", e.FastThreshold)
			return makeReading(*best, filterNumeric)
		}
	}

	fallbackResults := runTier(e.Fallback, crop)

	all := make([]recognizer.Candidate, 0, len(priorityResults)+len(fallbackResults))
	all = append(all, priorityResults...)
	all = append(all, fallbackResults...)
	for _, c := range all {
		slog.Debug("candidate",
			"engine", c.Engine,
			"text", c.Text,
			"confidence", c.Confidence,
			"validation", score.Validation(c.Text, exp, prev))
	}

	if best := bestConstrained(all, filterNumeric, exp, prev); best != nil {
		return makeReading(*best, filterNumeric)
	}
	slog.Debug("no candidate satisfied hard constraints, reporting empty", "region", region.Name)
	return Reading{}
}

// runTier fans the crop out to every backend and collects successful
// candidates in backend order, so score ties resolve the same way on
// every run.
func runTier(engines []Recognizer, crop image.Image) []recognizer.Candidate {
	if len(engines) == 0 {
		return nil
	}
	results := make([]recognizer.Candidate, len(engines))
	hits := make([]bool, len(engines))
	var wg sync.WaitGroup
	for i, eng := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], hits[i] = eng.Recognize(crop)
		}()
	}
	wg.Wait()

	out := make([]recognizer.Candidate, 0, len(engines))
	for i, hit := range hits {
		if hit {
			out = append(out, results[i])
		}
	}
	return out
}

func makeReading(c recognizer.Candidate, filterNumeric bool) Reading {
	value := strings.TrimSpace(c.Text)
	if filterNumeric {
		value = score.CleanNumber(c.Text)
	}
	return Reading{
		Value:      value,
		Confidence: c.Confidence,
		RawText:    strings.TrimSpace(c.Text),
		Preview:    c.Preview,
		Engine:     c.Engine,
	}
}
