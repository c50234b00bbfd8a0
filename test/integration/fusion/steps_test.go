package fusion_test

import (
	"fmt"
	"image"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/recognizer"
	"github.com/MeKo-Tech/readout/internal/regions"
)

// scriptedBackend returns one fixed candidate and counts invocations.
type scriptedBackend struct {
	name  string
	text  string
	conf  float64
	calls int
}

func (b *scriptedBackend) Name() string { return b.name }

func (b *scriptedBackend) Recognize(image.Image) (recognizer.Candidate, bool) {
	b.calls++
	return recognizer.Candidate{
		Engine:     b.name,
		Text:       b.text,
		Confidence: b.conf,
		Preview:    []byte("png"),
	}, true
}

// fusionContext carries one scenario's engine setup and outcome.
type fusionContext struct {
	frame    image.Image
	region   regions.Region
	exp      *regions.Expectation
	prev     *float64
	priority []*scriptedBackend
	fallback []*scriptedBackend
	reading  fusion.Reading
}

func newFusionContext() *fusionContext {
	return &fusionContext{
		frame:  image.NewNRGBA(image.Rect(0, 0, 64, 32)),
		region: regions.Region{Name: "display", X: 2, Y: 2, Width: 24, Height: 16},
	}
}

func (fc *fusionContext) registerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a region expecting a number between (-?[\d.]+) and (-?[\d.]+)$`,
		fc.aRegionExpectingANumberBetween)
	sc.Step(`^a region expecting a number between (-?[\d.]+) and (-?[\d.]+) with max deviation ([\d.]+)$`,
		fc.aRegionExpectingANumberWithMaxDeviation)
	sc.Step(`^a plain text region$`, fc.aPlainTextRegion)
	sc.Step(`^a region with zero width$`, fc.aRegionWithZeroWidth)
	sc.Step(`^the previous reading was ([\d.]+)$`, fc.thePreviousReadingWas)
	sc.Step(`^a priority backend "([^"]*)" reading "([^"]*)" with confidence ([\d.]+)$`,
		fc.aPriorityBackend)
	sc.Step(`^a fallback backend "([^"]*)" reading "([^"]*)" with confidence ([\d.]+)$`,
		fc.aFallbackBackend)
	sc.Step(`^the region is read$`, fc.theRegionIsRead)
	sc.Step(`^the accepted value is "([^"]*)" from "([^"]*)"$`, fc.theAcceptedValueIs)
	sc.Step(`^the raw text is "([^"]*)"$`, fc.theRawTextIs)
	sc.Step(`^the region reports no reading$`, fc.theRegionReportsNoReading)
	sc.Step(`^the fallback tier was not invoked$`, fc.theFallbackTierWasNotInvoked)
	sc.Step(`^the fallback tier was invoked$`, fc.theFallbackTierWasInvoked)
	sc.Step(`^no backend was invoked$`, fc.noBackendWasInvoked)
}

func (fc *fusionContext) aRegionExpectingANumberBetween(minV, maxV float64) error {
	fc.exp = &regions.Expectation{Numeric: true, Min: &minV, Max: &maxV}
	return nil
}

func (fc *fusionContext) aRegionExpectingANumberWithMaxDeviation(minV, maxV, dev float64) error {
	fc.exp = &regions.Expectation{Numeric: true, Min: &minV, Max: &maxV, MaxDeviation: &dev}
	return nil
}

func (fc *fusionContext) aPlainTextRegion() error {
	fc.exp = nil
	return nil
}

func (fc *fusionContext) aRegionWithZeroWidth() error {
	fc.region.Width = 0
	return nil
}

func (fc *fusionContext) thePreviousReadingWas(v float64) error {
	fc.prev = &v
	return nil
}

func (fc *fusionContext) aPriorityBackend(name, text string, conf float64) error {
	fc.priority = append(fc.priority, &scriptedBackend{name: name, text: text, conf: conf})
	return nil
}

func (fc *fusionContext) aFallbackBackend(name, text string, conf float64) error {
	fc.fallback = append(fc.fallback, &scriptedBackend{name: name, text: text, conf: conf})
	return nil
}

func (fc *fusionContext) theRegionIsRead() error {
	engine := &fusion.Engine{FastThreshold: fusion.DefaultFastThreshold}
	for _, b := range fc.priority {
		engine.Priority = append(engine.Priority, b)
	}
	for _, b := range fc.fallback {
		engine.Fallback = append(engine.Fallback, b)
	}
	fc.reading = engine.ReadRegion(fc.frame, fc.region, fc.exp, fc.prev)
	return nil
}

func (fc *fusionContext) theAcceptedValueIs(value, engineName string) error {
	if fc.reading.Value != value {
		return fmt.Errorf("expected value %q, got %q (raw %q from %q)",
			value, fc.reading.Value, fc.reading.RawText, fc.reading.Engine)
	}
	if fc.reading.Engine != engineName {
		return fmt.Errorf("expected engine %q, got %q", engineName, fc.reading.Engine)
	}
	return nil
}

func (fc *fusionContext) theRawTextIs(raw string) error {
	if fc.reading.RawText != raw {
		return fmt.Errorf("expected raw text %q, got %q", raw, fc.reading.RawText)
	}
	return nil
}

func (fc *fusionContext) theRegionReportsNoReading() error {
	if fc.reading.Value != "" || fc.reading.Engine != "" {
		return fmt.Errorf("expected empty reading, got %q from %q", fc.reading.Value, fc.reading.Engine)
	}
	return nil
}

func (fc *fusionContext) theFallbackTierWasNotInvoked() error {
	if n := countCalls(fc.fallback); n != 0 {
		return fmt.Errorf("fallback tier was invoked %d times", n)
	}
	return nil
}

func (fc *fusionContext) theFallbackTierWasInvoked() error {
	if countCalls(fc.fallback) == 0 {
		return fmt.Errorf("fallback tier was never invoked")
	}
	return nil
}

func (fc *fusionContext) noBackendWasInvoked() error {
	if n := countCalls(fc.priority) + countCalls(fc.fallback); n != 0 {
		return fmt.Errorf("backends were invoked %d times", n)
	}
	return nil
}

func countCalls(backends []*scriptedBackend) int {
	total := 0
	for _, b := range backends {
		total += b.calls
	}
	return total
}
