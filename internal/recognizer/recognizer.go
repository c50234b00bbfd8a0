// Package recognizer implements the OCR backends the fusion engine fans out
// to: a neural ONNX text-recognition model in two color modes and a
// classical Tesseract engine in several preprocessing configurations. Each
// backend takes a color crop and optionally produces a candidate reading.
package recognizer

import (
	"image"
	"log/slog"
)

// Variant identifies one backend configuration. The set is closed: dispatch
// is a switch, not a plugin registry.
type Variant int

const (
	// NeuralRGB feeds the crop to the recognition model as-is.
	NeuralRGB Variant = iota
	// NeuralGray converts to grayscale and promotes back to three channels.
	NeuralGray
	// TessBinary runs the full adaptive pipeline including binarization.
	TessBinary
	// TessGray stops the pipeline at enhanced grayscale.
	TessGray
	// TessRawGray is plain luma with no enhancement, a fast baseline.
	TessRawGray
	// TessRGB passes raw color through untouched.
	TessRGB
	// TessChannelR binarizes the red channel; likewise green and blue.
	// Single-color displays often live entirely in one channel.
	TessChannelR
	TessChannelG
	TessChannelB
)

// String returns the engine name recorded in results and logs.
func (v Variant) String() string {
	switch v {
	case NeuralRGB:
		return "neural/rgb"
	case NeuralGray:
		return "neural/gray"
	case TessBinary:
		return "tesseract/binary"
	case TessGray:
		return "tesseract/gray"
	case TessRawGray:
		return "tesseract/raw-gray"
	case TessRGB:
		return "tesseract/rgb"
	case TessChannelR:
		return "tesseract/channel-r"
	case TessChannelG:
		return "tesseract/channel-g"
	case TessChannelB:
		return "tesseract/channel-b"
	default:
		return "unknown"
	}
}

// Candidate is one backend's reading of a crop.
type Candidate struct {
	// Engine is the variant name that produced this reading.
	Engine string
	// Text is the raw recognized text, trimmed.
	Text string
	// Confidence is the engine's own score in [0, 1].
	Confidence float64
	// Preview holds the exact PNG bytes fed to the engine, for diagnostics.
	Preview []byte
}

// Backend binds a variant to the resources it needs. Neural variants share
// one read-only session; Tesseract variants share the engine configuration
// and spawn a fresh engine client per call.
type Backend struct {
	variant Variant
	neural  *Neural
	tess    *Tesseract
}

// Name returns the backend's engine name.
func (b *Backend) Name() string { return b.variant.String() }

// Recognize produces at most one candidate for the crop. Failures inside an
// engine are logged and reported as "no result" so one flaky backend never
// aborts the fusion pass.
func (b *Backend) Recognize(crop image.Image) (Candidate, bool) {
	if crop == nil {
		return Candidate{}, false
	}
	bounds := crop.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Candidate{}, false
	}

	var (
		cand Candidate
		ok   bool
		err  error
	)
	switch b.variant {
	case NeuralRGB:
		cand, ok, err = b.neural.Recognize(crop, false)
	case NeuralGray:
		cand, ok, err = b.neural.Recognize(crop, true)
	default:
		cand, ok, err = b.tess.Recognize(crop, b.variant)
	}
	if err != nil {
		slog.Debug("backend failed", "engine", b.Name(), "error", err)
		return Candidate{}, false
	}
	return cand, ok
}

// Set holds the backends split into scheduling tiers. Priority backends run
// first; fallback backends only run when no priority candidate clears the
// fast-accept threshold.
type Set struct {
	Priority []*Backend
	Fallback []*Backend
}

// NewSet assembles the closed backend set. The neural variants form the
// priority tier: a single model invocation each, fast and usually right.
// The Tesseract variants form the fallback tier, since each one explores
// four page-segmentation hypotheses on top of its preprocessing pipeline.
// A nil neural session leaves the priority tier empty and the engine runs
// classical-only.
func NewSet(neural *Neural, tess *Tesseract) Set {
	var s Set
	if neural != nil {
		s.Priority = append(s.Priority,
			&Backend{variant: NeuralRGB, neural: neural},
			&Backend{variant: NeuralGray, neural: neural},
		)
	}
	s.Fallback = append(s.Fallback,
		&Backend{variant: TessBinary, tess: tess},
		&Backend{variant: TessGray, tess: tess},
		&Backend{variant: TessRawGray, tess: tess},
		&Backend{variant: TessRGB, tess: tess},
		&Backend{variant: TessChannelR, tess: tess},
		&Backend{variant: TessChannelG, tess: tess},
		&Backend{variant: TessChannelB, tess: tess},
	)
	return s
}
