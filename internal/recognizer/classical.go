package recognizer

import (
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/readout/internal/preprocess"
)

// DefaultPSMs are the page-segmentation modes raced against each other:
// single line, uniform block, single word, and raw line.
var DefaultPSMs = []int{7, 6, 8, 13}

// TesseractConfig configures the classical OCR backend.
type TesseractConfig struct {
	DataDir    string             // tessdata directory; empty uses the system default
	Languages  []string           // language codes, normalized to tesseract names
	PSMs       []int              // page-segmentation modes to race; nil uses DefaultPSMs
	Preprocess preprocess.Options // pipeline tuning; zero value uses DefaultOptions
}

// Tesseract runs classical OCR over a preprocessed crop. Each call races
// every configured page-segmentation mode with its own client, since a
// tesseract client is not safe for concurrent use.
type Tesseract struct {
	dataDir   string
	languages []string
	psms      []int
	opts      preprocess.Options
}

// NewTesseract builds a backend from the config, filling in defaults.
func NewTesseract(config TesseractConfig) *Tesseract {
	psms := config.PSMs
	if len(psms) == 0 {
		psms = DefaultPSMs
	}
	opts := config.Preprocess
	if opts == (preprocess.Options{}) {
		opts = preprocess.DefaultOptions()
	}
	return &Tesseract{
		dataDir:   config.DataDir,
		languages: MapLanguages(config.Languages),
		psms:      psms,
		opts:      opts,
	}
}

// Recognize preprocesses the crop for the given variant and returns the
// highest-confidence reading across all page-segmentation modes. The
// preview holds the exact image handed to tesseract.
func (t *Tesseract) Recognize(crop image.Image, variant Variant) (Candidate, bool, error) {
	prepared, err := t.prepare(crop, variant)
	if err != nil {
		return Candidate{}, false, err
	}
	pngData, err := preprocess.EncodePNG(prepared)
	if err != nil {
		return Candidate{}, false, err
	}

	type psmResult struct {
		text       string
		confidence float64
		ok         bool
	}
	results := make([]psmResult, len(t.psms))
	var wg sync.WaitGroup
	for i, psm := range t.psms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, conf, ok := t.runPSM(pngData, psm)
			if ok {
				slog.Debug("tesseract candidate",
					"engine", variant.String(), "psm", psm,
					"text", text, "confidence", conf)
			}
			results[i] = psmResult{text: text, confidence: conf, ok: ok}
		}()
	}
	wg.Wait()

	best := Candidate{Engine: variant.String(), Preview: pngData}
	found := false
	for _, r := range results {
		if !r.ok {
			continue
		}
		if !found || r.confidence >= best.Confidence {
			best.Text = r.text
			best.Confidence = r.confidence
			found = true
		}
	}
	return best, found, nil
}

// prepare applies the variant's preprocessing. Binary and the channel
// variants run the full binarizing pipeline, gray runs it without
// binarization, and the raw variants pass pixels through untouched.
func (t *Tesseract) prepare(crop image.Image, variant Variant) (image.Image, error) {
	switch variant {
	case TessBinary:
		return preprocess.Prepare(crop, preprocess.Luma, true, t.opts)
	case TessGray:
		return preprocess.Prepare(crop, preprocess.Luma, false, t.opts)
	case TessRawGray:
		return preprocess.RawGray(crop), nil
	case TessRGB:
		return crop, nil
	case TessChannelR:
		return preprocess.Prepare(crop, preprocess.Red, true, t.opts)
	case TessChannelG:
		return preprocess.Prepare(crop, preprocess.Green, true, t.opts)
	case TessChannelB:
		return preprocess.Prepare(crop, preprocess.Blue, true, t.opts)
	default:
		return nil, fmt.Errorf("variant %s is not a tesseract mode", variant)
	}
}

// runPSM performs a single OCR pass. Any client error drops this mode from
// the race rather than failing the whole recognition.
func (t *Tesseract) runPSM(pngData []byte, psm int) (string, float64, bool) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.dataDir != "" {
		if err := client.SetTessdataPrefix(t.dataDir); err != nil {
			slog.Debug("tesseract setup failed", "psm", psm, "error", err)
			return "", 0, false
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		slog.Debug("tesseract setup failed", "psm", psm, "error", err)
		return "", 0, false
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		slog.Debug("tesseract setup failed", "psm", psm, "error", err)
		return "", 0, false
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		slog.Debug("tesseract setup failed", "psm", psm, "error", err)
		return "", 0, false
	}

	raw, err := client.Text()
	if err != nil {
		slog.Debug("tesseract read failed", "psm", psm, "error", err)
		return "", 0, false
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", 0, false
	}

	conf, err := meanWordConfidence(client)
	if err != nil {
		slog.Debug("tesseract confidence failed", "psm", psm, "error", err)
		return "", 0, false
	}
	return text, conf, true
}

// meanWordConfidence averages word-level confidences into [0,1]. No words
// means zero confidence, not an error.
func meanWordConfidence(client *gosseract.Client) (float64, error) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return 0, err
	}
	if len(boxes) == 0 {
		return 0, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	conf := sum / float64(len(boxes)) / 100.0
	return max(conf, 0), nil
}

// MapLanguages normalizes short language codes to tesseract's trained-data
// names. Unknown codes pass through as written; an empty list falls back
// to English.
func MapLanguages(languages []string) []string {
	if len(languages) == 0 {
		return []string{"eng"}
	}
	out := make([]string, 0, len(languages))
	for _, l := range languages {
		switch strings.TrimSpace(l) {
		case "en", "eng":
			out = append(out, "eng")
		case "de", "deu":
			out = append(out, "deu")
		case "fr", "fra":
			out = append(out, "fra")
		case "es", "spa":
			out = append(out, "spa")
		default:
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}
