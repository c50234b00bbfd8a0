package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/readout/internal/config"
	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/models"
	"github.com/MeKo-Tech/readout/internal/recognizer"
)

// Backend selector values accepted by --backends.
const (
	backendsAll       = "all"
	backendsNeural    = "neural"
	backendsTesseract = "tesseract"
)

func validateBackends(s string) error {
	if s != backendsAll && s != backendsNeural && s != backendsTesseract {
		return fmt.Errorf("invalid backends selector: %s (must be one of: all, neural, tesseract)", s)
	}
	return nil
}

// buildEngine wires the configured recognizer backends into a fusion
// engine. backends restricts the set to one tier; with backendsAll a
// missing neural model degrades to classical-only, while an explicit
// backendsNeural makes it fatal. The returned Neural is non-nil when the
// neural tier is active; the caller owns its Close.
func buildEngine(cfg *config.Config, backends string, fastThreshold float64) (*fusion.Engine, *recognizer.Neural, error) {
	if err := validateBackends(backends); err != nil {
		return nil, nil, err
	}

	var neural *recognizer.Neural
	if backends != backendsTesseract {
		if !cfg.Neural.Enabled {
			if backends == backendsNeural {
				return nil, nil, errors.New("neural backend requested but disabled in configuration")
			}
		} else {
			n, err := neuralBackend(cfg)
			switch {
			case err == nil:
				neural = n
			case backends == backendsNeural:
				return nil, nil, fmt.Errorf("neural backend unavailable: %w", err)
			default:
				slog.Warn("neural backend unavailable, running classical-only", "error", err)
			}
		}
	}

	set := recognizer.NewSet(neural, recognizer.NewTesseract(cfg.ToTesseractConfig()))
	switch backends {
	case backendsNeural:
		set.Fallback = nil
	case backendsTesseract:
		set.Priority = nil
	}
	return fusion.NewEngine(set, fastThreshold), neural, nil
}

// neuralBackend loads the neural recognizer. Missing model files are
// reported as an error; the caller decides whether that is fatal.
func neuralBackend(cfg *config.Config) (*recognizer.Neural, error) {
	if cfg.Neural.ModelPath == "" && cfg.Neural.DictPath == "" {
		if _, ok := models.Locate(cfg.ModelsDir); !ok {
			return nil, fmt.Errorf("recognition model set not found in %s", models.GetModelsDir(cfg.ModelsDir))
		}
	} else {
		nCfg := cfg.ToNeuralConfig()
		if err := models.ValidateModelExists(nCfg.ModelPath); err != nil {
			return nil, err
		}
		if err := models.ValidateModelExists(nCfg.DictPath); err != nil {
			return nil, err
		}
	}
	return recognizer.NewNeural(cfg.ToNeuralConfig())
}
