package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/models"
	"github.com/MeKo-Tech/readout/internal/recognizer"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.DefaultModelsDir,
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Verbose: false,
		},
		Video: VideoConfig{
			FPSSample: 1,
		},
		Fusion: FusionConfig{
			FastThreshold: fusion.DefaultFastThreshold,
			Workers:       0,
		},
		Tesseract: TesseractConfig{
			Languages: []string{"eng"},
			PSMs:      slices.Clone(recognizer.DefaultPSMs),
		},
		Neural: NeuralConfig{
			Enabled:    true,
			NumThreads: 0,
		},
		Output: OutputConfig{
			Format: "csv",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			MaxExtractions:  2,
		},
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.Log.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"text", "json"}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("invalid log format: %s (must be one of: %s)",
			c.Log.Format, strings.Join(validLogFormats, ", "))
	}

	validOutputFormats := []string{"csv", "json"}
	if c.Output.Format != "" && !slices.Contains(validOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(validOutputFormats, ", "))
	}

	if err := validateThreshold(c.Fusion.FastThreshold, "fusion.fast_threshold"); err != nil {
		return err
	}
	if c.Fusion.Workers < 0 {
		return fmt.Errorf("invalid fusion workers: %d (must not be negative)", c.Fusion.Workers)
	}

	if c.Video.FPSSample <= 0 {
		return fmt.Errorf("invalid fps sample: %d (must be positive)", c.Video.FPSSample)
	}

	for _, psm := range c.Tesseract.PSMs {
		if psm < 0 || psm > 13 {
			return fmt.Errorf("invalid tesseract psm: %d (must be between 0 and 13)", psm)
		}
	}

	if c.Neural.NumThreads < 0 {
		return fmt.Errorf("invalid neural num_threads: %d (must not be negative)", c.Neural.NumThreads)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must be positive)", c.Server.ShutdownTimeout)
	}
	if c.Server.MaxExtractions <= 0 {
		return fmt.Errorf("invalid max extractions: %d (must be positive)", c.Server.MaxExtractions)
	}

	return nil
}

// ToTesseractConfig converts the classical backend section into the
// recognizer's configuration.
func (c *Config) ToTesseractConfig() recognizer.TesseractConfig {
	return recognizer.TesseractConfig{
		DataDir:   c.Tesseract.DataDir,
		Languages: slices.Clone(c.Tesseract.Languages),
		PSMs:      slices.Clone(c.Tesseract.PSMs),
	}
}

// ToNeuralConfig converts the neural backend section into the recognizer's
// configuration. Empty paths resolve against ModelsDir.
func (c *Config) ToNeuralConfig() recognizer.NeuralConfig {
	modelPath := c.Neural.ModelPath
	if modelPath == "" {
		modelPath = models.GetRecognitionModelPath(c.ModelsDir)
	}
	dictPath := c.Neural.DictPath
	if dictPath == "" {
		dictPath = models.GetDictionaryPath(c.ModelsDir)
	}
	return recognizer.NeuralConfig{
		ModelPath:   modelPath,
		DictPath:    dictPath,
		LibraryPath: c.Neural.LibraryPath,
		NumThreads:  c.Neural.NumThreads,
	}
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
