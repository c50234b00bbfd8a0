// Package models resolves the ONNX recognition model and its character
// dictionary on disk. The neural backend is optional: when the model set
// cannot be located the engine runs classical-only.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file names.
const (
	RecognitionMobile = "pp-ocrv5_mobile_rec.onnx"
	DictionaryPPOCRv5 = "ppocrv5_dict.txt"
)

// Model type categories for the organized directory structure.
const (
	TypeRecognition  = "recognition"
	TypeDictionaries = "dictionaries"
)

// DefaultModelsDir is the models directory relative to the project root.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "READOUT_MODELS_DIR"

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory path.
// Priority: 1. explicit modelsDir parameter, 2. environment variable,
// 3. project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves a model filename to its full path. It prefers
// the organized structure (models/<type>/<file>) and falls back to a flat
// models directory.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	if modelType != "" {
		organizedPath := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organizedPath); err == nil {
			return organizedPath
		}
	}

	return filepath.Join(baseDir, filename)
}

// GetRecognitionModelPath returns the path of the recognition model.
func GetRecognitionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeRecognition, RecognitionMobile)
}

// GetDictionaryPath returns the path of the character dictionary.
func GetDictionaryPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDictionaries, DictionaryPPOCRv5)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// Set bundles the files the neural recognizer loads.
type Set struct {
	RecognitionModel string
	Dictionary       string
}

// Locate resolves the recognition model set. ok is false when either file
// is missing, in which case callers skip the neural backend entirely.
func Locate(modelsDir string) (Set, bool) {
	set := Set{
		RecognitionModel: GetRecognitionModelPath(modelsDir),
		Dictionary:       GetDictionaryPath(modelsDir),
	}
	if ValidateModelExists(set.RecognitionModel) != nil {
		return Set{}, false
	}
	if ValidateModelExists(set.Dictionary) != nil {
		return Set{}, false
	}
	return set, true
}
