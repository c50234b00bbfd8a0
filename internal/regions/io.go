package regions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a region project document from path and normalizes it.
// Older documents without an expectations map load with an empty one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided project file
	if err != nil {
		return nil, fmt.Errorf("failed to read region config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse region config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the document to path as indented JSON, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal region config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write region config %s: %w", path, err)
	}
	return nil
}
