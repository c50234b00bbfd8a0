package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "readout"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "READOUT"
)

// Loader reads configuration from files, environment variables, and flag
// bindings.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings resolve against the same state.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads configuration from the search paths and environment, applies
// defaults, and validates the result. A missing config file is not an
// error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadWithFile reads configuration from an explicit file path. An empty
// path falls back to the search-path behavior of Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configFile, err)
	}

	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Set overrides a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".readout"))
	}

	l.v.AddConfigPath("/etc/readout")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "readout"))
	}
}

// setupEnvironment configures environment variable handling: READOUT_
// prefix, dots and dashes mapped to underscores.
func (l *Loader) setupEnvironment() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every configuration key with its default, which
// also makes the keys visible to AutomaticEnv.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("models_dir", defaults.ModelsDir)

	l.v.SetDefault("log.level", defaults.Log.Level)
	l.v.SetDefault("log.format", defaults.Log.Format)
	l.v.SetDefault("log.verbose", defaults.Log.Verbose)

	l.v.SetDefault("video.fps_sample", defaults.Video.FPSSample)

	l.v.SetDefault("fusion.fast_threshold", defaults.Fusion.FastThreshold)
	l.v.SetDefault("fusion.workers", defaults.Fusion.Workers)

	l.v.SetDefault("tesseract.data_dir", defaults.Tesseract.DataDir)
	l.v.SetDefault("tesseract.languages", defaults.Tesseract.Languages)
	l.v.SetDefault("tesseract.psms", defaults.Tesseract.PSMs)

	l.v.SetDefault("neural.enabled", defaults.Neural.Enabled)
	l.v.SetDefault("neural.model_path", defaults.Neural.ModelPath)
	l.v.SetDefault("neural.dict_path", defaults.Neural.DictPath)
	l.v.SetDefault("neural.library_path", defaults.Neural.LibraryPath)
	l.v.SetDefault("neural.num_threads", defaults.Neural.NumThreads)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.max_extractions", defaults.Server.MaxExtractions)
}
