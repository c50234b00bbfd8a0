package config

// Config is the complete application configuration. It is shared by every
// command and can be loaded from a configuration file, environment
// variables, and command-line flags.
type Config struct {
	// ModelsDir is the base directory for neural model resolution.
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`

	// Logging configuration
	Log LogConfig `mapstructure:"log" yaml:"log" json:"log"`

	// Video decoding and sampling
	Video VideoConfig `mapstructure:"video" yaml:"video" json:"video"`

	// Fusion engine tuning
	Fusion FusionConfig `mapstructure:"fusion" yaml:"fusion" json:"fusion"`

	// Classical OCR backend
	Tesseract TesseractConfig `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`

	// Neural OCR backend
	Neural NeuralConfig `mapstructure:"neural" yaml:"neural" json:"neural"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// LogConfig controls slog initialization.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level" json:"level"`
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
}

// VideoConfig contains frame sampling settings.
type VideoConfig struct {
	// FPSSample is the frame stride of the extraction loop; 1 reads every
	// frame.
	FPSSample int `mapstructure:"fps_sample" yaml:"fps_sample" json:"fps_sample"`
}

// FusionConfig contains fusion engine settings.
type FusionConfig struct {
	// FastThreshold is the effective score at which an eligible priority
	// candidate short-circuits the fallback tier.
	FastThreshold float64 `mapstructure:"fast_threshold" yaml:"fast_threshold" json:"fast_threshold"`

	// Workers bounds the parallel region reads per frame; 0 means one
	// worker per region.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// TesseractConfig contains classical backend settings.
type TesseractConfig struct {
	// DataDir is the tessdata directory; empty uses the system default.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`

	// Languages are ISO codes or tesseract trained-data names.
	Languages []string `mapstructure:"languages" yaml:"languages" json:"languages"`

	// PSMs are the page segmentation modes raced per crop.
	PSMs []int `mapstructure:"psms" yaml:"psms" json:"psms"`
}

// NeuralConfig contains neural backend settings.
type NeuralConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ModelPath   string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	DictPath    string `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	LibraryPath string `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// OutputConfig contains measurement output settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP/WebSocket server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// MaxExtractions caps concurrent extraction runs.
	MaxExtractions int `mapstructure:"max_extractions" yaml:"max_extractions" json:"max_extractions"`
}
