package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/video"
)

// sourceFactory opens a frame source for a video path. Tests swap it out to
// serve synthetic frames.
type sourceFactory func(path string) (video.FrameSource, error)

// Server holds the HTTP server state and dependencies. One fusion engine is
// shared by every extraction run; its neural session is safe for concurrent
// readers.
type Server struct {
	engine     *fusion.Engine
	limiter    *ExtractionLimiter
	newSource  sourceFactory
	corsOrigin string
	timeoutSec int
	fpsSample  int
	workers    int
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	TimeoutSec     int
	MaxExtractions int
	FPSSample      int
	Workers        int
}

// New creates a server around a ready fusion engine.
func New(engine *fusion.Engine, config Config) *Server {
	return &Server{
		engine:  engine,
		limiter: NewExtractionLimiter(config.MaxExtractions),
		newSource: func(path string) (video.FrameSource, error) {
			return video.NewFFmpegSource(path)
		},
		corsOrigin: config.CORSOrigin,
		timeoutSec: config.TimeoutSec,
		fpsSample:  config.FPSSample,
		workers:    config.Workers,
	}
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// ExtractRequest is the single message a client sends on /ws/extract: the
// project document plus run parameters. VideoPath overrides the path stored
// in the project; FPSSample and Workers fall back to the server defaults
// when zero.
type ExtractRequest struct {
	Project   regions.Config `json:"project"`
	VideoPath string         `json:"video_path,omitempty"`
	FPSSample int            `json:"fps_sample,omitempty"`
	Workers   int            `json:"workers,omitempty"`
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/version", s.corsMiddleware(s.versionHandler))
	mux.Handle("/metrics", promhttp.Handler())
	// Not wrapped in corsMiddleware: its recording ResponseWriter would hide
	// http.Hijacker from the upgrader. Origin checks happen in the upgrader.
	mux.HandleFunc("/ws/extract", s.extractWebSocketHandler)
}
