package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/readout/internal/extract"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readout_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Extraction metrics
	framesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readout_frames_processed_total",
			Help: "Total number of sampled video frames processed",
		},
	)

	regionReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_region_reads_total",
			Help: "Total number of region readings by winning engine",
		},
		[]string{"engine"},
	)

	frameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readout_frame_duration_seconds",
			Help:    "Time spent decoding and reading one sampled frame",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	activeExtractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readout_active_extractions",
			Help: "Number of extraction runs currently in flight",
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readout_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// metricsSink records extraction progress into the Prometheus metrics. Frame
// durations are measured between consecutive sink callbacks, so they cover
// decode plus region reads.
type metricsSink struct {
	last time.Time
}

func (m *metricsSink) OnStart(total int64) {
	m.last = time.Now()
}

func (m *metricsSink) OnFrame(p extract.FrameProgress) {
	now := time.Now()
	framesProcessed.Inc()
	frameDuration.Observe(now.Sub(m.last).Seconds())
	m.last = now

	for _, r := range p.Readings {
		regionReads.WithLabelValues(r.Source).Inc()
	}
}

func (m *metricsSink) OnError(frame int64, err error) {
	m.last = time.Now()
}

func (m *metricsSink) OnComplete(extract.Summary) {}
