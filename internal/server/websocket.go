package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/readout/internal/extract"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// extractWebSocketHandler streams one extraction run over a WebSocket. The
// client sends a single ExtractRequest; the server answers with start, frame,
// error and complete events as JSON text messages and then closes.
func (s *Server) extractWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleExtractConnection(r.Context(), conn)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// checkOrigin admits browser connections matching the configured CORS origin.
// Requests without an Origin header (non-browser clients) always pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.corsOrigin == "" || s.corsOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.corsOrigin
}

// handleExtractConnection reads the single request, claims an extraction
// slot and runs the extraction with events streamed back to the client.
func (s *Server) handleExtractConnection(ctx context.Context, conn *websocket.Conn) {
	readTimeout := time.Duration(s.timeoutSec) * time.Second
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	sink := &wsSink{conn: conn}

	// One request per connection.
	_, data, err := conn.ReadMessage()
	if err != nil {
		slog.Debug("WebSocket closed before request", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("received").Inc()

	var req ExtractRequest
	if err := json.Unmarshal(data, &req); err != nil {
		sink.sendError(fmt.Errorf("parse request: %w", err))
		return
	}

	if s.engine == nil {
		sink.sendError(errors.New("extraction engine not initialized"))
		return
	}

	videoPath := req.VideoPath
	if videoPath == "" {
		videoPath = req.Project.VideoPath
	}
	if videoPath == "" {
		sink.sendError(errors.New("video_path is required"))
		return
	}

	if err := s.limiter.Acquire(); err != nil {
		sink.sendError(err)
		return
	}
	defer s.limiter.Release()
	activeExtractions.Inc()
	defer activeExtractions.Dec()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink.cancel = cancel

	// Consume control frames so pongs extend the read deadline, and turn a
	// client disconnect into cancellation of the running extraction.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	// Keep the connection alive while long extractions run.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			}
		}
	}()

	s.runExtraction(runCtx, sink, req, videoPath)
}

// runExtraction opens the video and drives one extraction run. Progress
// reaches the client through the sink; the complete event carries the
// summary, so a successful run needs no further reply.
func (s *Server) runExtraction(ctx context.Context, sink *wsSink, req ExtractRequest, videoPath string) {
	source, err := s.newSource(videoPath)
	if err != nil {
		sink.sendError(fmt.Errorf("open video: %w", err))
		return
	}

	fpsSample := req.FPSSample
	if fpsSample <= 0 {
		fpsSample = s.fpsSample
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.workers
	}

	cfg := req.Project
	cfg.VideoPath = videoPath

	params := extract.Params{
		Config:    cfg,
		FPSSample: fpsSample,
		Workers:   workers,
	}

	ex := extract.New(source, s.engine, extract.NewMultiSink(sink, &metricsSink{}))
	if _, err := ex.Run(ctx, params); err != nil {
		sink.sendError(err)
	}
}

// wsSink streams sink callbacks to the WebSocket client as JSON events.
// Writes are synchronous so no frame event is dropped; a failed write
// cancels the run, since the client is gone.
type wsSink struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func (s *wsSink) OnStart(total int64) {
	s.send(extract.Event{Type: "start", Total: total})
}

func (s *wsSink) OnFrame(p extract.FrameProgress) {
	s.send(extract.Event{Type: "frame", Frame: &p})
}

func (s *wsSink) OnError(frame int64, err error) {
	s.send(extract.Event{Type: "error", ErrFrame: frame, Error: err.Error()})
}

func (s *wsSink) OnComplete(summary extract.Summary) {
	s.send(extract.Event{Type: "complete", Summary: &summary})
}

// sendError reports a request-level failure that has no frame number.
func (s *wsSink) sendError(err error) {
	s.send(extract.Event{Type: "error", Error: err.Error()})
}

func (s *wsSink) send(event extract.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal WebSocket event", "error", err)
		return
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if s.cancel != nil {
			s.cancel()
		}
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
