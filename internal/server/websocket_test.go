package server

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/recognizer"
	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/video"
)

// stubSource serves black frames without touching ffmpeg.
type stubSource struct {
	info video.Info
}

func newStubSource() *stubSource {
	return &stubSource{info: video.Info{
		FPS:         10,
		Width:       64,
		Height:      24,
		TotalFrames: 1000,
		Duration:    100,
	}}
}

func (s *stubSource) Info(ctx context.Context) (video.Info, error) {
	return s.info, nil
}

func (s *stubSource) FrameAt(ctx context.Context, timestamp float64) (*video.Frame, error) {
	return &video.Frame{
		Data:   make([]byte, s.info.Width*s.info.Height*3),
		Width:  s.info.Width,
		Height: s.info.Height,
	}, nil
}

// blockingSource parks FrameAt until the context is canceled, to observe
// that a client disconnect reaches the extraction loop.
type blockingSource struct {
	stubSource
	unblocked chan struct{}
	once      sync.Once
}

func (b *blockingSource) FrameAt(ctx context.Context, timestamp float64) (*video.Frame, error) {
	<-ctx.Done()
	b.once.Do(func() { close(b.unblocked) })
	return nil, ctx.Err()
}

// stubBackend answers every crop with a fixed candidate.
type stubBackend struct {
	name string
	text string
	conf float64
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Recognize(image.Image) (recognizer.Candidate, bool) {
	return recognizer.Candidate{Engine: s.name, Text: s.text, Confidence: s.conf}, true
}

func stubEngine() *fusion.Engine {
	return &fusion.Engine{
		Priority:      []fusion.Recognizer{&stubBackend{name: "stub", text: "42", conf: 0.99}},
		FastThreshold: fusion.DefaultFastThreshold,
	}
}

func newTestServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dialExtract(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/extract"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func displayProject() regions.Config {
	display := regions.Region{Name: "display", X: 2, Y: 2, Width: 8, Height: 8}
	return regions.Config{
		Keyframes: []regions.Keyframe{
			{Timestamp: 0, Regions: []regions.Region{display}},
			{Timestamp: 0.5, Regions: []regions.Region{display}},
		},
	}
}

// readEvents drains the connection until the server closes it.
func readEvents(t *testing.T, conn *websocket.Conn) []extract.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var events []extract.Event
	for {
		var ev extract.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return events
		}
		events = append(events, ev)
	}
}

func TestExtractWebSocketStreamsRun(t *testing.T) {
	srv := &Server{
		engine:  stubEngine(),
		limiter: NewExtractionLimiter(2),
		newSource: func(path string) (video.FrameSource, error) {
			return newStubSource(), nil
		},
		timeoutSec: 5,
	}
	ts := newTestServer(t, srv)
	conn := dialExtract(t, ts)

	require.NoError(t, conn.WriteJSON(ExtractRequest{
		Project:   displayProject(),
		VideoPath: "meter.mp4",
	}))

	events := readEvents(t, conn)
	require.NotEmpty(t, events)

	// 0.5s at 10 fps spans frames 0..5.
	require.Equal(t, "start", events[0].Type)
	assert.EqualValues(t, 6, events[0].Total)

	var frames int
	for _, ev := range events[1 : len(events)-1] {
		require.Equal(t, "frame", ev.Type)
		require.NotNil(t, ev.Frame)
		require.Len(t, ev.Frame.Readings, 1)
		assert.Equal(t, "display", ev.Frame.Readings[0].RegionName)
		assert.Equal(t, "42", ev.Frame.Readings[0].Value)
		assert.Equal(t, "stub", ev.Frame.Readings[0].Source)
		frames++
	}
	assert.Equal(t, 6, frames)

	last := events[len(events)-1]
	require.Equal(t, "complete", last.Type)
	require.NotNil(t, last.Summary)
	assert.Equal(t, 6, last.Summary.Measurements)
	assert.False(t, last.Summary.Canceled)

	assert.Equal(t, 0, srv.limiter.Active(), "slot released after the run")
}

func TestExtractWebSocketRejectsMalformedRequest(t *testing.T) {
	srv := &Server{
		engine:     stubEngine(),
		limiter:    NewExtractionLimiter(2),
		timeoutSec: 5,
	}
	ts := newTestServer(t, srv)
	conn := dialExtract(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	events := readEvents(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Contains(t, events[0].Error, "parse request")
}

func TestExtractWebSocketRequiresVideoPath(t *testing.T) {
	srv := &Server{
		engine:     stubEngine(),
		limiter:    NewExtractionLimiter(2),
		timeoutSec: 5,
	}
	ts := newTestServer(t, srv)
	conn := dialExtract(t, ts)

	require.NoError(t, conn.WriteJSON(ExtractRequest{Project: displayProject()}))

	events := readEvents(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Contains(t, events[0].Error, "video_path is required")
}

func TestExtractWebSocketWithoutEngine(t *testing.T) {
	srv := &Server{
		limiter:    NewExtractionLimiter(2),
		timeoutSec: 5,
	}
	ts := newTestServer(t, srv)
	conn := dialExtract(t, ts)

	require.NoError(t, conn.WriteJSON(ExtractRequest{
		Project:   displayProject(),
		VideoPath: "meter.mp4",
	}))

	events := readEvents(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Contains(t, events[0].Error, "extraction engine not initialized")
}

func TestExtractWebSocketBusy(t *testing.T) {
	srv := &Server{
		engine:  stubEngine(),
		limiter: NewExtractionLimiter(1),
		newSource: func(path string) (video.FrameSource, error) {
			return newStubSource(), nil
		},
		timeoutSec: 5,
	}
	require.NoError(t, srv.limiter.Acquire())
	defer srv.limiter.Release()

	ts := newTestServer(t, srv)
	conn := dialExtract(t, ts)

	require.NoError(t, conn.WriteJSON(ExtractRequest{
		Project:   displayProject(),
		VideoPath: "meter.mp4",
	}))

	events := readEvents(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Contains(t, events[0].Error, "server busy")
}

func TestExtractWebSocketDisconnectCancelsRun(t *testing.T) {
	blocking := &blockingSource{
		stubSource: *newStubSource(),
		unblocked:  make(chan struct{}),
	}
	srv := &Server{
		engine:  stubEngine(),
		limiter: NewExtractionLimiter(1),
		newSource: func(path string) (video.FrameSource, error) {
			return blocking, nil
		},
		timeoutSec: 5,
	}
	ts := newTestServer(t, srv)
	conn := dialExtract(t, ts)

	require.NoError(t, conn.WriteJSON(ExtractRequest{
		Project:   displayProject(),
		VideoPath: "meter.mp4",
	}))

	// Wait for the run to start, then drop the connection.
	var ev extract.Event
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "start", ev.Type)
	require.NoError(t, conn.Close())

	select {
	case <-blocking.unblocked:
	case <-time.After(5 * time.Second):
		t.Fatal("extraction context was not canceled after disconnect")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name       string
		corsOrigin string
		origin     string
		allowed    bool
	}{
		{name: "wildcard allows any origin", corsOrigin: "*", origin: "http://example.com", allowed: true},
		{name: "empty config allows any origin", corsOrigin: "", origin: "http://example.com", allowed: true},
		{name: "matching origin", corsOrigin: "https://app.example.com", origin: "https://app.example.com", allowed: true},
		{name: "mismatched origin", corsOrigin: "https://app.example.com", origin: "https://evil.example.com", allowed: false},
		{name: "non-browser client without origin", corsOrigin: "https://app.example.com", origin: "", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &Server{corsOrigin: tt.corsOrigin}
			r := &http.Request{Header: http.Header{}}
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.allowed, srv.checkOrigin(r))
		})
	}
}
