package video

import (
	"context"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticInfo() Info {
	return Info{FPS: 10, Width: 160, Height: 60, TotalFrames: 100, Duration: 10}
}

func TestSyntheticSourceInfo(t *testing.T) {
	src := NewSyntheticSource(syntheticInfo())

	info, err := src.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syntheticInfo(), info)
}

func TestSyntheticSourceRendersText(t *testing.T) {
	rect := image.Rect(20, 10, 120, 40)
	src := NewSyntheticSource(syntheticInfo(), SyntheticRegion{
		Rect: rect,
		Text: StaticText("42.5"),
	})

	frame, err := src.FrameAt(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 160, frame.Width)
	require.Equal(t, 60, frame.Height)
	require.Len(t, frame.Data, 160*60*3)

	img := frame.Image()

	// Background stays dark gray.
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.EqualValues(t, 24, r>>8)
	assert.EqualValues(t, 24, g>>8)
	assert.EqualValues(t, 24, b>>8)

	// The patch holds lit pixels where the digits are drawn.
	var lit int
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			_, g, _, _ := img.At(x, y).RGBA()
			if g>>8 > 200 {
				lit++
			}
		}
	}
	assert.Positive(t, lit, "digit strokes should light up pixels inside the patch")
}

func TestSyntheticSourceEmptyTextLeavesPanelBlank(t *testing.T) {
	rect := image.Rect(20, 10, 120, 40)
	src := NewSyntheticSource(syntheticInfo(), SyntheticRegion{
		Rect: rect,
		Text: StaticText(""),
	})

	frame, err := src.FrameAt(context.Background(), 0)
	require.NoError(t, err)

	img := frame.Image()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			_, g, _, _ := img.At(x, y).RGBA()
			require.LessOrEqual(t, int(g>>8), 12, "blank panel must hold no lit pixels")
		}
	}
}

func TestSyntheticSourceTimeVaryingText(t *testing.T) {
	src := NewSyntheticSource(syntheticInfo(), SyntheticRegion{
		Rect: image.Rect(20, 10, 120, 40),
		Text: func(ts float64) string { return fmt.Sprintf("%.1f", ts) },
	})

	first, err := src.FrameAt(context.Background(), 0)
	require.NoError(t, err)
	second, err := src.FrameAt(context.Background(), 2.5)
	require.NoError(t, err)

	assert.NotEqual(t, first.Data, second.Data, "different timestamps must render different digits")
}

func TestSyntheticSourceCanceledContext(t *testing.T) {
	src := NewSyntheticSource(syntheticInfo())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.FrameAt(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}
