// Package video probes instrument videos and decodes frames at arbitrary
// timestamps. Decoding shells out to ffmpeg, which handles every container
// and codec the instruments' recorders produce without linking libav.
package video

import (
	"context"
	"image"
)

// Info describes the probed video stream.
type Info struct {
	FPS         float64 `json:"fps"          yaml:"fps"`
	Width       int     `json:"width"        yaml:"width"`
	Height      int     `json:"height"       yaml:"height"`
	TotalFrames int64   `json:"total_frames" yaml:"total_frames"`
	Duration    float64 `json:"duration"     yaml:"duration"`
}

// Frame is one decoded frame in packed RGB24.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// Image converts the frame to NRGBA for cropping and preprocessing.
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := range f.Height {
		src := y * f.Width * 3
		dst := y * img.Stride
		for x := range f.Width {
			s := src + x*3
			d := dst + x*4
			img.Pix[d] = f.Data[s]
			img.Pix[d+1] = f.Data[s+1]
			img.Pix[d+2] = f.Data[s+2]
			img.Pix[d+3] = 255
		}
	}
	return img
}

// FrameSource decodes frames of one video.
type FrameSource interface {
	Info(ctx context.Context) (Info, error)
	FrameAt(ctx context.Context, timestamp float64) (*Frame, error)
}
