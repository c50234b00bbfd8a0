package video

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// SyntheticRegion is one display patch drawn on every synthetic frame.
type SyntheticRegion struct {
	// Rect places the patch in frame coordinates.
	Rect image.Rectangle

	// Text returns the string shown at a given timestamp.
	Text func(timestamp float64) string
}

// StaticText returns a Text func showing the same string on every frame.
func StaticText(s string) func(float64) string {
	return func(float64) string { return s }
}

// SyntheticSource renders frames in memory: a dark frame with one lit
// display patch per region, digits drawn LCD-style. It stands in for ffmpeg
// wherever tests need deterministic pixels.
type SyntheticSource struct {
	info    Info
	regions []SyntheticRegion
}

// NewSyntheticSource creates a source serving frames at info.FPS with the
// given display patches.
func NewSyntheticSource(info Info, regions ...SyntheticRegion) *SyntheticSource {
	return &SyntheticSource{info: info, regions: regions}
}

func (s *SyntheticSource) Info(ctx context.Context) (Info, error) {
	return s.info, nil
}

// FrameAt renders the frame at the given timestamp.
func (s *SyntheticSource) FrameAt(ctx context.Context, timestamp float64) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{24, 24, 24, 255}}, image.Point{}, draw.Src)

	for _, region := range s.regions {
		drawDisplay(img, region, timestamp)
	}

	return rgbaToFrame(img), nil
}

// drawDisplay fills one display patch and centers its text on it: near-black
// panel, bright green digits.
func drawDisplay(img *image.RGBA, region SyntheticRegion, timestamp float64) {
	draw.Draw(img, region.Rect, &image.Uniform{color.RGBA{8, 12, 8, 255}}, image.Point{}, draw.Src)

	text := region.Text(timestamp)
	if text == "" {
		return
	}

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	x := region.Rect.Min.X + (region.Rect.Dx()-width)/2
	y := region.Rect.Min.Y + (region.Rect.Dy()+ascent)/2

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{color.RGBA{96, 255, 128, 255}},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// rgbaToFrame packs an RGBA image into the raw RGB24 layout ffmpeg emits.
func rgbaToFrame(img *image.RGBA) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]byte, w*h*3)
	for y := range h {
		src := y * img.Stride
		dst := y * w * 3
		for x := range w {
			s := src + x*4
			d := dst + x*3
			data[d] = img.Pix[s]
			data[d+1] = img.Pix[s+1]
			data[d+2] = img.Pix[s+2]
		}
	}
	return &Frame{Data: data, Width: w, Height: h}
}
