package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DisplayConfig holds configuration for generating synthetic display crops.
type DisplayConfig struct {
	Text       string
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	Noise      float64 // fraction of pixels flipped, 0 disables
}

// DefaultDisplayConfig returns an LCD-style default: bright green digits on
// a near-black panel, sized like a typical instrument readout crop.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Text:       "42.5",
		Width:      120,
		Height:     40,
		Background: color.RGBA{10, 14, 10, 255},
		Foreground: color.RGBA{120, 255, 140, 255},
	}
}

// RenderDisplay creates a synthetic display crop with the given
// configuration, text centered.
func RenderDisplay(config DisplayConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	if config.Text != "" {
		face := basicfont.Face7x13
		width := font.MeasureString(face, config.Text).Ceil()
		ascent := face.Metrics().Ascent.Ceil()

		drawer := &font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{config.Foreground},
			Face: face,
			Dot:  fixed.P((config.Width-width)/2, (config.Height+ascent)/2),
		}
		drawer.DrawString(config.Text)
	}

	if config.Noise > 0 {
		return AddNoise(img, config.Noise)
	}
	return img
}

// AddNoise flips a deterministic sprinkling of pixels to simulate sensor
// noise and compression artifacts.
func AddNoise(img *image.RGBA, noiseLevel float64) *image.RGBA {
	bounds := img.Bounds()
	noisy := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()

			if math.Mod(float64(x*y), 1.0/noiseLevel) < 1.0 && (x+y)%2 == 0 {
				r = 65535 - r
				g = 65535 - g
				b = 65535 - b
			}

			//nolint:gosec // G115: values stay within 16 bits
			noisy.Set(x, y, color.RGBA64{uint16(r), uint16(g), uint16(b), uint16(a)})
		}
	}

	return noisy
}

// SavePNG saves an image to the specified path, creating directories.
func SavePNG(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))

	file, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "failed to encode PNG image")
}

// LoadPNG loads an image from the specified path.
func LoadPNG(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: test file reading with controlled path
	require.NoError(t, err, "failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, err := png.Decode(file)
	require.NoError(t, err, "failed to decode image")

	return img
}
