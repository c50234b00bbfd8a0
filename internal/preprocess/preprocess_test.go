package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func solidGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestExtractChannel(t *testing.T) {
	img := solidNRGBA(4, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	tests := []struct {
		name    string
		channel Channel
		want    uint8
	}{
		{"red", Red, 200},
		{"green", Green, 100},
		{"blue", Blue, 50},
		{"luma", Luma, 124}, // (299*200 + 587*100 + 114*50 + 500) / 1000
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gray := ExtractChannel(img, tt.channel)
			require.Equal(t, 4, gray.Bounds().Dx())
			require.Equal(t, 3, gray.Bounds().Dy())
			for _, v := range gray.Pix {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "luma", Luma.String())
	assert.Equal(t, "red", Red.String())
	assert.Equal(t, "green", Green.String())
	assert.Equal(t, "blue", Blue.String())
}

func TestMeanIntensity(t *testing.T) {
	assert.InDelta(t, 77.0, MeanIntensity(solidGray(10, 10, 77)), 1e-9)

	// Empty images report full brightness so inversion never triggers.
	assert.InDelta(t, 255.0, MeanIntensity(image.NewGray(image.Rect(0, 0, 0, 0))), 1e-9)

	half := solidGray(2, 1, 0)
	half.Pix[1] = 200
	assert.InDelta(t, 100.0, MeanIntensity(half), 1e-9)
}

func TestInvert(t *testing.T) {
	img := solidGray(3, 3, 40)
	img.Pix[4] = 250

	Invert(img)

	assert.Equal(t, uint8(215), img.Pix[0])
	assert.Equal(t, uint8(5), img.Pix[4])
}

func TestApplyGamma(t *testing.T) {
	img := solidGray(2, 2, 64)

	ApplyGamma(img, 0.5)

	// round((64/255)^0.5 * 255) = 128
	for _, v := range img.Pix {
		assert.Equal(t, uint8(128), v)
	}

	// Endpoints are fixed points of the curve.
	ends := solidGray(2, 1, 0)
	ends.Pix[1] = 255
	ApplyGamma(ends, 0.5)
	assert.Equal(t, uint8(0), ends.Pix[0])
	assert.Equal(t, uint8(255), ends.Pix[1])
}

func TestPadBorder(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{1, 2, 3, 4})

	out := PadBorder(img, 3, 255)

	require.Equal(t, 8, out.Bounds().Dx())
	require.Equal(t, 8, out.Bounds().Dy())
	assert.Equal(t, uint8(255), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(7, 7).Y)
	assert.Equal(t, uint8(255), out.GrayAt(4, 0).Y)
	assert.Equal(t, uint8(1), out.GrayAt(3, 3).Y)
	assert.Equal(t, uint8(2), out.GrayAt(4, 3).Y)
	assert.Equal(t, uint8(3), out.GrayAt(3, 4).Y)
	assert.Equal(t, uint8(4), out.GrayAt(4, 4).Y)
}

func TestPadBorderZeroIsNoop(t *testing.T) {
	img := solidGray(4, 4, 9)
	assert.Same(t, img, PadBorder(img, 0, 255))
}

func TestUpscaleLanczos(t *testing.T) {
	img := solidNRGBA(10, 5, color.NRGBA{R: 128, G: 128, B: 128, A: 255})

	out := UpscaleLanczos(img, 6)
	assert.Equal(t, 60, out.Bounds().Dx())
	assert.Equal(t, 30, out.Bounds().Dy())

	same := UpscaleLanczos(img, 1)
	assert.Equal(t, 10, same.Bounds().Dx())
	assert.Equal(t, 5, same.Bounds().Dy())
}

func TestRawGray(t *testing.T) {
	img := solidNRGBA(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	gray := RawGray(img)

	require.Equal(t, 3, gray.Bounds().Dx())
	for _, v := range gray.Pix {
		assert.Equal(t, uint8(18), v) // (299*10 + 587*20 + 114*30 + 500) / 1000
	}
}

func TestPrepareBinarize(t *testing.T) {
	// Light background with a dark block, like a digit on an LCD segment.
	img := solidNRGBA(20, 10, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	for y := 2; y < 8; y++ {
		for x := 5; x < 15; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}

	opts := DefaultOptions()
	out, err := Prepare(img, Luma, true, opts)
	require.NoError(t, err)

	// 20x10 upscaled by 6 then padded by 15 on each side.
	assert.Equal(t, 150, out.Bounds().Dx())
	assert.Equal(t, 90, out.Bounds().Dy())

	for _, v := range out.Pix {
		assert.True(t, v == 0 || v == 255, "binarized output must be black or white, got %d", v)
	}
	assert.Equal(t, uint8(255), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(149, 89).Y)
}

func TestPrepareEnhancedInvertsDarkBackground(t *testing.T) {
	img := solidNRGBA(16, 16, color.NRGBA{R: 30, G: 30, B: 30, A: 255})

	out, err := Prepare(img, Luma, false, DefaultOptions())
	require.NoError(t, err)

	// Mean 30 is below the inversion threshold, so the interior must come
	// out bright.
	var sum, n int
	b := out.Bounds()
	for y := 20; y < b.Dy()-20; y++ {
		for x := 20; x < b.Dx()-20; x++ {
			sum += int(out.GrayAt(x, y).Y)
			n++
		}
	}
	require.Positive(t, n)
	assert.Greater(t, sum/n, 128)
}

func TestPrepareRejectsBadInput(t *testing.T) {
	_, err := Prepare(nil, Luma, true, DefaultOptions())
	require.Error(t, err)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "prepare", opErr.Op)

	_, err = Prepare(image.NewNRGBA(image.Rect(0, 0, 0, 0)), Luma, true, DefaultOptions())
	require.Error(t, err)
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(solidGray(4, 4, 128))
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}
