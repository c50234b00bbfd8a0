package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ExtractChannel reduces an image to a single grayscale channel. Luma uses
// the standard Rec.601 weights; Red/Green/Blue copy the raw channel, which
// preserves contrast on monochrome LED displays that luma would dilute.
func ExtractChannel(img image.Image, ch Channel) *image.Gray {
	src := imaging.Clone(img)
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := range b.Dy() {
		srcOff := y * src.Stride
		dstOff := y * out.Stride
		for x := range b.Dx() {
			p := src.Pix[srcOff+x*4 : srcOff+x*4+3 : srcOff+x*4+3]
			var v uint8
			switch ch {
			case Red:
				v = p[0]
			case Green:
				v = p[1]
			case Blue:
				v = p[2]
			default:
				v = uint8((299*uint32(p[0]) + 587*uint32(p[1]) + 114*uint32(p[2]) + 500) / 1000)
			}
			out.Pix[dstOff+x] = v
		}
	}
	return out
}

// MeanIntensity returns the average pixel value of a grayscale image.
// Empty images report full brightness so callers skip inversion.
func MeanIntensity(gray *image.Gray) float64 {
	b := gray.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 255
	}
	var sum uint64
	for y := range b.Dy() {
		off := y * gray.Stride
		for _, v := range gray.Pix[off : off+b.Dx()] {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(n)
}

// Invert flips the image in place so dark-background crops become
// dark-on-light.
func Invert(gray *image.Gray) {
	b := gray.Bounds()
	for y := range b.Dy() {
		off := y * gray.Stride
		row := gray.Pix[off : off+b.Dx()]
		for i, v := range row {
			row[i] = 255 - v
		}
	}
}

// ApplyGamma applies a power-law intensity curve in place via a lookup
// table. Exponents below 1 brighten dark images.
func ApplyGamma(gray *image.Gray, gamma float64) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Round(math.Pow(float64(i)/255.0, gamma) * 255.0))
	}
	b := gray.Bounds()
	for y := range b.Dy() {
		off := y * gray.Stride
		row := gray.Pix[off : off+b.Dx()]
		for i, v := range row {
			row[i] = lut[v]
		}
	}
}
