package preprocess

import (
	"image"
	"math"

	"github.com/MeKo-Tech/readout/internal/mempool"
)

// Sauvola binarizes a grayscale image with locally adaptive thresholds.
// Each pixel compares against T = mean * (1 + k*(stddev/r - 1)) computed
// over a window centered on it, which copes with the uneven illumination
// and glare typical of camera-captured displays. Local statistics come
// from integral images, so the cost is independent of the window size.
func Sauvola(gray *image.Gray, window int, k, r float64) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gray
	}
	half := window / 2
	stride := w + 1

	// Integral sums stay exact in float64 up to 2^53, far beyond any
	// realistic crop size.
	integral := mempool.GetFloat64((h + 1) * stride)
	integralSq := mempool.GetFloat64((h + 1) * stride)
	defer mempool.PutFloat64(integral)
	defer mempool.PutFloat64(integralSq)

	for y := range h {
		rowOff := y * gray.Stride
		for x := range w {
			v := float64(gray.Pix[rowOff+x])
			i := (y+1)*stride + (x + 1)
			integral[i] = v + integral[i-stride] + integral[i-1] - integral[i-stride-1]
			integralSq[i] = v*v + integralSq[i-stride] + integralSq[i-1] - integralSq[i-stride-1]
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		y0 := max(y-half, 0)
		y1 := min(y+half+1, h)
		srcOff := y * gray.Stride
		dstOff := y * out.Stride
		for x := range w {
			x0 := max(x-half, 0)
			x1 := min(x+half+1, w)
			count := float64((x1 - x0) * (y1 - y0))

			sum := integral[y1*stride+x1] - integral[y0*stride+x1] -
				integral[y1*stride+x0] + integral[y0*stride+x0]
			sumSq := integralSq[y1*stride+x1] - integralSq[y0*stride+x1] -
				integralSq[y1*stride+x0] + integralSq[y0*stride+x0]

			mean := sum / count
			variance := math.Max(sumSq/count-mean*mean, 0)
			threshold := mean * (1.0 + k*(math.Sqrt(variance)/r-1.0))

			if float64(gray.Pix[srcOff+x]) >= threshold {
				out.Pix[dstOff+x] = 255
			}
		}
	}
	return out
}
