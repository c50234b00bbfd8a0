package preprocess

import (
	"image"
	"math"
)

// CLAHE applies contrast-limited adaptive histogram equalization. The image
// is divided into tiles; each tile gets a clipped, renormalized histogram
// mapping, and output pixels blend the four surrounding tile mappings
// bilinearly to avoid visible tile seams.
func CLAHE(gray *image.Gray, tileSize int, clipFactor float64) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || tileSize <= 0 {
		return gray
	}

	tilesX := (w + tileSize - 1) / tileSize
	tilesY := (h + tileSize - 1) / tileSize
	mappings := make([][256]uint8, tilesX*tilesY)

	for ty := range tilesY {
		for tx := range tilesX {
			x0 := tx * tileSize
			y0 := ty * tileSize
			x1 := min((tx+1)*tileSize, w)
			y1 := min((ty+1)*tileSize, h)

			var hist [256]uint64
			for y := y0; y < y1; y++ {
				off := y * gray.Stride
				for _, v := range gray.Pix[off+x0 : off+x1] {
					hist[v]++
				}
			}

			area := uint64((x1 - x0) * (y1 - y0))

			// Clip the histogram and spread the excess evenly; the first
			// excess%256 bins absorb the remainder.
			clip := uint64(math.Max(float64(area)/256.0*clipFactor, 1.0))
			var excess uint64
			for i, hv := range hist {
				if hv > clip {
					excess += hv - clip
					hist[i] = clip
				}
			}
			perBin := excess / 256
			leftover := excess % 256
			for i := range hist {
				hist[i] += perBin
				if uint64(i) < leftover {
					hist[i]++
				}
			}

			m := &mappings[ty*tilesX+tx]
			var cdf uint64
			for i, hv := range hist {
				cdf += hv
				m[i] = uint8(min(cdf*255/area, 255))
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	half := float32(tileSize) / 2
	for y := range h {
		tyf := (float32(y) - half) / float32(tileSize)
		ty0 := min(int(maxf32(floorf32(tyf), 0)), tilesY-1)
		ty1 := min(ty0+1, tilesY-1)
		fy := clampf32(tyf-float32(ty0), 0, 1)

		srcOff := y * gray.Stride
		dstOff := y * out.Stride
		for x := range w {
			txf := (float32(x) - half) / float32(tileSize)
			tx0 := min(int(maxf32(floorf32(txf), 0)), tilesX-1)
			tx1 := min(tx0+1, tilesX-1)
			fx := clampf32(txf-float32(tx0), 0, 1)

			v := gray.Pix[srcOff+x]
			m00 := float32(mappings[ty0*tilesX+tx0][v])
			m10 := float32(mappings[ty0*tilesX+tx1][v])
			m01 := float32(mappings[ty1*tilesX+tx0][v])
			m11 := float32(mappings[ty1*tilesX+tx1][v])

			top := m00 + fx*(m10-m00)
			bottom := m01 + fx*(m11-m01)
			out.Pix[dstOff+x] = uint8(math.Round(float64(top + fy*(bottom-top))))
		}
	}
	return out
}

func floorf32(v float32) float32 { return float32(math.Floor(float64(v))) }

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clampf32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
