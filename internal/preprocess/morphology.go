package preprocess

import "image"

// Open3x3 performs a morphological opening (erosion then dilation) with a
// 3x3 structuring element. On binarized crops this removes isolated noise
// specks without thinning digit strokes.
func Open3x3(gray *image.Gray) *image.Gray {
	return Dilate3x3(Erode3x3(gray))
}

// Erode3x3 replaces each pixel with the minimum of its 3x3 neighborhood.
func Erode3x3(gray *image.Gray) *image.Gray {
	return morph3x3(gray, func(acc, v uint8) uint8 {
		if v < acc {
			return v
		}
		return acc
	}, 255)
}

// Dilate3x3 replaces each pixel with the maximum of its 3x3 neighborhood.
func Dilate3x3(gray *image.Gray) *image.Gray {
	return morph3x3(gray, func(acc, v uint8) uint8 {
		if v > acc {
			return v
		}
		return acc
	}, 0)
}

func morph3x3(gray *image.Gray, fold func(acc, v uint8) uint8, seed uint8) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := range h {
		ny0 := max(y-1, 0)
		ny1 := min(y+1, h-1)
		dstOff := y * out.Stride
		for x := range w {
			nx0 := max(x-1, 0)
			nx1 := min(x+1, w-1)
			acc := seed
			for ny := ny0; ny <= ny1; ny++ {
				off := ny * gray.Stride
				for nx := nx0; nx <= nx1; nx++ {
					acc = fold(acc, gray.Pix[off+nx])
				}
			}
			out.Pix[dstOff+x] = acc
		}
	}
	return out
}
