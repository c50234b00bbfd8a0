package preprocess

import (
	"bytes"
	"image"
	"image/png"
)

// EncodePNG serializes an image to PNG bytes. Recognizers feed these bytes
// to the OCR engine and keep them as the debug preview, so the preview is
// always exactly what the engine saw.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &OpError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
