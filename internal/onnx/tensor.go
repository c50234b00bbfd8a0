// Package onnx holds the thin ONNX Runtime plumbing shared by the neural
// recognizer: environment/library bootstrap and float32 tensor helpers.
package onnx

import (
	"errors"
	"fmt"
)

// Tensor is a float32 tensor prepared for ONNX input. Data is row-major,
// NCHW for images.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor builds a single-image tensor with shape [1, C, H, W].
// data must be length C*H*W in NCHW order.
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if expected := c * h * w; len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	return Tensor{
		Data:  data,
		Shape: []int64{1, int64(c), int64(h), int64(w)},
	}, nil
}

// ValidateNCHW ensures a shape is [N, C, H, W] with positive dimensions.
func ValidateNCHW(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// Verify checks that the data length matches the NCHW shape.
func (t Tensor) Verify() error {
	if err := ValidateNCHW(t.Shape); err != nil {
		return err
	}
	expected := int(t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3])
	if len(t.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}

// Stats summarizes tensor values for debug logging.
type Stats struct {
	Min  float32
	Max  float32
	Mean float32
}

// ComputeStats scans the data once; zero Stats for empty input.
func ComputeStats(data []float32) Stats {
	if len(data) == 0 {
		return Stats{}
	}
	s := Stats{Min: data[0], Max: data[0]}
	var sum float64
	for _, v := range data {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += float64(v)
	}
	s.Mean = float32(sum / float64(len(data)))
	return s
}
