// Package frame holds detector frames: two-dimensional pixel arrays
// with optional acquisition metadata, plus the TIFF encode/decode paths
// used for flat fields and exported images.
package frame

import (
	"fmt"
	"math"
)

// Frame is a single detector image. Data is stored row-major with
// Width*Height float64 values; Header carries format-specific metadata
// such as EDF header fields.
type Frame struct {
	Width  int
	Height int
	Data   []float64
	Header map[string]string
}

// New allocates a zero-filled frame.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// At returns the pixel value at column x, row y.
func (f *Frame) At(x, y int) float64 {
	return f.Data[y*f.Width+x]
}

// Set assigns the pixel value at column x, row y.
func (f *Frame) Set(x, y int, v float64) {
	f.Data[y*f.Width+x] = v
}

// Len returns the number of pixels.
func (f *Frame) Len() int {
	return f.Width * f.Height
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Width: f.Width, Height: f.Height, Data: make([]float64, len(f.Data))}
	copy(out.Data, f.Data)
	if f.Header != nil {
		out.Header = make(map[string]string, len(f.Header))
		for k, v := range f.Header {
			out.Header[k] = v
		}
	}
	return out
}

// SetAbove replaces every pixel strictly greater than threshold with
// the replacement value. It returns the number of pixels replaced.
func (f *Frame) SetAbove(threshold, replacement float64) int {
	n := 0
	for i, v := range f.Data {
		if v > threshold {
			f.Data[i] = replacement
			n++
		}
	}
	return n
}

// Average computes the mean of a stack of equally sized frames.
func Average(stack []*Frame) (*Frame, error) {
	if len(stack) == 0 {
		return nil, fmt.Errorf("empty frame stack")
	}
	first := stack[0]
	out := New(first.Width, first.Height)
	for i, fr := range stack {
		if fr.Width != first.Width || fr.Height != first.Height {
			return nil, fmt.Errorf("frame %d is %dx%d, want %dx%d",
				i, fr.Width, fr.Height, first.Width, first.Height)
		}
		for j, v := range fr.Data {
			out.Data[j] += v
		}
	}
	scale := 1 / float64(len(stack))
	for j := range out.Data {
		out.Data[j] *= scale
	}
	return out, nil
}

// MinMax returns the smallest and largest finite pixel values. Both are
// NaN when the frame holds no finite pixels.
func (f *Frame) MinMax() (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for _, v := range f.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	return lo, hi
}
