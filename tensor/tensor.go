package tensor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrShapeMismatch reports buffers whose lengths or shapes do not line up.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNumericDegenerate is returned when a normalisation source has no spread.
	ErrNumericDegenerate = errors.New("numeric degenerate: all values are equal")
)

// Tensor is a simple n-D array backed by a flat []float64.
type Tensor struct {
	Data  []float64 `json:"data"`
	Shape []int     `json:"shape"`
}

// New allocates a Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// FromData copies data into a tensor of the given shape.
func FromData(data []float64, shape ...int) (*Tensor, error) {
	t := New(shape...)
	if len(t.Data) != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShapeMismatch, shape, len(t.Data), len(data))
	}
	copy(t.Data, data)
	return t, nil
}

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.Data) }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

// Lerp returns a*x + b*(1-x). x=0 yields b, x=1 yields a.
func Lerp(a, b *Tensor, x float64) (*Tensor, error) {
	if !SameShape(a, b) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape, b.Shape)
	}
	out := New(a.Shape...)
	floats.ScaleTo(out.Data, 1-x, b.Data)
	floats.AddScaled(out.Data, x, a.Data)
	return out, nil
}

// Offset returns base + dx*x + dy*y.
func Offset(base, dx, dy *Tensor, x, y float64) (*Tensor, error) {
	if !SameShape(base, dx) || !SameShape(base, dy) {
		return nil, fmt.Errorf("%w: %v vs %v vs %v", ErrShapeMismatch, base.Shape, dx.Shape, dy.Shape)
	}
	out := base.Clone()
	floats.AddScaled(out.Data, x, dx.Data)
	floats.AddScaled(out.Data, y, dy.Data)
	return out, nil
}

// Clip bounds every element of t to [lo, hi] in place.
func (t *Tensor) Clip(lo, hi float64) {
	for i, v := range t.Data {
		t.Data[i] = math.Max(lo, math.Min(hi, v))
	}
}

// MinMaxNormalize maps data onto [0, 1]. Empty input or zero spread yields
// ErrNumericDegenerate instead of NaNs.
func MinMaxNormalize(data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, ErrNumericDegenerate
	}
	lo, hi := floats.Min(data), floats.Max(data)
	if hi == lo {
		return nil, ErrNumericDegenerate
	}
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = (v - lo) / (hi - lo)
	}
	return out, nil
}
