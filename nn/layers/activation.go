package layers

import (
	"fmt"

	"losslab/tensor"

	"gonum.org/v1/gonum/mat"
)

// Relu is max(0, v).
func Relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// ReluPrime is 1 for v > 0 and 0 otherwise (including v == 0).
func ReluPrime(v float64) float64 {
	if v > 0 {
		return 1
	}
	return 0
}

// ReLU is an elementwise rectifier layer; it caches its pre-activation input
// for Backward.
type ReLU struct {
	lastInput *mat.Dense
}

// Apply rectifies z without touching the backward cache.
func (a *ReLU) Apply(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return Relu(v) }, z)
	return out
}

// Forward is Apply plus caching z.
func (a *ReLU) Forward(z *mat.Dense) *mat.Dense {
	a.lastInput = z
	return a.Apply(z)
}

// Backward returns gradOut ⊙ relu'(z) for the cached z.
func (a *ReLU) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if a.lastInput == nil {
		return nil, ErrNoForwardPass
	}
	r, c := gradOut.Dims()
	if zr, zc := a.lastInput.Dims(); zr != r || zc != c {
		return nil, fmt.Errorf("%w: relu gradient is %dx%d, cached input is %dx%d", tensor.ErrShapeMismatch, r, c, zr, zc)
	}
	z := a.lastInput
	gradIn := mat.NewDense(r, c, nil)
	gradIn.Apply(func(i, j int, v float64) float64 { return v * ReluPrime(z.At(i, j)) }, gradOut)
	return gradIn, nil
}

// Reset drops the cached input.
func (a *ReLU) Reset() { a.lastInput = nil }

func (a *ReLU) Tag() string { return "ReLU" }
