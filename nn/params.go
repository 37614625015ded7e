package nn

import (
	"fmt"

	"losslab/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// InitRange bounds the uniform distribution used for parameters and probe directions.
const InitRange = 0.5

// LayerSizes fixes the widths of the three layers for the lifetime of a Model.
type LayerSizes struct {
	Input  int `json:"input"`
	Hidden int `json:"hidden"`
	Output int `json:"output"`
}

// Validate requires every width to be positive.
func (s LayerSizes) Validate() error {
	if s.Input <= 0 || s.Hidden <= 0 || s.Output <= 0 {
		return fmt.Errorf("%w: layer sizes must be positive, got %d/%d/%d", ErrShapeMismatch, s.Input, s.Hidden, s.Output)
	}
	return nil
}

func (s LayerSizes) String() string {
	return fmt.Sprintf("%d-%d-%d", s.Input, s.Hidden, s.Output)
}

// Params is the model's parameter set. W1 is [hidden, input], B1 is [hidden],
// W2 is [output, hidden], B2 is [output], all row-major.
type Params struct {
	W1 *tensor.Tensor `json:"w1"`
	B1 *tensor.Tensor `json:"b1"`
	W2 *tensor.Tensor `json:"w2"`
	B2 *tensor.Tensor `json:"b2"`
}

// ParamNames lists the tensors in the order Tensors returns them.
var ParamNames = [4]string{"w1", "b1", "w2", "b2"}

// Tensors returns W1, B1, W2, B2.
func (p *Params) Tensors() [4]*tensor.Tensor {
	return [4]*tensor.Tensor{p.W1, p.B1, p.W2, p.B2}
}

// ParamsFrom is the inverse of Tensors.
func ParamsFrom(ts [4]*tensor.Tensor) *Params {
	return &Params{W1: ts[0], B1: ts[1], W2: ts[2], B2: ts[3]}
}

// Clone deep-copies every tensor.
func (p *Params) Clone() *Params {
	var out [4]*tensor.Tensor
	for i, t := range p.Tensors() {
		out[i] = t.Clone()
	}
	return ParamsFrom(out)
}

// Validate checks every tensor against the shapes implied by s.
func (p *Params) Validate(s LayerSizes) error {
	want := [4][]int{{s.Hidden, s.Input}, {s.Hidden}, {s.Output, s.Hidden}, {s.Output}}
	for i, t := range p.Tensors() {
		if t == nil {
			return fmt.Errorf("%w: %s is missing", ErrShapeMismatch, ParamNames[i])
		}
		ref := &tensor.Tensor{Shape: want[i]}
		if !tensor.SameShape(t, ref) || len(t.Data) != tensor.New(want[i]...).Len() {
			return fmt.Errorf("%w: %s has shape %v (len %d), want %v", ErrShapeMismatch, ParamNames[i], t.Shape, len(t.Data), want[i])
		}
	}
	return nil
}

// RandomParams draws every parameter uniformly from [-InitRange, InitRange].
func RandomParams(s LayerSizes, src rand.Source) *Params {
	dist := distuv.Uniform{Min: -InitRange, Max: InitRange, Src: src}
	fill := func(shape ...int) *tensor.Tensor {
		t := tensor.New(shape...)
		for i := range t.Data {
			t.Data[i] = dist.Rand()
		}
		return t
	}
	return &Params{
		W1: fill(s.Hidden, s.Input),
		B1: fill(s.Hidden),
		W2: fill(s.Output, s.Hidden),
		B2: fill(s.Output),
	}
}
