package layers

import (
	"errors"
	"fmt"

	"losslab/tensor"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNoForwardPass is returned by Backward when no input has been cached.
var ErrNoForwardPass = errors.New("no forward pass")

// Linear is a fully-connected layer over row-major batches: [n, in] -> [n, out].
//
// W is [out, in] (row = output neuron) and B is [out]. Gradients from the last
// Backward are kept in GradW/GradB until Step applies them.
type Linear struct {
	W, B         *tensor.Tensor
	GradW, GradB *tensor.Tensor

	lastInput *mat.Dense
}

// NewLinear allocates a zero-initialised inDim→outDim layer.
func NewLinear(inDim, outDim int) *Linear {
	return &Linear{
		W:     tensor.New(outDim, inDim),
		B:     tensor.New(outDim),
		GradW: tensor.New(outDim, inDim),
		GradB: tensor.New(outDim),
	}
}

func (l *Linear) InDim() int  { return l.W.Shape[1] }
func (l *Linear) OutDim() int { return l.W.Shape[0] }

func (l *Linear) weights() *mat.Dense {
	return mat.NewDense(l.OutDim(), l.InDim(), l.W.Data)
}

// Apply computes x·Wᵀ + B without touching the backward cache.
func (l *Linear) Apply(x *mat.Dense) (*mat.Dense, error) {
	n, c := x.Dims()
	if c != l.InDim() {
		return nil, fmt.Errorf("%w: linear %s expects %d columns, got %d", tensor.ErrShapeMismatch, l.Tag(), l.InDim(), c)
	}
	out := mat.NewDense(n, l.OutDim(), nil)
	out.Mul(x, l.weights().T())
	for i := 0; i < n; i++ {
		floats.Add(out.RawRowView(i), l.B.Data)
	}
	return out, nil
}

// Forward is Apply plus caching x for the following Backward.
func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	out, err := l.Apply(x)
	if err != nil {
		return nil, err
	}
	l.lastInput = x
	return out, nil
}

// Gradients fills GradW = gradOutᵀ·x and GradB = Σ_rows gradOut from the cached input.
func (l *Linear) Gradients(gradOut *mat.Dense) error {
	if l.lastInput == nil {
		return ErrNoForwardPass
	}
	n, c := gradOut.Dims()
	if rows, _ := l.lastInput.Dims(); rows != n || c != l.OutDim() {
		return fmt.Errorf("%w: linear %s gradient is %dx%d, cached input has %d rows", tensor.ErrShapeMismatch, l.Tag(), n, c, rows)
	}
	gw := mat.NewDense(l.OutDim(), l.InDim(), l.GradW.Data)
	gw.Mul(gradOut.T(), l.lastInput)
	for j := 0; j < c; j++ {
		l.GradB.Data[j] = mat.Sum(gradOut.ColView(j))
	}
	return nil
}

// Backward computes the parameter gradients and returns gradOut·W, the
// gradient with respect to the layer input. W is read before any Step.
func (l *Linear) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if err := l.Gradients(gradOut); err != nil {
		return nil, err
	}
	n, _ := gradOut.Dims()
	gradIn := mat.NewDense(n, l.InDim(), nil)
	gradIn.Mul(gradOut, l.weights())
	return gradIn, nil
}

// Step applies p -= lr * clip(g, -bound, bound) to W and B and drops the cached input.
// GradW and GradB are left holding the clipped gradients.
func (l *Linear) Step(learningRate, bound float64) {
	l.GradW.Clip(-bound, bound)
	l.GradB.Clip(-bound, bound)
	floats.AddScaled(l.W.Data, -learningRate, l.GradW.Data)
	floats.AddScaled(l.B.Data, -learningRate, l.GradB.Data)
	l.lastInput = nil
}

func (l *Linear) Tag() string {
	return fmt.Sprintf("Linear_%d_%d", l.InDim(), l.OutDim())
}
