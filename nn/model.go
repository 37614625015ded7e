package nn

import (
	"fmt"

	"losslab/nn/layers"
	"losslab/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// ClipBound is the fixed per-scalar gradient clip applied by Backward.
const ClipBound = 1.0

// DefaultLearningRate matches the interactive trainer's initial setting.
const DefaultLearningRate = 0.5

var (
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrNoForwardPass = layers.ErrNoForwardPass
)

// Model is the fixed input → ReLU hidden → softmax output classifier.
//
// Forward caches the batch state needed by the following Backward; Predict and
// Evaluate run the same computation without touching that cache.
type Model struct {
	sizes        LayerSizes
	learningRate float64

	hidden *layers.Linear
	act    layers.ReLU
	output *layers.Linear

	// last holds z2/a2 from the most recent Forward; x, z1, a1 are cached by the layers.
	last *forwardPass
}

type forwardPass struct {
	n      int
	z2, a2 *mat.Dense
}

// Activations are the hidden and output activations for a batch, row-major.
type Activations struct {
	A1 []float64
	A2 []float64
}

// NewModel draws initial parameters from src.
func NewModel(sizes LayerSizes, src rand.Source) (*Model, error) {
	if err := sizes.Validate(); err != nil {
		return nil, err
	}
	return NewModelWithParams(sizes, RandomParams(sizes, src))
}

// NewModelWithParams builds a model around p. p is adopted, not copied.
func NewModelWithParams(sizes LayerSizes, p *Params) (*Model, error) {
	if err := sizes.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(sizes); err != nil {
		return nil, err
	}
	m := &Model{
		sizes:        sizes,
		learningRate: DefaultLearningRate,
		hidden:       layers.NewLinear(sizes.Input, sizes.Hidden),
		output:       layers.NewLinear(sizes.Hidden, sizes.Output),
	}
	m.install(p)
	return m, nil
}

func (m *Model) Sizes() LayerSizes { return m.sizes }

func (m *Model) LearningRate() float64 { return m.learningRate }

// SetLearningRate takes effect on the next Backward.
func (m *Model) SetLearningRate(lr float64) { m.learningRate = lr }

// Params returns the live parameter tensors. Use Clone for a snapshot.
func (m *Model) Params() *Params {
	return &Params{W1: m.hidden.W, B1: m.hidden.B, W2: m.output.W, B2: m.output.B}
}

func (m *Model) install(p *Params) {
	m.hidden.W, m.hidden.B = p.W1, p.B1
	m.output.W, m.output.B = p.W2, p.B2
}

// WithParams installs p, runs fn, and restores the previous parameters before
// returning, even if fn panics. The forward cache is left as it was.
func (m *Model) WithParams(p *Params, fn func() error) error {
	if err := p.Validate(m.sizes); err != nil {
		return err
	}
	prev := m.Params()
	m.install(p)
	defer m.install(prev)
	return fn()
}

func (m *Model) batch(x []float64) (*mat.Dense, error) {
	if len(x) == 0 || len(x)%m.sizes.Input != 0 {
		return nil, fmt.Errorf("%w: %d features is not a positive multiple of input width %d", ErrShapeMismatch, len(x), m.sizes.Input)
	}
	return mat.NewDense(len(x)/m.sizes.Input, m.sizes.Input, x), nil
}

// Forward runs the batch and caches it for Backward. It returns the softmax
// outputs, numSamples*output values.
func (m *Model) Forward(x []float64) ([]float64, error) {
	xs, err := m.batch(x)
	if err != nil {
		return nil, err
	}
	z1, err := m.hidden.Forward(xs)
	if err != nil {
		return nil, err
	}
	a1 := m.act.Forward(z1)
	z2, err := m.output.Forward(a1)
	if err != nil {
		return nil, err
	}
	a2 := SoftmaxRows(z2)
	n, _ := xs.Dims()
	m.last = &forwardPass{n: n, z2: z2, a2: a2}
	return a2.RawMatrix().Data, nil
}

// Predict runs the batch without caching and returns both activation layers.
func (m *Model) Predict(x []float64) (Activations, error) {
	xs, err := m.batch(x)
	if err != nil {
		return Activations{}, err
	}
	z1, err := m.hidden.Apply(xs)
	if err != nil {
		return Activations{}, err
	}
	a1 := m.act.Apply(z1)
	z2, err := m.output.Apply(a1)
	if err != nil {
		return Activations{}, err
	}
	a2 := SoftmaxRows(z2)
	return Activations{A1: a1.RawMatrix().Data, A2: a2.RawMatrix().Data}, nil
}

// Evaluate returns the cross-entropy loss and accuracy of the current
// parameters on (x, y) without touching the forward cache.
func (m *Model) Evaluate(x, y []float64) (loss, accuracy float64, err error) {
	act, err := m.Predict(x)
	if err != nil {
		return 0, 0, err
	}
	if len(y) != len(act.A2) {
		return 0, 0, fmt.Errorf("%w: %d targets for %d outputs", ErrShapeMismatch, len(y), len(act.A2))
	}
	return CrossEntropy(y, act.A2, m.sizes.Output), Accuracy(y, act.A2, m.sizes.Output), nil
}

// Backward back-propagates the cached forward pass against one-hot targets y
// and updates every parameter by -lr*clip(g, -1, 1). All gradients are taken
// from the pre-update parameters. The cache is consumed.
func (m *Model) Backward(y []float64) error {
	if m.last == nil {
		return ErrNoForwardPass
	}
	out := m.sizes.Output
	if len(y)%out != 0 || len(y)/out != m.last.n {
		return fmt.Errorf("%w: %d targets do not match the %d-sample forward pass", ErrShapeMismatch, len(y), m.last.n)
	}
	n := m.last.n

	// dZ2 = (a2 - y) / n
	dz2 := mat.NewDense(n, out, nil)
	dz2.Sub(m.last.a2, mat.NewDense(n, out, y))
	dz2.Scale(1/float64(n), dz2)

	// dW2 = dZ2ᵀ·a1, dB2 = colsum(dZ2), dA1 = dZ2·W2
	da1, err := m.output.Backward(dz2)
	if err != nil {
		return err
	}
	// dZ1 = dA1 ⊙ relu'(z1)
	dz1, err := m.act.Backward(da1)
	if err != nil {
		return err
	}
	// dW1 = dZ1ᵀ·x, dB1 = colsum(dZ1)
	if err := m.hidden.Gradients(dz1); err != nil {
		return err
	}

	m.hidden.Step(m.learningRate, ClipBound)
	m.output.Step(m.learningRate, ClipBound)
	m.act.Reset()
	m.last = nil
	return nil
}
