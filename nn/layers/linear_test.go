package layers

import (
	"testing"

	"losslab/tensor"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func toyLinear() *Linear {
	l := NewLinear(3, 2)
	copy(l.W.Data, []float64{1, 2, 3, 4, 5, 6})
	copy(l.B.Data, []float64{0.5, -0.5})
	return l
}

func TestLinearApply(t *testing.T) {
	l := toyLinear()
	x := mat.NewDense(2, 3, []float64{1, 0, 0, 1, 1, 1})
	y, err := l.Apply(x)
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, 3.5, 6.5, 14.5}, y.RawMatrix().Data)

	_, err = l.Apply(mat.NewDense(1, 2, []float64{1, 1}))
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestLinearBackward(t *testing.T) {
	l := toyLinear()
	x := mat.NewDense(2, 3, []float64{1, 0, 0, 1, 1, 1})
	_, err := l.Forward(x)
	require.NoError(t, err)

	g := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
	gradIn, err := l.Backward(g)
	require.NoError(t, err)

	// GradW = gᵀ·x
	require.Equal(t, []float64{1, 0, 0, 2, 2, 2}, l.GradW.Data)
	require.Equal(t, []float64{1, 2}, l.GradB.Data)
	// gradIn = g·W
	require.Equal(t, []float64{1, 2, 3, 8, 10, 12}, gradIn.RawMatrix().Data)
}

func TestLinearBackwardWithoutForward(t *testing.T) {
	l := toyLinear()
	_, err := l.Backward(mat.NewDense(1, 2, nil))
	require.ErrorIs(t, err, ErrNoForwardPass)
}

func TestLinearBackwardRowMismatch(t *testing.T) {
	l := toyLinear()
	_, err := l.Forward(mat.NewDense(2, 3, nil))
	require.NoError(t, err)
	err = l.Gradients(mat.NewDense(3, 2, nil))
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestLinearStepClips(t *testing.T) {
	l := toyLinear()
	copy(l.GradW.Data, []float64{5, -5, 0.5, -0.5, 0, 1})
	copy(l.GradB.Data, []float64{-3, 0.25})
	l.Step(0.1, 1)
	require.InDeltaSlice(t, []float64{0.9, 2.1, 2.95, 4.05, 5, 5.9}, l.W.Data, 1e-12)
	require.InDeltaSlice(t, []float64{0.6, -0.525}, l.B.Data, 1e-12)
	require.Equal(t, []float64{1, -1, 0.5, -0.5, 0, 1}, l.GradW.Data)
	require.Equal(t, []float64{-1, 0.25}, l.GradB.Data)
}

func TestReLUForwardBackward(t *testing.T) {
	var a ReLU
	z := mat.NewDense(1, 4, []float64{-1, 0, 2, 3})
	out := a.Forward(z)
	require.Equal(t, []float64{0, 0, 2, 3}, out.RawMatrix().Data)

	grad, err := a.Backward(mat.NewDense(1, 4, []float64{1, 1, 1, -2}))
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 1, -2}, grad.RawMatrix().Data)

	a.Reset()
	_, err = a.Backward(mat.NewDense(1, 4, nil))
	require.ErrorIs(t, err, ErrNoForwardPass)
}
