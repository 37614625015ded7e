package explore

import (
	"testing"

	"losslab/dataset"
	"losslab/nn"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

var sizes = nn.LayerSizes{Input: 6, Hidden: 5, Output: 3}

func setup(t *testing.T) (*nn.Model, dataset.Split) {
	t.Helper()
	m, err := nn.NewModel(sizes, rand.NewSource(21))
	require.NoError(t, err)
	split, err := dataset.Prepare(dataset.Synthetic(80, sizes, rand.NewSource(4)), sizes, 1, 0.75)
	require.NoError(t, err)
	return m, split
}

func trainEpochs(t *testing.T, m *nn.Model, b dataset.Batch, epochs int) {
	t.Helper()
	for i := 0; i < epochs; i++ {
		_, err := m.Forward(b.X)
		require.NoError(t, err)
		require.NoError(t, m.Backward(b.Y))
	}
}

func TestLossCurveEndpoints(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))

	start, _, err := m.Evaluate(split.Val.X, split.Val.Y)
	require.NoError(t, err)

	// First call pins the anchor at the current parameters.
	loss, err := e.LossCurve(m, split.Val, 0)
	require.NoError(t, err)
	require.InDelta(t, start, loss, 1e-12)

	trainEpochs(t, m, split.Train, 10)
	now, _, err := m.Evaluate(split.Val.X, split.Val.Y)
	require.NoError(t, err)
	require.NotEqual(t, start, now)

	at0, err := e.LossCurve(m, split.Val, 0)
	require.NoError(t, err)
	require.InDelta(t, now, at0, 1e-12)

	at1, err := e.LossCurve(m, split.Val, 1)
	require.NoError(t, err)
	require.InDelta(t, start, at1, 1e-12)
}

func TestLossLandscapeOrigin(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))

	want, _, err := m.Evaluate(split.Val.X, split.Val.Y)
	require.NoError(t, err)
	got, err := e.LossLandscape(m, split.Val, 0, 0)
	require.NoError(t, err)
	require.InDelta(t, want, got, 1e-12)
	require.NotNil(t, e.dirX)
}

func TestLossLandscapeDirectionsAreStable(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))

	first, err := e.LossLandscape(m, split.Val, 1.5, -2)
	require.NoError(t, err)
	again, err := e.LossLandscape(m, split.Val, 1.5, -2)
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestProbesLeaveModelUntouched(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))
	before := m.Params().Clone()

	_, err := m.Forward(split.Train.X)
	require.NoError(t, err)

	_, err = e.LossCurve(m, split.Val, 3)
	require.NoError(t, err)
	_, err = e.LossLandscape(m, split.Val, -4, 2)
	require.NoError(t, err)

	for i, p := range m.Params().Tensors() {
		require.Equal(t, before.Tensors()[i].Data, p.Data, nn.ParamNames[i])
	}
	// The Forward issued before the probes is still the one Backward consumes.
	require.NoError(t, m.Backward(split.Train.Y))
}

func TestResetClearsState(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))

	_, err := e.LossCurve(m, split.Val, 0.5)
	require.NoError(t, err)
	_, err = e.LossLandscape(m, split.Val, 0.5, 0.5)
	require.NoError(t, err)
	require.NotNil(t, e.anchor)

	e.Reset()
	require.Nil(t, e.anchor)
	require.Nil(t, e.dirX)

	// A fresh anchor is taken from the trained parameters.
	trainEpochs(t, m, split.Train, 5)
	now, _, err := m.Evaluate(split.Val.X, split.Val.Y)
	require.NoError(t, err)
	at1, err := e.LossCurve(m, split.Val, 1)
	require.NoError(t, err)
	require.InDelta(t, now, at1, 1e-12)
}

func TestScanCurveSampling(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))

	pts, err := e.ScanCurve(m, split.Val, CurvePoints, CurveLo, CurveHi)
	require.NoError(t, err)
	require.Len(t, pts, CurvePoints)
	require.Equal(t, CurveLo, pts[0].X)
	require.InDelta(t, CurveLo+12.0*49/50, pts[49].X, 1e-12)
}

func TestScanLandscape(t *testing.T) {
	m, split := setup(t)
	e := New(rand.NewSource(1))

	g, err := e.ScanLandscape(m, split.Val, 4, LandscapeLo, LandscapeHi)
	require.NoError(t, err)
	require.Equal(t, []float64{-5, -2.5, 0, 2.5}, g.Xs)
	require.Len(t, g.Loss, 4)

	want, _, err := m.Evaluate(split.Val.X, split.Val.Y)
	require.NoError(t, err)
	require.InDelta(t, want, g.Loss[2][2], 1e-12)

	h, err := g.Heights()
	require.NoError(t, err)
	require.Len(t, h, 16)
	for _, v := range h {
		require.True(t, v >= 0 && v <= 1)
	}
}
