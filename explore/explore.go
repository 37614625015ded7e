// Package explore evaluates validation loss at points in parameter space
// around a model without disturbing its training state.
package explore

import (
	"fmt"

	"losslab/dataset"
	"losslab/nn"
	"losslab/tensor"

	"golang.org/x/exp/rand"
)

// Default scan ranges and resolutions.
const (
	CurvePoints = 50
	CurveLo     = -2.0
	CurveHi     = 10.0

	LandscapeSide = 15
	LandscapeLo   = -5.0
	LandscapeHi   = 5.0
)

// Explorer holds the probe state for one model: the anchor captured by the
// first LossCurve call and the two directions drawn by the first
// LossLandscape call. A nil field means "not yet created".
//
// Explorer is not safe for concurrent use.
type Explorer struct {
	src        rand.Source
	anchor     *nn.Params
	dirX, dirY *nn.Params
}

// New returns an empty Explorer drawing directions from src.
func New(src rand.Source) *Explorer {
	return &Explorer{src: src}
}

// Reset forgets the anchor and directions. Call it whenever the model is replaced.
func (e *Explorer) Reset() {
	e.anchor, e.dirX, e.dirY = nil, nil, nil
}

// LossCurve returns the validation loss at anchor*x + current*(1-x). The
// anchor is a snapshot of the parameters taken on the first call, so x=0 is
// always the current loss and x=1 the loss at the snapshot.
func (e *Explorer) LossCurve(m *nn.Model, val dataset.Batch, x float64) (float64, error) {
	cur := m.Params()
	if e.anchor == nil {
		e.anchor = cur.Clone()
	}
	var probe [4]*tensor.Tensor
	anchor := e.anchor.Tensors()
	for i, t := range cur.Tensors() {
		p, err := tensor.Lerp(anchor[i], t, x)
		if err != nil {
			return 0, fmt.Errorf("loss curve %s: %w", nn.ParamNames[i], err)
		}
		probe[i] = p
	}
	return evaluate(m, nn.ParamsFrom(probe), val)
}

// LossLandscape returns the validation loss at current + dirX*x + dirY*y. The
// directions are drawn on the first call from the same distribution as the
// initial parameters and kept until Reset.
func (e *Explorer) LossLandscape(m *nn.Model, val dataset.Batch, x, y float64) (float64, error) {
	if e.dirX == nil {
		e.dirX = nn.RandomParams(m.Sizes(), e.src)
		e.dirY = nn.RandomParams(m.Sizes(), e.src)
	}
	var probe [4]*tensor.Tensor
	dx, dy := e.dirX.Tensors(), e.dirY.Tensors()
	for i, t := range m.Params().Tensors() {
		p, err := tensor.Offset(t, dx[i], dy[i], x, y)
		if err != nil {
			return 0, fmt.Errorf("loss landscape %s: %w", nn.ParamNames[i], err)
		}
		probe[i] = p
	}
	return evaluate(m, nn.ParamsFrom(probe), val)
}

func evaluate(m *nn.Model, probe *nn.Params, val dataset.Batch) (float64, error) {
	var loss float64
	err := m.WithParams(probe, func() error {
		l, _, err := m.Evaluate(val.X, val.Y)
		loss = l
		return err
	})
	return loss, err
}

// Sample returns the i-th of n evenly spaced points starting at lo: lo + (hi-lo)*i/n.
// hi itself is never reached.
func Sample(lo, hi float64, i, n int) float64 {
	return lo + (hi-lo)*float64(i)/float64(n)
}

// CurvePoint is one sample of a loss curve.
type CurvePoint struct {
	X    float64
	Loss float64
}

// ScanCurve samples LossCurve at points positions over [lo, hi).
func (e *Explorer) ScanCurve(m *nn.Model, val dataset.Batch, points int, lo, hi float64) ([]CurvePoint, error) {
	out := make([]CurvePoint, points)
	for i := range out {
		x := Sample(lo, hi, i, points)
		loss, err := e.LossCurve(m, val, x)
		if err != nil {
			return nil, err
		}
		out[i] = CurvePoint{X: x, Loss: loss}
	}
	return out, nil
}

// Grid is a side×side loss landscape. Loss[j][i] is the loss at (Xs[i], Ys[j]).
type Grid struct {
	Xs, Ys []float64
	Loss   [][]float64
}

// Heights returns the landscape losses min-max normalised to [0, 1], row-major.
// A flat landscape yields tensor.ErrNumericDegenerate.
func (g Grid) Heights() ([]float64, error) {
	flat := make([]float64, 0, len(g.Xs)*len(g.Ys))
	for _, row := range g.Loss {
		flat = append(flat, row...)
	}
	return tensor.MinMaxNormalize(flat)
}

// ScanLandscape samples LossLandscape on a side×side grid over [lo, hi)².
func (e *Explorer) ScanLandscape(m *nn.Model, val dataset.Batch, side int, lo, hi float64) (Grid, error) {
	g := Grid{Xs: make([]float64, side), Ys: make([]float64, side), Loss: make([][]float64, side)}
	for i := 0; i < side; i++ {
		g.Xs[i] = Sample(lo, hi, i, side)
		g.Ys[i] = g.Xs[i]
	}
	for j, y := range g.Ys {
		g.Loss[j] = make([]float64, side)
		for i, x := range g.Xs {
			loss, err := e.LossLandscape(m, val, x, y)
			if err != nil {
				return Grid{}, err
			}
			g.Loss[j][i] = loss
		}
	}
	return g, nil
}
