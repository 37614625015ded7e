// Package engine owns one training session: the current model, its dataset
// split and probe state, and the commands a front-end issues against them.
package engine

import (
	"errors"
	"fmt"
	"time"

	"losslab/dataset"
	"losslab/explore"
	"losslab/nn"
	"losslab/tensor"
	"losslab/utils"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

var (
	ErrNoModel   = errors.New("no model created")
	ErrNoDataset = errors.New("no dataset created")
)

const logPrefix = "ENGINE"

// EpochReport summarises one TrainEpoch call.
type EpochReport struct {
	ModelID       string        `json:"modelId"`
	Epoch         int           `json:"epoch"`
	TrainLoss     float64       `json:"trainLoss"`
	TrainAccuracy float64       `json:"trainAccuracy"`
	ValLoss       float64       `json:"valLoss"`
	ValAccuracy   float64       `json:"valAccuracy"`
	TimeTaken     time.Duration `json:"-"`
	TimeTakenMs   float64       `json:"timeTakenMs"`
}

// ParamsUpdate is delivered to observers after CreateModel and every epoch.
// Params is a deep copy owned by the receiver.
type ParamsUpdate struct {
	ModelID string     `json:"modelId"`
	Epoch   int        `json:"epoch"`
	Params  *nn.Params `json:"params"`
}

// Observer receives parameter snapshots.
type Observer func(ParamsUpdate)

// Prediction is the network's response to a single input.
type Prediction struct {
	ModelID string    `json:"modelId"`
	X       []float64 `json:"x"`
	A1      []float64 `json:"a1"`
	// A1Norm is A1 min-max normalised for display, nil when A1 is flat.
	A1Norm []float64 `json:"a1Norm"`
	A2     []float64 `json:"a2"`
	Class  int       `json:"class"`
}

// ProbeResult is one loss curve or landscape sample.
type ProbeResult struct {
	ModelID string  `json:"modelId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Value   float64 `json:"value"`
}

// DatasetInfo describes the split built by CreateDataset.
type DatasetInfo struct {
	Train     int                  `json:"train"`
	Val       int                  `json:"val"`
	Histogram []dataset.ClassCount `json:"histogram"`
}

// Session is the explicit context every command runs against. It is not safe
// for concurrent use; transports must serialise calls.
type Session struct {
	corpus []dataset.Sample
	src    rand.Source
	rng    *rand.Rand

	learningRate float64

	model    *nn.Model
	modelID  string
	epoch    int
	split    *dataset.Split
	explorer *explore.Explorer

	observers []Observer

	// Stats accumulates time spent per phase across the session.
	Stats utils.TimingStats
}

// NewSession builds a session over corpus. src seeds parameter init, probe
// directions and random prediction samples.
func NewSession(corpus []dataset.Sample, src rand.Source) *Session {
	return &Session{
		corpus:       corpus,
		src:          src,
		rng:          rand.New(src),
		learningRate: nn.DefaultLearningRate,
		explorer:     explore.New(src),
	}
}

// Observe registers fn for every future ParamsUpdate.
func (s *Session) Observe(fn Observer) {
	s.observers = append(s.observers, fn)
}

func (s *Session) broadcast() {
	for _, fn := range s.observers {
		fn(ParamsUpdate{ModelID: s.modelID, Epoch: s.epoch, Params: s.model.Params().Clone()})
	}
}

func (s *Session) Model() *nn.Model         { return s.model }
func (s *Session) ModelID() string          { return s.modelID }
func (s *Session) Epoch() int               { return s.epoch }
func (s *Session) LearningRate() float64    { return s.learningRate }
func (s *Session) Split() *dataset.Split    { return s.split }
func (s *Session) Corpus() []dataset.Sample { return s.corpus }

// CreateModel replaces the current model with a fresh one, optionally seeded
// with prior params (which are copied). The model gets a new id, the epoch
// counter and the probe state are reset, and the dataset is dropped when the
// layer sizes change.
func (s *Session) CreateModel(sizes nn.LayerSizes, prior *nn.Params) (string, error) {
	start := time.Now()
	var (
		m   *nn.Model
		err error
	)
	if prior != nil {
		m, err = nn.NewModelWithParams(sizes, prior.Clone())
	} else {
		m, err = nn.NewModel(sizes, s.src)
	}
	if err != nil {
		return "", fmt.Errorf("create model: %w", err)
	}
	m.SetLearningRate(s.learningRate)

	if s.model != nil && s.model.Sizes() != sizes {
		s.split = nil
	}
	s.model = m
	s.modelID = uuid.NewString()
	s.epoch = 0
	s.explorer.Reset()
	s.Stats.ModelInitTime += time.Since(start)

	utils.Logf(logPrefix, "model %s created (%s, lr=%v)", s.modelID, sizes, s.learningRate)
	s.broadcast()
	return s.modelID, nil
}

// SetLearningRate applies to the current model from its next epoch on, and to
// every model created afterwards.
func (s *Session) SetLearningRate(lr float64) error {
	if lr <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", lr)
	}
	s.learningRate = lr
	if s.model != nil {
		s.model.SetLearningRate(lr)
	}
	return nil
}

// CreateDataset rebuilds the train/validation split for the current model's
// layer sizes.
func (s *Session) CreateDataset(dataSplit, trainSplit float64) (DatasetInfo, error) {
	if s.model == nil {
		return DatasetInfo{}, ErrNoModel
	}
	start := time.Now()
	sizes := s.model.Sizes()
	split, err := dataset.Prepare(s.corpus, sizes, dataSplit, trainSplit)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("create dataset: %w", err)
	}
	s.split = &split
	s.Stats.DataLoadingTime += time.Since(start)

	info := DatasetInfo{Histogram: dataset.Histogram(split.Train, sizes.Output)}
	info.Train, _ = split.Train.Len(sizes.Input, sizes.Output)
	info.Val, _ = split.Val.Len(sizes.Input, sizes.Output)
	utils.Logf(logPrefix, "dataset: %d train / %d validation samples", info.Train, info.Val)
	for _, c := range info.Histogram {
		utils.Logf(logPrefix, "  %d / %d / %.2f%%", c.Class, c.Count, c.Percent)
	}
	return info, nil
}

func (s *Session) ready() error {
	if s.model == nil {
		return ErrNoModel
	}
	if s.split == nil {
		return ErrNoDataset
	}
	return nil
}

// TrainEpoch runs one full-batch gradient step on the training set and
// reports train metrics from the pre-update predictions alongside
// validation metrics after the update.
func (s *Session) TrainEpoch() (EpochReport, error) {
	if err := s.ready(); err != nil {
		return EpochReport{}, err
	}
	var stats utils.TimingStats
	start := time.Now()
	sizes := s.model.Sizes()
	train, val := s.split.Train, s.split.Val

	t := time.Now()
	preds, err := s.model.Forward(train.X)
	if err != nil {
		return EpochReport{}, fmt.Errorf("forward: %w", err)
	}
	stats.ForwardPassTime = time.Since(t)

	t = time.Now()
	if err := s.model.Backward(train.Y); err != nil {
		return EpochReport{}, fmt.Errorf("backward: %w", err)
	}
	stats.BackwardPassTime = time.Since(t)

	t = time.Now()
	report := EpochReport{
		ModelID:       s.modelID,
		TrainLoss:     nn.CrossEntropy(train.Y, preds, sizes.Output),
		TrainAccuracy: nn.Accuracy(train.Y, preds, sizes.Output),
	}
	stats.MetricsTime = time.Since(t)

	t = time.Now()
	report.ValLoss, report.ValAccuracy, err = s.model.Evaluate(val.X, val.Y)
	if err != nil {
		return EpochReport{}, fmt.Errorf("validate: %w", err)
	}
	stats.ValidationTime = time.Since(t)

	s.epoch++
	report.Epoch = s.epoch
	report.TimeTaken = time.Since(start)
	report.TimeTakenMs = float64(report.TimeTaken.Microseconds()) / 1000
	stats.TotalTime = report.TimeTaken
	s.Stats.Add(stats)

	s.broadcast()
	return report, nil
}

// Predict runs one input through the model without disturbing training
// state. Empty features select a random corpus sample.
func (s *Session) Predict(features []float64) (Prediction, error) {
	if s.model == nil {
		return Prediction{}, ErrNoModel
	}
	if len(features) == 0 {
		if len(s.corpus) == 0 {
			return Prediction{}, fmt.Errorf("%w: empty corpus to sample from", ErrNoDataset)
		}
		features = s.corpus[s.rng.Intn(len(s.corpus))].Features
	}
	if len(features) != s.model.Sizes().Input {
		return Prediction{}, fmt.Errorf("%w: predict needs %d features, got %d", nn.ErrShapeMismatch, s.model.Sizes().Input, len(features))
	}
	act, err := s.model.Predict(features)
	if err != nil {
		return Prediction{}, err
	}
	p := Prediction{
		ModelID: s.modelID,
		X:       append([]float64(nil), features...),
		A1:      act.A1,
		A2:      act.A2,
		Class:   nn.Argmax(act.A2),
	}
	norm, err := tensor.MinMaxNormalize(act.A1)
	if err == nil {
		p.A1Norm = norm
	} else if !errors.Is(err, tensor.ErrNumericDegenerate) {
		return Prediction{}, err
	}
	return p, nil
}

// LossCurve evaluates validation loss at anchor*x + current*(1-x).
func (s *Session) LossCurve(x float64) (ProbeResult, error) {
	if err := s.ready(); err != nil {
		return ProbeResult{}, err
	}
	start := time.Now()
	defer func() { s.Stats.ProbeTime += time.Since(start) }()
	v, err := s.explorer.LossCurve(s.model, s.split.Val, x)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{ModelID: s.modelID, X: x, Value: v}, nil
}

// LossLandscape evaluates validation loss at current + dirX*x + dirY*y.
func (s *Session) LossLandscape(x, y float64) (ProbeResult, error) {
	if err := s.ready(); err != nil {
		return ProbeResult{}, err
	}
	start := time.Now()
	defer func() { s.Stats.ProbeTime += time.Since(start) }()
	v, err := s.explorer.LossLandscape(s.model, s.split.Val, x, y)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{ModelID: s.modelID, X: x, Y: y, Value: v}, nil
}

// ScanCurve samples the loss curve at points positions over [lo, hi).
func (s *Session) ScanCurve(points int, lo, hi float64) ([]explore.CurvePoint, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.Stats.ProbeTime += time.Since(start) }()
	return s.explorer.ScanCurve(s.model, s.split.Val, points, lo, hi)
}

// ScanLandscape samples the loss landscape on a side×side grid over [lo, hi)².
func (s *Session) ScanLandscape(side int, lo, hi float64) (explore.Grid, error) {
	if err := s.ready(); err != nil {
		return explore.Grid{}, err
	}
	start := time.Now()
	defer func() { s.Stats.ProbeTime += time.Since(start) }()
	return s.explorer.ScanLandscape(s.model, s.split.Val, side, lo, hi)
}
