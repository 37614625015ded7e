package protocol

import (
	"errors"
	"fmt"

	"losslab/engine"
)

// ErrStaleModel marks results that belong to a model the caller has replaced.
var ErrStaleModel = errors.New("stale model id")

// Tracker remembers the current model id so results tagged with an older one
// can be dropped.
type Tracker struct {
	current string
}

// Track makes id the current model.
func (t *Tracker) Track(id string) { t.current = id }

// Check returns ErrStaleModel unless id is the current model.
func (t *Tracker) Check(id string) error {
	if id != t.current {
		return fmt.Errorf("%w: got %s, current %s", ErrStaleModel, id, t.current)
	}
	return nil
}

// ModelID extracts the model tag from a response payload, if it has one.
func ModelID(msg *Message) (string, bool) {
	switch v := msg.Payload.(type) {
	case engine.ParamsUpdate:
		return v.ModelID, true
	case TrainResponse:
		return v.Report.ModelID, true
	case engine.Prediction:
		return v.ModelID, true
	case engine.ProbeResult:
		return v.ModelID, true
	}
	return "", false
}
