// Package protocol defines the request/response messages a front-end
// exchanges with a training session, plus gob and JSON codecs for them.
package protocol

import (
	"encoding/gob"
	"fmt"
	"io"

	"losslab/engine"
	"losslab/nn"
)

func init() {
	// Register types for gob encoding
	gob.Register(CreateModelRequest{})
	gob.Register(ValueRequest{})
	gob.Register(DatasetRequest{})
	gob.Register(PredictRequest{})
	gob.Register(ProbeRequest{})
	gob.Register(TrainResponse{})
	gob.Register(engine.ParamsUpdate{})
	gob.Register(engine.DatasetInfo{})
	gob.Register(engine.Prediction{})
	gob.Register(engine.ProbeResult{})
}

// MessageType defines message types for the session protocol
type MessageType int

const (
	// Requests
	MsgCreateModel MessageType = iota
	MsgSetLearningRate
	MsgCreateDataset
	MsgTrain
	MsgPredict
	MsgLossCurve
	MsgLossLandscape
	MsgDone

	// Responses
	MsgParams
	MsgAck
	MsgDatasetReady
	MsgEpoch
	MsgPrediction
	MsgLossCurveValue
	MsgLossLandscapeValue
	MsgError
)

var messageNames = map[MessageType]string{
	MsgCreateModel:        "createModel",
	MsgSetLearningRate:    "setLearningRate",
	MsgCreateDataset:      "createDataset",
	MsgTrain:              "train",
	MsgPredict:            "predict",
	MsgLossCurve:          "lossCurve",
	MsgLossLandscape:      "lossLandscape",
	MsgDone:               "done",
	MsgParams:             "params",
	MsgAck:                "ack",
	MsgDatasetReady:       "dataset",
	MsgEpoch:              "epoch",
	MsgPrediction:         "prediction",
	MsgLossCurveValue:     "lossCurveValue",
	MsgLossLandscapeValue: "lossLandscapeValue",
	MsgError:              "error",
}

func (t MessageType) String() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// ParseMessageType is the inverse of MessageType.String.
func ParseMessageType(name string) (MessageType, error) {
	for t, n := range messageNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown message type %q", name)
}

// Message represents a message in the session protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// CreateModelRequest optionally carries prior parameters to start from.
type CreateModelRequest struct {
	Sizes  nn.LayerSizes `json:"sizes"`
	Params *nn.Params    `json:"params,omitempty"`
}

// ValueRequest carries a single scalar (the learning rate).
type ValueRequest struct {
	Value float64 `json:"value"`
}

// DatasetRequest carries the split fractions for CreateDataset.
type DatasetRequest struct {
	DataSplit  float64 `json:"dataSplit"`
	TrainSplit float64 `json:"trainSplit"`
}

// PredictRequest with no features asks for a random corpus sample.
type PredictRequest struct {
	Features []float64 `json:"x,omitempty"`
}

// ProbeRequest is a loss curve (X) or landscape (X, Y) coordinate.
type ProbeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrainResponse pairs the epoch report with the updated parameters.
type TrainResponse struct {
	Report engine.EpochReport  `json:"report"`
	Params engine.ParamsUpdate `json:"params"`
}

// Protocol handles gob-framed session communication
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	p := &Protocol{}
	if w != nil {
		p.encoder = gob.NewEncoder(w)
	}
	if r != nil {
		p.decoder = gob.NewDecoder(r)
	}
	return p
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	return p.encoder.Encode(msg)
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{
		Type:    MsgError,
		Payload: err.Error(),
	})
}

// RemoteError is a MsgError payload surfaced on the receiving side.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.Message
}

// Call sends req and waits for its response. MsgError responses come back as
// a *RemoteError.
func (p *Protocol) Call(req *Message) (*Message, error) {
	if err := p.Send(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	resp, err := p.Receive()
	if err != nil {
		return nil, fmt.Errorf("receive %s response: %w", req.Type, err)
	}
	if resp.Type == MsgError {
		return nil, &RemoteError{Message: fmt.Sprint(resp.Payload)}
	}
	return resp, nil
}
