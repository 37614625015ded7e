package protocol

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeJSON frames msg as {"type": name, "payload": ...}.
func EncodeJSON(msg *Message) ([]byte, error) {
	var raw json.RawMessage
	if msg.Payload != nil {
		b, err := json.Marshal(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", msg.Type, err)
		}
		raw = b
	}
	return json.Marshal(envelope{Type: msg.Type.String(), Payload: raw})
}

// DecodeJSON parses a request frame. Response frames are not accepted.
func DecodeJSON(data []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	t, err := ParseMessageType(env.Type)
	if err != nil {
		return nil, err
	}

	var target interface{}
	switch t {
	case MsgCreateModel:
		target = &CreateModelRequest{}
	case MsgSetLearningRate:
		target = &ValueRequest{}
	case MsgCreateDataset:
		target = &DatasetRequest{}
	case MsgPredict:
		target = &PredictRequest{}
	case MsgLossCurve, MsgLossLandscape:
		target = &ProbeRequest{}
	case MsgTrain, MsgDone:
		return &Message{Type: t}, nil
	default:
		return nil, fmt.Errorf("%s is not a request", t)
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return &Message{Type: t, Payload: target}, nil
}
