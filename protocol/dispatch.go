package protocol

import (
	"errors"
	"fmt"
	"io"

	"losslab/engine"
)

// ErrUnexpectedPayload is returned when a request carries the wrong payload type.
var ErrUnexpectedPayload = errors.New("unexpected payload")

func payload[T any](msg *Message) (T, error) {
	var zero T
	switch v := msg.Payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	case nil:
		return zero, nil
	}
	return zero, fmt.Errorf("%w: %s request carries %T", ErrUnexpectedPayload, msg.Type, msg.Payload)
}

// Dispatch runs one request against s and returns its single response.
// Failures become MsgError responses; the session stays usable.
func Dispatch(s *engine.Session, req *Message) *Message {
	resp, err := dispatch(s, req)
	if err != nil {
		return &Message{Type: MsgError, Payload: err.Error()}
	}
	return resp
}

func snapshot(s *engine.Session) engine.ParamsUpdate {
	return engine.ParamsUpdate{ModelID: s.ModelID(), Epoch: s.Epoch(), Params: s.Model().Params().Clone()}
}

func dispatch(s *engine.Session, req *Message) (*Message, error) {
	switch req.Type {
	case MsgCreateModel:
		r, err := payload[CreateModelRequest](req)
		if err != nil {
			return nil, err
		}
		if _, err := s.CreateModel(r.Sizes, r.Params); err != nil {
			return nil, err
		}
		return &Message{Type: MsgParams, Payload: snapshot(s)}, nil

	case MsgSetLearningRate:
		r, err := payload[ValueRequest](req)
		if err != nil {
			return nil, err
		}
		if err := s.SetLearningRate(r.Value); err != nil {
			return nil, err
		}
		return &Message{Type: MsgAck}, nil

	case MsgCreateDataset:
		r, err := payload[DatasetRequest](req)
		if err != nil {
			return nil, err
		}
		info, err := s.CreateDataset(r.DataSplit, r.TrainSplit)
		if err != nil {
			return nil, err
		}
		return &Message{Type: MsgDatasetReady, Payload: info}, nil

	case MsgTrain:
		report, err := s.TrainEpoch()
		if err != nil {
			return nil, err
		}
		return &Message{Type: MsgEpoch, Payload: TrainResponse{Report: report, Params: snapshot(s)}}, nil

	case MsgPredict:
		r, err := payload[PredictRequest](req)
		if err != nil {
			return nil, err
		}
		p, err := s.Predict(r.Features)
		if err != nil {
			return nil, err
		}
		return &Message{Type: MsgPrediction, Payload: p}, nil

	case MsgLossCurve:
		r, err := payload[ProbeRequest](req)
		if err != nil {
			return nil, err
		}
		v, err := s.LossCurve(r.X)
		if err != nil {
			return nil, err
		}
		return &Message{Type: MsgLossCurveValue, Payload: v}, nil

	case MsgLossLandscape:
		r, err := payload[ProbeRequest](req)
		if err != nil {
			return nil, err
		}
		v, err := s.LossLandscape(r.X, r.Y)
		if err != nil {
			return nil, err
		}
		return &Message{Type: MsgLossLandscapeValue, Payload: v}, nil
	}
	return nil, fmt.Errorf("unknown request %s", req.Type)
}

// Serve answers requests from p until the peer sends MsgDone or closes the
// stream. Each request gets exactly one response.
func Serve(p *Protocol, s *engine.Session, logf func(format string, args ...interface{})) error {
	for {
		req, err := p.Receive()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive request: %w", err)
		}
		if req.Type == MsgDone {
			return nil
		}
		resp, err := dispatch(s, req)
		if err != nil {
			logf("%s failed: %v", req.Type, err)
			if err := p.SendError(err); err != nil {
				return fmt.Errorf("send %s error: %w", req.Type, err)
			}
			continue
		}
		logf("%s -> %s", req.Type, resp.Type)
		if err := p.Send(resp); err != nil {
			return fmt.Errorf("send %s: %w", resp.Type, err)
		}
	}
}
