package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"losslab/nn"
	"losslab/tensor"
)

// WeightsVersion is written into every saved file.
const WeightsVersion = "1.0"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string                 `json:"version"`
	Sizes   nn.LayerSizes          `json:"sizes"`
	Layers  map[string]LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// Layer keys used in ModelWeights.Layers.
const (
	HiddenLayer = "hidden"
	OutputLayer = "output"
)

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) (*tensor.Tensor, error) {
	if wd == nil {
		return nil, fmt.Errorf("%w: missing weight data", tensor.ErrShapeMismatch)
	}
	t, err := tensor.FromData(append([]float64{}, wd.Data...), wd.Shape...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wd.Name, err)
	}
	return t, nil
}

// ParamsToWeights snapshots p into the serialisable form.
func ParamsToWeights(sizes nn.LayerSizes, p *nn.Params) *ModelWeights {
	return &ModelWeights{
		Version: WeightsVersion,
		Sizes:   sizes,
		Layers: map[string]LayerWeight{
			HiddenLayer: {
				Weight: TensorToWeightData(nn.ParamNames[0], p.W1),
				Bias:   TensorToWeightData(nn.ParamNames[1], p.B1),
			},
			OutputLayer: {
				Weight: TensorToWeightData(nn.ParamNames[2], p.W2),
				Bias:   TensorToWeightData(nn.ParamNames[3], p.B2),
			},
		},
	}
}

// WeightsToParams rebuilds Params and checks them against the stored sizes.
func WeightsToParams(w *ModelWeights) (*nn.Params, error) {
	hidden, ok := w.Layers[HiddenLayer]
	if !ok {
		return nil, fmt.Errorf("weights missing %q layer", HiddenLayer)
	}
	output, ok := w.Layers[OutputLayer]
	if !ok {
		return nil, fmt.Errorf("weights missing %q layer", OutputLayer)
	}
	var ts [4]*tensor.Tensor
	for i, wd := range []*WeightData{hidden.Weight, hidden.Bias, output.Weight, output.Bias} {
		t, err := WeightDataToTensor(wd)
		if err != nil {
			return nil, err
		}
		ts[i] = t
	}
	p := nn.ParamsFrom(ts)
	if err := p.Validate(w.Sizes); err != nil {
		return nil, err
	}
	return p, nil
}
