package utils

import (
	"fmt"
	"strconv"
	"strings"

	"losslab/nn"
)

// Defaults used by the binaries when no flag overrides them.
const (
	DefaultArchitecture = "784 25 10"
	DefaultLearningRate = nn.DefaultLearningRate
	DefaultDataSplit    = 0.12
	DefaultTrainSplit   = 0.8
	DefaultEpochs       = 100
)

// Config holds training configuration
type Config struct {
	Architecture []int
	LearningRate float64
	DataSplit    float64
	TrainSplit   float64
	Epochs       int
	Seed         uint64
	// DataPath is a label-first pixel CSV; empty selects synthetic data.
	DataPath string
	// Samples is the synthetic corpus size.
	Samples int
}

// DefaultConfig returns the settings the interactive explorer starts with.
func DefaultConfig() *Config {
	arch, _ := ParseArchitecture(DefaultArchitecture)
	return &Config{
		Architecture: arch,
		LearningRate: DefaultLearningRate,
		DataSplit:    DefaultDataSplit,
		TrainSplit:   DefaultTrainSplit,
		Epochs:       DefaultEpochs,
		Seed:         1,
		Samples:      5000,
	}
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("architecture %q: %w", archStr, err)
		}
		arch[i] = n
	}
	return arch, nil
}

// Sizes converts a validated three-entry architecture into layer sizes.
func (c *Config) Sizes() nn.LayerSizes {
	return nn.LayerSizes{Input: c.Architecture[0], Hidden: c.Architecture[1], Output: c.Architecture[2]}
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) != 3 {
		return fmt.Errorf("architecture must have exactly 3 layers (input, hidden, output), got %d", len(config.Architecture))
	}
	if err := config.Sizes().Validate(); err != nil {
		return err
	}

	if config.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}

	if config.DataSplit <= 0 || config.DataSplit > 1 {
		return fmt.Errorf("data split must be in (0, 1], got %v", config.DataSplit)
	}
	// the validation set must keep at least one sample
	if config.TrainSplit <= 0 || config.TrainSplit >= 1 {
		return fmt.Errorf("train split must be in (0, 1), got %v", config.TrainSplit)
	}

	if config.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}

	if config.DataPath == "" && config.Samples <= 0 {
		return fmt.Errorf("synthetic sample count must be positive")
	}

	return nil
}
