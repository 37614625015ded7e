package utils

import (
	"testing"

	"losslab/nn"

	"github.com/stretchr/testify/require"
)

func TestParseArchitecture(t *testing.T) {
	arch, err := ParseArchitecture(" 784  25 10 ")
	require.NoError(t, err)
	require.Equal(t, []int{784, 25, 10}, arch)

	_, err = ParseArchitecture("784 x 10")
	require.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))
	require.Equal(t, nn.LayerSizes{Input: 784, Hidden: 25, Output: 10}, cfg.Sizes())
	require.Equal(t, 0.5, cfg.LearningRate)
	require.Equal(t, 0.12, cfg.DataSplit)
	require.Equal(t, 0.8, cfg.TrainSplit)
	require.Equal(t, 100, cfg.Epochs)
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"two layers", func(c *Config) { c.Architecture = []int{784, 10} }},
		{"zero hidden", func(c *Config) { c.Architecture = []int{784, 0, 10} }},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }},
		{"data split above one", func(c *Config) { c.DataSplit = 1.2 }},
		{"zero train split", func(c *Config) { c.TrainSplit = 0 }},
		{"train split leaves no validation", func(c *Config) { c.TrainSplit = 1 }},
		{"no epochs", func(c *Config) { c.Epochs = 0 }},
		{"no synthetic samples", func(c *Config) { c.Samples = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			require.Error(t, ValidateConfig(cfg))
		})
	}

	cfg := DefaultConfig()
	cfg.DataSplit = 1
	cfg.TrainSplit = 0.99
	require.NoError(t, ValidateConfig(cfg))

	cfg = DefaultConfig()
	cfg.Samples = 0
	cfg.DataPath = "mnist_train.csv"
	require.NoError(t, ValidateConfig(cfg))
}
