// Package dataset turns labelled pixel samples into the one-hot batches the
// model trains and validates on.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"losslab/nn"
	"losslab/tensor"

	"golang.org/x/exp/rand"
)

var (
	// ErrInvalidSplit is returned when a split fraction is outside (0, 1] or
	// leaves the train or validation set empty.
	ErrInvalidSplit  = errors.New("invalid dataset split")
	ErrShapeMismatch = tensor.ErrShapeMismatch
)

// Sample is one corpus entry: normalised features and a class label.
type Sample struct {
	Features []float64
	Label    int
}

// Batch is a row-major feature matrix X [n, input] and one-hot targets Y [n, output].
type Batch struct {
	X []float64
	Y []float64
}

// Len returns the number of samples, checking that X and Y agree.
func (b Batch) Len(input, output int) (int, error) {
	if input <= 0 || output <= 0 || len(b.X)%input != 0 || len(b.Y)%output != 0 {
		return 0, fmt.Errorf("%w: batch of %d features / %d targets does not divide into %d/%d", ErrShapeMismatch, len(b.X), len(b.Y), input, output)
	}
	n := len(b.X) / input
	if n != len(b.Y)/output {
		return 0, fmt.Errorf("%w: %d feature rows but %d target rows", ErrShapeMismatch, n, len(b.Y)/output)
	}
	return n, nil
}

// Row returns the features of sample i.
func (b Batch) Row(i, input int) []float64 {
	return b.X[i*input : (i+1)*input]
}

// Split is the train/validation pair built by Prepare. It is never mutated.
type Split struct {
	Train Batch
	Val   Batch
}

// Prepare takes the first floor(dataSplit*len) samples and splits them at
// floor(trainSplit*subset) into train and validation batches. Order is preserved.
func Prepare(samples []Sample, sizes nn.LayerSizes, dataSplit, trainSplit float64) (Split, error) {
	if !validFraction(dataSplit) || !validFraction(trainSplit) {
		return Split{}, fmt.Errorf("%w: dataSplit=%v trainSplit=%v must be in (0, 1]", ErrInvalidSplit, dataSplit, trainSplit)
	}
	subset := samples[:int(math.Floor(dataSplit*float64(len(samples))))]
	n := int(math.Floor(trainSplit * float64(len(subset))))
	if n == 0 || n == len(subset) {
		return Split{}, fmt.Errorf("%w: %d of %d samples leaves %d train / %d validation", ErrInvalidSplit, len(subset), len(samples), n, len(subset)-n)
	}
	train, err := Encode(subset[:n], sizes)
	if err != nil {
		return Split{}, err
	}
	val, err := Encode(subset[n:], sizes)
	if err != nil {
		return Split{}, err
	}
	return Split{Train: train, Val: val}, nil
}

func validFraction(f float64) bool {
	return f > 0 && f <= 1
}

// Encode packs samples into a Batch with one-hot targets.
func Encode(samples []Sample, sizes nn.LayerSizes) (Batch, error) {
	b := Batch{
		X: make([]float64, len(samples)*sizes.Input),
		Y: make([]float64, len(samples)*sizes.Output),
	}
	for i, s := range samples {
		if len(s.Features) != sizes.Input {
			return Batch{}, fmt.Errorf("%w: sample %d has %d features, want %d", ErrShapeMismatch, i, len(s.Features), sizes.Input)
		}
		if s.Label < 0 || s.Label >= sizes.Output {
			return Batch{}, fmt.Errorf("%w: sample %d label %d outside [0, %d)", ErrShapeMismatch, i, s.Label, sizes.Output)
		}
		copy(b.X[i*sizes.Input:], s.Features)
		b.Y[i*sizes.Output+s.Label] = 1
	}
	return b, nil
}

// Shuffle permutes samples in place.
func Shuffle(samples []Sample, src rand.Source) {
	rand.New(src).Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// ClassCount is one row of a Histogram.
type ClassCount struct {
	Class   int     `json:"class"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Histogram counts the one-hot targets of b per class.
func Histogram(b Batch, output int) []ClassCount {
	counts := make([]ClassCount, output)
	n := len(b.Y) / output
	for c := range counts {
		counts[c].Class = c
	}
	for i := 0; i < n; i++ {
		counts[nn.Argmax(b.Y[i*output:(i+1)*output])].Count++
	}
	if n > 0 {
		for c := range counts {
			counts[c].Percent = 100 * float64(counts[c].Count) / float64(n)
		}
	}
	return counts
}

// LoadCorpus reads path as a pixel CSV and shuffles it once, or generates
// synthetic samples when path is empty.
func LoadCorpus(path string, sizes nn.LayerSizes, synthetic int, src rand.Source) ([]Sample, error) {
	if path == "" {
		return Synthetic(synthetic, sizes, src), nil
	}
	samples, err := LoadCSV(path, sizes.Input)
	if err != nil {
		return nil, err
	}
	Shuffle(samples, src)
	return samples, nil
}
