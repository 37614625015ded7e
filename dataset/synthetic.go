package dataset

import (
	"losslab/nn"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Synthetic generates n linearly separable samples for quick runs without a
// corpus. The input vector is cut into sizes.Output bands; a sample of class c
// has band c lit at 0.6..1.0 and every other pixel at 0..0.3.
func Synthetic(n int, sizes nn.LayerSizes, src rand.Source) []Sample {
	rng := rand.New(src)
	bright := distuv.Uniform{Min: 0.6, Max: 1.0, Src: src}
	dim := distuv.Uniform{Min: 0, Max: 0.3, Src: src}
	band := sizes.Input / sizes.Output
	if band == 0 {
		band = 1
	}

	samples := make([]Sample, n)
	for i := range samples {
		label := rng.Intn(sizes.Output)
		lo, hi := label*band, (label+1)*band
		features := make([]float64, sizes.Input)
		for j := range features {
			if j >= lo && j < hi {
				features[j] = bright.Rand()
			} else {
				features[j] = dim.Rand()
			}
		}
		samples[i] = Sample{Features: features, Label: label}
	}
	return samples
}
