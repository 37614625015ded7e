package dataset

import (
	"strings"
	"testing"

	"losslab/nn"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

var tiny = nn.LayerSizes{Input: 2, Hidden: 3, Output: 3}

func numbered(n int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Features: []float64{float64(i), -float64(i)}, Label: i % 3}
	}
	return samples
}

func TestPrepareSizes(t *testing.T) {
	split, err := Prepare(numbered(100), tiny, 0.5, 0.8)
	require.NoError(t, err)

	n, err := split.Train.Len(tiny.Input, tiny.Output)
	require.NoError(t, err)
	require.Equal(t, 40, n)
	n, err = split.Val.Len(tiny.Input, tiny.Output)
	require.NoError(t, err)
	require.Equal(t, 10, n)

	// Order is preserved: train takes samples 0..39, validation 40..49.
	require.Equal(t, []float64{0, 0}, split.Train.Row(0, tiny.Input))
	require.Equal(t, []float64{40, -40}, split.Val.Row(0, tiny.Input))
	require.Equal(t, []float64{49, -49}, split.Val.Row(9, tiny.Input))
}

func TestPrepareOneHot(t *testing.T) {
	split, err := Prepare(numbered(10), tiny, 1, 0.5)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, split.Train.Y[:9])
	for i := 0; i < 5; i++ {
		row := split.Val.Y[i*3 : i*3+3]
		sum := row[0] + row[1] + row[2]
		require.Equal(t, 1.0, sum)
	}
}

func TestPrepareRejectsBadFractions(t *testing.T) {
	cases := []struct {
		name              string
		dataSplit, trainS float64
		n                 int
	}{
		{"zero data split", 0, 0.8, 100},
		{"data split above one", 1.5, 0.8, 100},
		{"negative train split", 0.5, -0.1, 100},
		{"full train split leaves no validation", 1, 1, 100},
		{"too few samples", 0.1, 0.8, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Prepare(numbered(tc.n), tiny, tc.dataSplit, tc.trainS)
			require.ErrorIs(t, err, ErrInvalidSplit)
		})
	}
}

func TestPrepareRejectsBadSamples(t *testing.T) {
	samples := numbered(10)
	samples[7].Label = 3
	_, err := Prepare(samples, tiny, 1, 0.5)
	require.ErrorIs(t, err, ErrShapeMismatch)

	samples = numbered(10)
	samples[2].Features = []float64{1}
	_, err = Prepare(samples, tiny, 1, 0.5)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBatchLen(t *testing.T) {
	_, err := Batch{X: make([]float64, 6), Y: make([]float64, 6)}.Len(2, 3)
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Batch{X: make([]float64, 5), Y: make([]float64, 6)}.Len(2, 3)
	require.ErrorIs(t, err, ErrShapeMismatch)
	n, err := Batch{X: make([]float64, 4), Y: make([]float64, 6)}.Len(2, 3)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestHistogram(t *testing.T) {
	b, err := Encode(numbered(4), tiny)
	require.NoError(t, err)
	h := Histogram(b, tiny.Output)
	require.Len(t, h, 3)
	require.Equal(t, 2, h[0].Count)
	require.Equal(t, 1, h[1].Count)
	require.Equal(t, 1, h[2].Count)
	require.InDelta(t, 50.0, h[0].Percent, 1e-12)
}

func TestReadCSV(t *testing.T) {
	in := "label,p0,p1\n3,0,255\n1, 51,102\n\n"
	samples, err := ReadCSV(strings.NewReader(in), 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, 3, samples[0].Label)
	require.Equal(t, []float64{0, 1}, samples[0].Features)
	require.Equal(t, 1, samples[1].Label)
	require.InDeltaSlice(t, []float64{0.2, 0.4}, samples[1].Features, 1e-12)
}

func TestReadCSVWrongWidth(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("1,2,3\n4,5\n"), 2)
	require.ErrorIs(t, err, ErrShapeMismatch)
	require.Contains(t, err.Error(), "at line 2")
}

func TestReadCSVBadLabelAfterHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("1,2,3\nx,5,6\n"), 2)
	require.Error(t, err)
}

func TestSyntheticIsSeparable(t *testing.T) {
	sizes := nn.LayerSizes{Input: 6, Hidden: 4, Output: 3}
	samples := Synthetic(60, sizes, rand.NewSource(7))
	require.Len(t, samples, 60)
	for _, s := range samples {
		require.Len(t, s.Features, 6)
		lo := s.Label * 2
		for j, v := range s.Features {
			if j == lo || j == lo+1 {
				require.GreaterOrEqual(t, v, 0.6)
			} else {
				require.Less(t, v, 0.3+1e-12)
			}
		}
	}
}

func TestShuffleKeepsSamples(t *testing.T) {
	samples := numbered(20)
	Shuffle(samples, rand.NewSource(1))
	seen := make(map[float64]bool)
	for _, s := range samples {
		seen[s.Features[0]] = true
	}
	require.Len(t, seen, 20)
}

func TestLoadCorpus(t *testing.T) {
	samples, err := LoadCorpus("", tiny, 12, rand.NewSource(1))
	require.NoError(t, err)
	require.Len(t, samples, 12)

	_, err = LoadCorpus("/nonexistent/mnist.csv", tiny, 12, rand.NewSource(1))
	require.Error(t, err)
}
