package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Epsilon guards ln(0) in CrossEntropy.
const Epsilon = 1e-12

// Softmax normalises one row of logits in place after subtracting the row maximum.
func Softmax(logits []float64) {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	expSum := 0.0
	for i, v := range logits {
		e := math.Exp(v - maxLogit)
		logits[i] = e
		expSum += e
	}
	inv := 1 / expSum
	for i := range logits {
		logits[i] *= inv
	}
}

// SoftmaxRows returns a copy of z with Softmax applied to every row.
func SoftmaxRows(z *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(z)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		Softmax(out.RawRowView(i))
	}
	return out
}

// CrossEntropy is Σ -t·ln(p+ε) over all entries divided by the number of
// samples (len(targets)/width).
//
// Terms whose prediction is NaN or ±Inf are skipped rather than poisoning the
// total. This masks diverged predictions; callers relying on the loss to detect
// divergence should check predictions separately.
func CrossEntropy(targets, predictions []float64, width int) float64 {
	n := len(targets) / width
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i, t := range targets {
		p := predictions[i]
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		sum += t * -math.Log(p+Epsilon)
	}
	return sum / float64(n)
}

// Accuracy is the fraction of rows whose prediction argmax equals the target
// argmax. Ties resolve to the lowest index.
func Accuracy(targets, predictions []float64, width int) float64 {
	n := len(targets) / width
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		row := i * width
		if Argmax(predictions[row:row+width]) == Argmax(targets[row:row+width]) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Argmax returns the index of the first maximum of v. NaNs never win.
func Argmax(v []float64) int {
	best, highest := 0, math.Inf(-1)
	for i, x := range v {
		if x > highest {
			best, highest = i, x
		}
	}
	return best
}
