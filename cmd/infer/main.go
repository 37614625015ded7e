// losslab-infer: Inference using saved weights
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"losslab/dataset"
	"losslab/engine"
	"losslab/utils"

	"golang.org/x/exp/rand"
)

var (
	weightsFile = flag.String("weights", "", "Weights JSON file")
	inputFile   = flag.String("input", "", "Input JSON file (array of normalised pixels)")
	dataPath    = flag.String("data", "", "Label-first pixel CSV to draw a random sample from")
	seed        = flag.Uint64("seed", 1, "Random seed")
	verbose     = flag.Bool("verbose", true, "Verbose output")
	topK        = flag.Int("topk", 3, "Top predictions to show")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                     losslab Inference                        ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")

	if *weightsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -weights is required")
		os.Exit(2)
	}

	weights, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading weights: %v\n", err)
		os.Exit(1)
	}
	params, err := utils.WeightsToParams(weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in weights: %v\n", err)
		os.Exit(1)
	}
	sizes := weights.Sizes
	fmt.Printf("Loaded %s model\n", sizes)

	src := rand.NewSource(*seed)
	var corpus []dataset.Sample
	if *dataPath != "" {
		corpus, err = dataset.LoadCorpus(*dataPath, sizes, 0, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
			os.Exit(1)
		}
	}

	var input []float64
	if *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &input); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing input: %v\n", err)
			os.Exit(1)
		}
	} else if len(corpus) == 0 {
		fmt.Fprintln(os.Stderr, "Error: need -input or -data")
		os.Exit(2)
	}

	session := engine.NewSession(corpus, src)
	if _, err := session.CreateModel(sizes, params); err != nil {
		fmt.Fprintf(os.Stderr, "Error building model: %v\n", err)
		os.Exit(1)
	}

	p, err := session.Predict(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inference failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nPredicted class: %d\n", p.Class)
	fmt.Printf("Top %d:\n", min(*topK, sizes.Output))
	for _, c := range topClasses(p.A2, *topK) {
		fmt.Printf("  class %d: %.2f%%\n", c, p.A2[c]*100)
	}
	if p.A1Norm != nil {
		fmt.Printf("\nHidden activations: %s\n", sparkline(p.A1Norm))
	}
}

func topClasses(probs []float64, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

func sparkline(norm []float64) string {
	const bars = "▁▂▃▄▅▆▇█"
	runes := []rune(bars)
	var sb strings.Builder
	for _, v := range norm {
		sb.WriteRune(runes[int(v*float64(len(runes)-1))])
	}
	return sb.String()
}
