// losslab-train: Standalone full-batch trainer with loss curve and landscape scans
//
// Usage:
//
//	losslab-train --data=mnist_train.csv --arch="784 25 10" --epochs=100 --lr=0.5
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"losslab/dataset"
	"losslab/engine"
	"losslab/explore"
	"losslab/history"
	"losslab/nn"
	"losslab/utils"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

var (
	arch         = flag.String("arch", utils.DefaultArchitecture, "Layer widths: input hidden output")
	dataPath     = flag.String("data", "", "Label-first pixel CSV (empty = synthetic data)")
	samples      = flag.Int("samples", 5000, "Number of synthetic samples")
	epochs       = flag.Int("epochs", utils.DefaultEpochs, "Number of training epochs")
	learningRate = flag.Float64("lr", utils.DefaultLearningRate, "Learning rate")
	dataSplit    = flag.Float64("data-split", utils.DefaultDataSplit, "Fraction of the corpus to use")
	trainSplit   = flag.Float64("train-split", utils.DefaultTrainSplit, "Fraction of the used corpus to train on, below 1 so validation is not empty")
	seed         = flag.Uint64("seed", 1, "Random seed")
	initWeights  = flag.String("init", "", "Start from a weights JSON file")
	outputFile   = flag.String("output", "", "Output weights file (JSON)")
	historyPath  = flag.String("history", "", "Record epochs into this sqlite database")
	curve        = flag.Bool("curve", false, "Scan the loss curve after training")
	landscape    = flag.Bool("landscape", false, "Scan the loss landscape after training")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	sizes := cfg.Sizes()

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      losslab Trainer                         ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  CPU:           %s (%d cores, AVX2=%v)\n", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.Supports(cpuid.AVX2))
	fmt.Printf("  Architecture:  %s\n", sizes)
	fmt.Printf("  Epochs:        %d\n", cfg.Epochs)
	fmt.Printf("  Learning Rate: %.4f\n", cfg.LearningRate)
	fmt.Printf("  Data Split:    %.2f\n", cfg.DataSplit)
	fmt.Printf("  Train Split:   %.2f\n", cfg.TrainSplit)
	if cfg.DataPath != "" {
		fmt.Printf("  Data:          %s\n", cfg.DataPath)
	} else {
		fmt.Printf("  Data:          %d synthetic samples\n", cfg.Samples)
	}
	fmt.Println()

	src := rand.NewSource(cfg.Seed)
	start := time.Now()
	corpus, err := dataset.LoadCorpus(cfg.DataPath, sizes, cfg.Samples, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(start)
	fmt.Printf("Loaded %d samples in %.2fs\n", len(corpus), loadTime.Seconds())

	session := engine.NewSession(corpus, src)
	session.Stats.DataLoadingTime = loadTime
	if err := session.SetLearningRate(cfg.LearningRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var prior *nn.Params
	if *initWeights != "" {
		prior, err = loadParams(*initWeights, sizes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *initWeights, err)
			os.Exit(1)
		}
	}

	var latest engine.ParamsUpdate
	session.Observe(func(u engine.ParamsUpdate) { latest = u })

	modelID, err := session.CreateModel(sizes, prior)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating model: %v\n", err)
		os.Exit(1)
	}
	info, err := session.CreateDataset(cfg.DataSplit, cfg.TrainSplit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dataset: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model %s | %d train / %d validation samples\n", modelID, info.Train, info.Val)

	var store *history.Store
	runID := history.NewRunID()
	if *historyPath != "" {
		store, err = history.Open(*historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		fmt.Printf("Recording run %s into %s\n", runID, *historyPath)
	}

	fmt.Println("\nStarting training...")
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		r, err := session.TrainEpoch()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at epoch %d: %v\n", epoch+1, err)
			os.Exit(1)
		}
		fmt.Printf("Epoch %d/%d | Train loss: %.6f acc: %.2f%% | Val loss: %.6f acc: %.2f%% | Time: %.3fs\n",
			r.Epoch, cfg.Epochs, r.TrainLoss, r.TrainAccuracy*100, r.ValLoss, r.ValAccuracy*100, r.TimeTaken.Seconds())
		if store != nil {
			if err := store.Record(runID, r); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}
	fmt.Printf("\nTraining complete! Total time: %.2fs\n", session.Stats.TotalTime.Seconds())

	if store != nil {
		if best, err := store.Best(runID); err == nil {
			fmt.Printf("Best validation loss %.6f at epoch %d\n", best.ValLoss, best.Epoch)
		}
	}

	if *curve {
		pts, err := session.ScanCurve(explore.CurvePoints, explore.CurveLo, explore.CurveHi)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning loss curve: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nLoss curve (x=0 current, x=1 anchor):")
		for _, p := range pts {
			fmt.Printf("  %6.2f  %.6f\n", p.X, p.Loss)
		}
	}
	if *landscape {
		g, err := session.ScanLandscape(explore.LandscapeSide, explore.LandscapeLo, explore.LandscapeHi)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning loss landscape: %v\n", err)
			os.Exit(1)
		}
		printLandscape(g)
	}

	utils.PrintTimingStats(&session.Stats, cfg.Epochs)

	if *outputFile != "" {
		fmt.Printf("\nSaving weights to %s...\n", *outputFile)
		if err := utils.SaveWeights(*outputFile, utils.ParamsToWeights(sizes, latest.Params)); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
	}
}

func buildConfig() (*utils.Config, error) {
	layers, err := utils.ParseArchitecture(*arch)
	if err != nil {
		return nil, err
	}
	cfg := &utils.Config{
		Architecture: layers,
		LearningRate: *learningRate,
		DataSplit:    *dataSplit,
		TrainSplit:   *trainSplit,
		Epochs:       *epochs,
		Seed:         *seed,
		DataPath:     *dataPath,
		Samples:      *samples,
	}
	return cfg, utils.ValidateConfig(cfg)
}

func loadParams(path string, sizes nn.LayerSizes) (*nn.Params, error) {
	w, err := utils.LoadWeights(path)
	if err != nil {
		return nil, err
	}
	if w.Sizes != sizes {
		return nil, fmt.Errorf("weights are %s, model is %s", w.Sizes, sizes)
	}
	return utils.WeightsToParams(w)
}

// printLandscape renders the grid with one shade character per cell, denser = higher loss.
func printLandscape(g explore.Grid) {
	const shades = " .:-=+*#%@"
	fmt.Println("\nLoss landscape:")
	heights, err := g.Heights()
	if err != nil {
		fmt.Printf("  flat landscape: every probe returned %.6f\n", g.Loss[0][0])
		return
	}
	side := len(g.Xs)
	for j := side - 1; j >= 0; j-- {
		fmt.Printf("  %6.2f ", g.Ys[j])
		for i := 0; i < side; i++ {
			h := heights[j*side+i]
			fmt.Printf("%c", shades[int(h*float64(len(shades)-1))])
		}
		fmt.Println()
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range g.Loss {
		lo, hi = math.Min(lo, floats.Min(row)), math.Max(hi, floats.Max(row))
	}
	fmt.Printf("  min %.6f, max %.6f\n", lo, hi)
}
