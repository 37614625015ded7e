// losslab-server: Training session served over stdin/stdout (gob frames)
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"losslab/dataset"
	"losslab/engine"
	"losslab/protocol"
	"losslab/utils"

	"golang.org/x/exp/rand"
)

var (
	arch     = flag.String("arch", utils.DefaultArchitecture, "Layer widths used to parse the corpus")
	dataPath = flag.String("data", "", "Label-first pixel CSV (empty = synthetic data)")
	samples  = flag.Int("samples", 5000, "Number of synthetic samples")
	seed     = flag.Uint64("seed", 1, "Random seed")
	verbose  = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose
	// stdout carries the protocol
	utils.Output = os.Stderr

	layers, err := utils.ParseArchitecture(*arch)
	if err != nil || len(layers) != 3 {
		fmt.Fprintf(os.Stderr, "Invalid architecture %q\n", *arch)
		os.Exit(2)
	}
	cfg := &utils.Config{Architecture: layers}

	log("losslab server starting (corpus %s)", describe(*dataPath))
	start := time.Now()
	src := rand.NewSource(*seed)
	corpus, err := dataset.LoadCorpus(*dataPath, cfg.Sizes(), *samples, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	log("dataset loaded! (%d samples, %.2fs)", len(corpus), time.Since(start).Seconds())

	session := engine.NewSession(corpus, src)
	proto := protocol.NewProtocol(os.Stdin, os.Stdout)
	log("Waiting for client...")

	if err := protocol.Serve(proto, session, log); err != nil {
		log("Error: %v", err)
		os.Exit(1)
	}
	utils.PrintTimingStats(&session.Stats, max(session.Epoch(), 1))
	log("Server done")
}

func describe(path string) string {
	if path == "" {
		return fmt.Sprintf("%d synthetic samples", *samples)
	}
	return path
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[SERVER] "+format+"\n", args...)
	}
}
