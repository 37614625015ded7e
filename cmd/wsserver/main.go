// losslab-wsserver: Training session served to browsers over a websocket (JSON frames)
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"losslab/dataset"
	"losslab/engine"
	"losslab/protocol"
	"losslab/utils"

	"golang.org/x/exp/rand"
)

var (
	addr     = flag.String("addr", ":8080", "Listen address")
	arch     = flag.String("arch", utils.DefaultArchitecture, "Layer widths used to parse the corpus")
	dataPath = flag.String("data", "", "Label-first pixel CSV (empty = synthetic data)")
	samples  = flag.Int("samples", 5000, "Number of synthetic samples")
	seed     = flag.Uint64("seed", 1, "Random seed")
	verbose  = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	layers, err := utils.ParseArchitecture(*arch)
	if err != nil || len(layers) != 3 {
		fmt.Fprintf(os.Stderr, "Invalid architecture %q\n", *arch)
		os.Exit(2)
	}
	cfg := &utils.Config{Architecture: layers}

	start := time.Now()
	src := rand.NewSource(*seed)
	corpus, err := dataset.LoadCorpus(*dataPath, cfg.Sizes(), *samples, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	log("dataset loaded! (%d samples, %.2fs)", len(corpus), time.Since(start).Seconds())

	ws := protocol.NewWSServer(engine.NewSession(corpus, src), log)
	http.Handle("/ws", ws.Handler())

	fmt.Printf("WebSocket server listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start WebSocket server: %v\n", err)
		os.Exit(1)
	}
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[WS] "+format+"\n", args...)
	}
}
