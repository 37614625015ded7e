// losslab-client: Drives a losslab-server over its stdin/stdout
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"losslab/engine"
	"losslab/explore"
	"losslab/protocol"
	"losslab/utils"
)

var (
	serverBin    = flag.String("server", "losslab-server", "Server binary to spawn")
	dataPath     = flag.String("data", "", "Corpus passed to the server")
	arch         = flag.String("arch", utils.DefaultArchitecture, "Layer widths: input hidden output")
	epochs       = flag.Int("epochs", 10, "Training epochs")
	learningRate = flag.Float64("lr", utils.DefaultLearningRate, "Learning rate")
	dataSplit    = flag.Float64("data-split", utils.DefaultDataSplit, "Fraction of the corpus to use")
	trainSplit   = flag.Float64("train-split", utils.DefaultTrainSplit, "Fraction of the used corpus to train on, below 1 so validation is not empty")
	probes       = flag.Int("probes", 10, "Loss curve points to request after training")
	verbose      = flag.Bool("verbose", false, "Verbose output")
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

	args := []string{"-arch", *arch}
	if *dataPath != "" {
		args = append(args, "-data", *dataPath)
	}
	if *verbose {
		args = append(args, "-verbose")
	}
	cmd := exec.Command(*serverBin, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		fatal(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		fatal(err)
	}
	if err := cmd.Start(); err != nil {
		fatal(fmt.Errorf("start %s: %w", *serverBin, err))
	}
	log("spawned %s (pid %d)", *serverBin, cmd.Process.Pid)

	proto := protocol.NewProtocol(stdout, stdin)
	var tracker protocol.Tracker
	start := time.Now()

	resp, err := proto.Call(&protocol.Message{Type: protocol.MsgCreateModel, Payload: protocol.CreateModelRequest{Sizes: cfg.Sizes()}})
	if err != nil {
		fatal(err)
	}
	id, _ := protocol.ModelID(resp)
	tracker.Track(id)
	fmt.Printf("Model %s (%s)\n", id, cfg.Sizes())

	mustCall(proto, &protocol.Message{Type: protocol.MsgSetLearningRate, Payload: protocol.ValueRequest{Value: *learningRate}})
	resp = mustCall(proto, &protocol.Message{Type: protocol.MsgCreateDataset, Payload: protocol.DatasetRequest{DataSplit: *dataSplit, TrainSplit: *trainSplit}})
	if info, ok := resp.Payload.(engine.DatasetInfo); ok {
		fmt.Printf("Dataset: %d train / %d validation\n", info.Train, info.Val)
	}

	for epoch := 0; epoch < *epochs; epoch++ {
		resp := mustCall(proto, &protocol.Message{Type: protocol.MsgTrain})
		if !fresh(&tracker, resp) {
			continue
		}
		r := resp.Payload.(protocol.TrainResponse).Report
		fmt.Printf("Epoch %d/%d | Train loss: %.6f acc: %.2f%% | Val loss: %.6f acc: %.2f%%\n",
			r.Epoch, *epochs, r.TrainLoss, r.TrainAccuracy*100, r.ValLoss, r.ValAccuracy*100)
	}

	resp = mustCall(proto, &protocol.Message{Type: protocol.MsgPredict, Payload: protocol.PredictRequest{}})
	if fresh(&tracker, resp) {
		p := resp.Payload.(engine.Prediction)
		fmt.Printf("Random sample predicted as class %d (%.2f%%)\n", p.Class, p.A2[p.Class]*100)
	}

	fmt.Println("Loss curve:")
	for i := 0; i < *probes; i++ {
		x := explore.Sample(explore.CurveLo, explore.CurveHi, i, *probes)
		resp := mustCall(proto, &protocol.Message{Type: protocol.MsgLossCurve, Payload: protocol.ProbeRequest{X: x}})
		if fresh(&tracker, resp) {
			fmt.Printf("  %6.2f  %.6f\n", x, resp.Payload.(engine.ProbeResult).Value)
		}
	}

	if err := proto.SendDone(); err != nil {
		log("Error: %v", err)
	}
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		log("server exited: %v", err)
	}
	log("Session complete (%.2fs)", time.Since(start).Seconds())
}

// fresh reports whether resp belongs to the tracked model, logging dropped results.
func fresh(t *protocol.Tracker, resp *protocol.Message) bool {
	id, ok := protocol.ModelID(resp)
	if !ok {
		return true
	}
	if err := t.Check(id); err != nil {
		log("dropping %s: %v", resp.Type, err)
		return false
	}
	return true
}

func mustCall(p *protocol.Protocol, req *protocol.Message) *protocol.Message {
	resp, err := p.Call(req)
	if err != nil {
		var remote *protocol.RemoteError
		if errors.As(err, &remote) {
			fatal(fmt.Errorf("%s rejected: %s", req.Type, remote.Message))
		}
		fatal(err)
	}
	return resp
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[CLIENT] "+format+"\n", args...)
	}
}
