package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics and Logf lines are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// LogOutput receives Logf lines. Defaults to os.Stderr so it never mixes with
// a protocol stream on stdout.
var LogOutput io.Writer = os.Stderr

// Logf writes one prefixed line to LogOutput when Verbose is set.
func Logf(prefix, format string, args ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(LogOutput, "["+prefix+"] "+format+"\n", args...)
}

// TimingStats holds timing information for different operations
type TimingStats struct {
	TotalTime        time.Duration
	DataLoadingTime  time.Duration
	ModelInitTime    time.Duration
	ForwardPassTime  time.Duration
	BackwardPassTime time.Duration
	MetricsTime      time.Duration
	ValidationTime   time.Duration
	ProbeTime        time.Duration
}

// Add accumulates o into s.
func (s *TimingStats) Add(o TimingStats) {
	s.TotalTime += o.TotalTime
	s.DataLoadingTime += o.DataLoadingTime
	s.ModelInitTime += o.ModelInitTime
	s.ForwardPassTime += o.ForwardPassTime
	s.BackwardPassTime += o.BackwardPassTime
	s.MetricsTime += o.MetricsTime
	s.ValidationTime += o.ValidationTime
	s.ProbeTime += o.ProbeTime
}

func percent(part, whole time.Duration) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, epochs int) {
	if !Verbose || epochs <= 0 {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total training time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Average time per epoch: %v\n", stats.TotalTime/time.Duration(epochs))
	fmt.Fprintf(Output, "Epochs completed: %d\n", epochs)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, percent(stats.DataLoadingTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Model initialization: %v (%.1f%%)\n", stats.ModelInitTime, percent(stats.ModelInitTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, percent(stats.ForwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Backward pass + update: %v (%.1f%%)\n", stats.BackwardPassTime, percent(stats.BackwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Train metrics: %v (%.1f%%)\n", stats.MetricsTime, percent(stats.MetricsTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Validation: %v (%.1f%%)\n", stats.ValidationTime, percent(stats.ValidationTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Loss probes: %v (%.1f%%)\n", stats.ProbeTime, percent(stats.ProbeTime, stats.TotalTime))
	fmt.Fprintln(Output, "\nPerformance metrics:")
	fmt.Fprintf(Output, "  Average forward pass time: %v\n", stats.ForwardPassTime/time.Duration(epochs))
	fmt.Fprintf(Output, "  Average backward pass time: %v\n", stats.BackwardPassTime/time.Duration(epochs))
}
