package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/torosent/fetchbench/internal/metrics"
	"github.com/torosent/fetchbench/internal/threshold"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

// Report is the machine-readable form of a finished run.
type Report struct {
	Summary    metrics.MetricRecord `json:"summary" yaml:"summary"`
	Thresholds []ThresholdOutcome   `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Passed     bool                 `json:"passed" yaml:"passed"`
}

// ThresholdOutcome is one evaluated threshold.
type ThresholdOutcome struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
}

// NewReport builds a Report with reporting precision applied.
func NewReport(rec metrics.MetricRecord, results []threshold.Result) Report {
	r := Report{Summary: rec.Rounded(), Passed: threshold.AllPassed(results)}
	for _, res := range results {
		r.Thresholds = append(r.Thresholds, ThresholdOutcome{
			Threshold: res.Threshold.Raw,
			Actual:    res.Actual,
			Pass:      res.Pass,
		})
	}
	return r
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, rec metrics.MetricRecord, results []threshold.Result) {
	r := rec.Rounded()
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	if r.RunID != "" {
		fmt.Fprintf(w, "Run:               %s\n", r.RunID)
	}
	fmt.Fprintf(w, "Mode:              %s\n", r.Mode)
	fmt.Fprintf(w, "Concurrency:       %d\n", r.Concurrency)
	fmt.Fprintf(w, "Targets:           %d\n", r.Total)
	fmt.Fprintf(w, "Successful:        %d\n", r.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", r.Failures)
	fmt.Fprintf(w, "Duration:          %.3fs\n", r.Elapsed)
	fmt.Fprintf(w, "Throughput:        %.2f req/s\n", r.Throughput)
	fmt.Fprintf(w, "Success Rate:      %.2f%%\n", r.SuccessRate*100)

	fmt.Fprintf(w, "\nLatency (%d timed):\n", r.Timed)
	fmt.Fprintf(w, "  Avg:             %.3fs\n", r.AvgLatency)
	fmt.Fprintf(w, "  P50:             %.3fs\n", r.P50Latency)
	if r.Timed >= metrics.MinP95Samples {
		fmt.Fprintf(w, "  P95:             %.3fs\n", r.P95Latency)
	} else {
		fmt.Fprintf(w, "  P95:             n/a (needs %d samples)\n", metrics.MinP95Samples)
	}
	if r.Timed > 0 {
		fmt.Fprintf(w, "  Min:             %.3fs\n", r.MinLatency)
		fmt.Fprintf(w, "  Max:             %.3fs\n", r.MaxLatency)
		fmt.Fprintf(w, "  StdDev:          %.3fs\n", r.StdDevLatency)
	}

	fmt.Fprintf(w, "\nResources (%d samples):\n", r.Samples)
	fmt.Fprintf(w, "  CPU:             %.2f%%\n", r.CPU)
	fmt.Fprintf(w, "  Memory:          %.2f MB (delta %+.2f MB)\n", r.Memory, r.MemoryDelta)
	fmt.Fprintf(w, "  Network I/O:     %.2f MB/s\n", r.NetworkRate)
	fmt.Fprintf(w, "  Disk Read:       %.2f MB/s\n", r.DiskRate)

	if len(results) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		PrintThresholdResults(w, results)
	}
}

// PrintThresholdResults writes one coloured verdict line per threshold.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	for _, res := range results {
		verdict := passColor.Sprint("PASS")
		if !res.Pass {
			verdict = failColor.Sprint("FAIL")
		}
		fmt.Fprintf(w, "  %s %s\n", verdict, res.Message)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, rec metrics.MetricRecord, results []threshold.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(rec, results))
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, rec metrics.MetricRecord, results []threshold.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(rec, results)); err != nil {
		return err
	}
	return enc.Close()
}
