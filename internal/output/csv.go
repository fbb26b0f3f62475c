package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/torosent/fetchbench/internal/metrics"
)

// CSVHeader is written once at the top of a results file.
var CSVHeader = []string{
	"Mode", "Concurrency", "Avg(s)", "P50(s)", "P95(s)",
	"CPU(%)", "Memory(MB)", "IO(MB/s)", "Throughput(req/s)", "SuccessRate",
}

// CSVRow renders rec as a results row under modeLabel.
func CSVRow(modeLabel string, rec metrics.MetricRecord) []string {
	r := rec.Rounded()
	return []string{
		modeLabel,
		strconv.Itoa(r.Concurrency),
		formatFloat(r.AvgLatency),
		formatFloat(r.P50Latency),
		formatFloat(r.P95Latency),
		formatFloat(r.CPU),
		formatFloat(r.Memory),
		formatFloat(r.IORate),
		formatFloat(r.Throughput),
		formatFloat(r.SuccessRate),
	}
}

// AppendCSV appends one row to path, creating the file and its header when
// needed. Concurrent writers to the same path are serialised with a lock file.
func AppendCSV(path, modeLabel string, rec metrics.MetricRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock results file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(CSVHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(CSVRow(modeLabel, rec)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
