package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/torosent/fetchbench/internal/monitor"
	"github.com/torosent/fetchbench/internal/probe"
)

// MinP95Samples is the smallest number of durations for which p95 is reported.
const MinP95Samples = 20

// RunInfo identifies the run a record belongs to.
type RunInfo struct {
	RunID       string
	Mode        string
	Concurrency int
}

// MetricRecord is the derived summary of a run or of a run in progress.
// Latencies are seconds, memory is MB, rates are MB/s.
type MetricRecord struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Mode        string    `json:"mode" yaml:"mode"`
	Concurrency int       `json:"concurrency" yaml:"concurrency"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	Elapsed     float64   `json:"elapsed_s" yaml:"elapsed_s"`

	Total     int64 `json:"total" yaml:"total"`
	Successes int64 `json:"successes" yaml:"successes"`
	Failures  int64 `json:"failures" yaml:"failures"`
	Timed     int   `json:"timed" yaml:"timed"`

	AvgLatency    float64 `json:"avg_s" yaml:"avg_s"`
	P50Latency    float64 `json:"p50_s" yaml:"p50_s"`
	P95Latency    float64 `json:"p95_s" yaml:"p95_s"`
	MinLatency    float64 `json:"min_s" yaml:"min_s"`
	MaxLatency    float64 `json:"max_s" yaml:"max_s"`
	StdDevLatency float64 `json:"stddev_s" yaml:"stddev_s"`

	CPU         float64 `json:"cpu_percent" yaml:"cpu_percent"`
	Memory      float64 `json:"memory_mb" yaml:"memory_mb"`
	MemoryDelta float64 `json:"memory_delta_mb" yaml:"memory_delta_mb"`
	DiskRate    float64 `json:"disk_mb_s" yaml:"disk_mb_s"`
	NetworkRate float64 `json:"network_mb_s" yaml:"network_mb_s"`
	IORate      float64 `json:"io_mb_s" yaml:"io_mb_s"`
	Samples     int     `json:"resource_samples" yaml:"resource_samples"`

	Throughput  float64 `json:"throughput_rps" yaml:"throughput_rps"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// Aggregate computes a MetricRecord. It does not modify its inputs and returns
// identical output for identical input.
func Aggregate(info RunInfo, snap Snapshot, res monitor.Summary, elapsed time.Duration) MetricRecord {
	sorted := make([]time.Duration, len(snap.Durations))
	copy(sorted, snap.Durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rec := MetricRecord{
		RunID:       info.RunID,
		Mode:        info.Mode,
		Concurrency: info.Concurrency,
		StartedAt:   snap.Start,
		Elapsed:     elapsed.Seconds(),
		Total:       snap.Total,
		Successes:   snap.Successes,
		Failures:    snap.Failures,
		Timed:       len(sorted),

		AvgLatency:    Mean(sorted),
		P50Latency:    Median(sorted),
		P95Latency:    P95(sorted),
		MinLatency:    snap.Spread.Min.Seconds(),
		MaxLatency:    snap.Spread.Max.Seconds(),
		StdDevLatency: snap.Spread.StdDev.Seconds(),

		CPU:         res.CPUAvg,
		Memory:      probe.BytesToMB(res.MemoryAvgBytes),
		MemoryDelta: probe.BytesToMB(res.MemoryDeltaBytes),
		DiskRate:    probe.BytesToMB(res.DiskRate),
		NetworkRate: probe.BytesToMB(res.NetworkRate),
		Samples:     res.Samples,
	}
	rec.IORate = rec.NetworkRate

	if snap.Total > 0 {
		rec.SuccessRate = float64(snap.Successes) / float64(snap.Total)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		rec.Throughput = float64(snap.Completed()) / secs
	}
	return rec
}

// Mean returns the average of durations in seconds, or 0 when empty.
func Mean(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var sum float64
	for _, d := range durations {
		sum += d.Seconds()
	}
	return sum / float64(len(durations))
}

// Median returns the median of sorted durations in seconds, or 0 when empty.
// For an even count it is the mean of the two middle values.
func Median(sorted []time.Duration) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2].Seconds()
	}
	return (sorted[n/2-1].Seconds() + sorted[n/2].Seconds()) / 2
}

// P95 returns the nearest-rank 95th percentile of sorted durations in seconds,
// or 0 when fewer than MinP95Samples are present.
func P95(sorted []time.Duration) float64 {
	if len(sorted) < MinP95Samples {
		return 0
	}
	return sorted[NearestRankIndex(len(sorted), 0.95)].Seconds()
}

// NearestRankIndex returns ceil(q*n)-1 clamped to [0, n-1].
func NearestRankIndex(n int, q float64) int {
	if n <= 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(n))) - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// Rounded returns a copy with the reporting precision applied: latencies to
// 3 decimals, resources and rates to 2, success rate to 4.
func (r MetricRecord) Rounded() MetricRecord {
	out := r
	out.Elapsed = round(r.Elapsed, 3)
	out.AvgLatency = round(r.AvgLatency, 3)
	out.P50Latency = round(r.P50Latency, 3)
	out.P95Latency = round(r.P95Latency, 3)
	out.MinLatency = round(r.MinLatency, 3)
	out.MaxLatency = round(r.MaxLatency, 3)
	out.StdDevLatency = round(r.StdDevLatency, 3)
	out.CPU = round(r.CPU, 2)
	out.Memory = round(r.Memory, 2)
	out.MemoryDelta = round(r.MemoryDelta, 2)
	out.DiskRate = round(r.DiskRate, 2)
	out.NetworkRate = round(r.NetworkRate, 2)
	out.IORate = round(r.IORate, 2)
	out.Throughput = round(r.Throughput, 2)
	out.SuccessRate = round(r.SuccessRate, 4)
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
