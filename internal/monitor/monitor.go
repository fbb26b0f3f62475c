// Package monitor samples host resource usage in the background for the
// duration of a benchmark run and reduces the samples to run-level figures.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/fetchbench/internal/probe"
)

// DefaultInterval is the sampling period used when Options.Interval is unset.
const DefaultInterval = 500 * time.Millisecond

// Summary is the reduction of a sample series.
// Rates are bytes per second over the whole run.
type Summary struct {
	CPUAvg           float64 `json:"cpu_avg"`
	MemoryAvgBytes   float64 `json:"memory_avg_bytes"`
	MemoryDeltaBytes float64 `json:"memory_delta_bytes"`
	DiskRate         float64 `json:"disk_rate"`
	NetworkRate      float64 `json:"network_rate"`
	Samples          int     `json:"samples"`
}

// Options configure a Monitor.
type Options struct {
	Probe       probe.Probe   // counter source (required)
	Interval    time.Duration // sampling period
	StopTimeout time.Duration // upper bound on waiting for the loop in Stop
	Logger      *slog.Logger
}

func (o *Options) normalize() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = o.Interval + probe.DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Monitor owns the sampling goroutine and the collected series.
type Monitor struct {
	opt      Options
	mu       sync.Mutex
	baseline *probe.Snapshot
	samples  []probe.Snapshot
	cancel   context.CancelFunc
	finished chan struct{}
	active   int32
}

// New creates a Monitor. It does not start sampling.
func New(opt Options) *Monitor {
	opt.normalize()
	return &Monitor{
		opt:      opt,
		finished: make(chan struct{}),
	}
}

// Start records the baseline snapshot and launches the sampling loop.
// Calling Start more than once has no effect.
func (m *Monitor) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&m.active, 0, 1) {
		return
	}

	if snap, err := m.opt.Probe.Snapshot(ctx); err == nil {
		m.mu.Lock()
		m.baseline = &snap
		m.mu.Unlock()
	} else {
		m.opt.Logger.Debug("baseline sample failed", slog.Any("error", err))
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.run(loopCtx)
}

// Baseline returns the snapshot taken by Start, if it succeeded.
func (m *Monitor) Baseline() (probe.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseline == nil {
		return probe.Snapshot{}, false
	}
	return *m.baseline, true
}

// Stop ends sampling and reduces the series over totalElapsed.
// It waits at most StopTimeout for an in-flight sample to finish.
func (m *Monitor) Stop(totalElapsed time.Duration) Summary {
	if atomic.CompareAndSwapInt32(&m.active, 1, 2) {
		m.cancel()
		timer := time.NewTimer(m.opt.StopTimeout)
		select {
		case <-m.finished:
		case <-timer.C:
			m.opt.Logger.Warn("resource sampler did not stop in time", slog.Duration("timeout", m.opt.StopTimeout))
		}
		timer.Stop()
	}

	m.mu.Lock()
	baseline := m.baseline
	samples := append([]probe.Snapshot(nil), m.samples...)
	m.mu.Unlock()

	return Reduce(baseline, samples, totalElapsed)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.finished)

	ticker := time.NewTicker(m.opt.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last reading so short runs still have an end point.
			m.sample(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	snap, err := m.opt.Probe.Snapshot(ctx)
	if err != nil {
		m.opt.Logger.Debug("resource sample skipped", slog.Any("error", err))
		return
	}
	m.mu.Lock()
	m.samples = append(m.samples, snap)
	m.mu.Unlock()
}

// Reduce computes a Summary from a baseline and a sample series.
// CPU and memory are averaged over samples; disk and network rates are the
// counter delta between the first reference point and the last sample divided
// by elapsed. The reference point is the baseline, or the first sample when no
// baseline was taken.
func Reduce(baseline *probe.Snapshot, samples []probe.Snapshot, elapsed time.Duration) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	var cpuSum, memSum float64
	for _, s := range samples {
		cpuSum += s.CPUPercent
		memSum += float64(s.MemoryUsedBytes)
	}
	n := float64(len(samples))

	first := samples[0]
	if baseline != nil {
		first = *baseline
	}
	last := samples[len(samples)-1]

	summary := Summary{
		CPUAvg:           cpuSum / n,
		MemoryAvgBytes:   memSum / n,
		MemoryDeltaBytes: float64(last.MemoryUsedBytes) - float64(first.MemoryUsedBytes),
		Samples:          len(samples),
	}

	secs := elapsed.Seconds()
	if secs > 0 {
		summary.DiskRate = counterRate(first.DiskReadBytes, last.DiskReadBytes, secs)
		summary.NetworkRate = counterRate(first.NetworkBytes, last.NetworkBytes, secs)
	}
	return summary
}

// counterRate returns zero when the counter went backwards (reset or wrap).
func counterRate(start, end uint64, secs float64) float64 {
	if end < start || secs <= 0 {
		return 0
	}
	return float64(end-start) / secs
}
