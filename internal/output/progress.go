package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/fetchbench/internal/metrics"
	"github.com/torosent/fetchbench/internal/monitor"
	"github.com/torosent/fetchbench/internal/probe"
)

// DefaultProgressInterval is used when ProgressOptions.Interval is unset.
const DefaultProgressInterval = 5 * time.Second

// Progress is one intermediate report emitted while a run is in flight.
// Record uses the same formulas as the final report; its resource rates are
// measured against the previous tick rather than the run start.
type Progress struct {
	Record    metrics.MetricRecord
	Elapsed   time.Duration
	Completed int64
	Total     int64
	Resource  probe.Snapshot
}

// ProgressOptions configure a ProgressReporter.
type ProgressOptions struct {
	Stats    *metrics.RunStats
	Probe    probe.Probe // optional
	Info     metrics.RunInfo
	Interval time.Duration
	Writer   io.Writer
	Logger   *slog.Logger
}

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	opt         ProgressOptions
	subscribers []func(Progress)
	done        chan struct{}
	finished    chan struct{}
	stopOnce    sync.Once
	active      int32

	prev    probe.Snapshot
	hasPrev bool
}

// NewProgressReporter creates a progress reporter for opt.Stats.
func NewProgressReporter(opt ProgressOptions) *ProgressReporter {
	if opt.Interval <= 0 {
		opt.Interval = DefaultProgressInterval
	}
	if opt.Writer == nil {
		opt.Writer = io.Discard
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	p := &ProgressReporter{
		opt:      opt,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	if base, ok := opt.Stats.Baseline(); ok {
		p.prev, p.hasPrev = base, true
	}
	return p
}

// Subscribe registers fn to receive every tick. It must be called before Start.
func (p *ProgressReporter) Subscribe(fn func(Progress)) {
	if fn != nil {
		p.subscribers = append(p.subscribers, fn)
	}
}

// Start begins emitting progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates and waits for the loop to exit.
// It is safe to call more than once and before Start.
func (p *ProgressReporter) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	if atomic.LoadInt32(&p.active) == 1 {
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	ticker := time.NewTicker(p.opt.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Tick(time.Now())
		case <-p.opt.Stats.Done():
			return
		case <-p.done:
			return
		}
	}
}

// Tick computes and emits one progress report as of now.
func (p *ProgressReporter) Tick(now time.Time) Progress {
	snap := p.opt.Stats.Snapshot()
	elapsed := time.Duration(0)
	if !snap.Start.IsZero() {
		elapsed = now.Sub(snap.Start)
	}

	var summary monitor.Summary
	var cur probe.Snapshot
	if p.opt.Probe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), probe.DefaultTimeout)
		s, err := p.opt.Probe.Snapshot(ctx)
		cancel()
		if err != nil {
			p.opt.Logger.Debug("progress probe failed", "error", err)
		} else {
			cur = s
			if cur.At.IsZero() {
				cur.At = now
			}
			summary = p.incremental(cur)
		}
	}

	rec := metrics.Aggregate(p.opt.Info, snap, summary, elapsed)
	prog := Progress{
		Record:    rec,
		Elapsed:   elapsed,
		Completed: snap.Completed(),
		Total:     snap.Total,
		Resource:  cur,
	}
	fmt.Fprintln(p.opt.Writer, FormatProgress(prog))
	for _, fn := range p.subscribers {
		fn(prog)
	}
	return prog
}

// incremental derives a one-sample summary whose rates cover the interval
// since the previous reading.
func (p *ProgressReporter) incremental(cur probe.Snapshot) monitor.Summary {
	s := monitor.Summary{
		CPUAvg:         cur.CPUPercent,
		MemoryAvgBytes: float64(cur.MemoryUsedBytes),
		Samples:        1,
	}
	if p.hasPrev {
		if secs := cur.At.Sub(p.prev.At).Seconds(); secs > 0 {
			s.DiskRate = deltaRate(p.prev.DiskReadBytes, cur.DiskReadBytes, secs)
			s.NetworkRate = deltaRate(p.prev.NetworkBytes, cur.NetworkBytes, secs)
		}
		s.MemoryDeltaBytes = float64(cur.MemoryUsedBytes) - float64(p.prev.MemoryUsedBytes)
	}
	p.prev, p.hasPrev = cur, true
	return s
}

func deltaRate(prev, cur uint64, secs float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / secs
}

// FormatProgress renders the single-line progress format.
func FormatProgress(p Progress) string {
	r := p.Record.Rounded()
	return fmt.Sprintf("[Progress] S=%d F=%d/%d | avg=%.3fs p50=%.3fs p95=%.3fs | CPU=%.1f%% Memory=%.0fMB | Net I/O=%.2fMB/s | Throughput=%.2f req/s | SuccessRate=%.2f%%",
		r.Successes, r.Failures, p.Total,
		r.AvgLatency, r.P50Latency, r.P95Latency,
		r.CPU, r.Memory, r.NetworkRate, r.Throughput, r.SuccessRate*100)
}
