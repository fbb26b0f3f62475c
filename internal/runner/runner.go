package runner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/fetchbench/internal/fetcher"
	"github.com/torosent/fetchbench/internal/metrics"
)

// Result captures execution summary.
type Result struct {
	Stats      *metrics.RunStats
	Duration   time.Duration
	Dispatched int64 // targets handed to a worker
	Skipped    int64 // targets never dispatched, recorded as failures
}

// Runner dispatches one fetch per target with bounded concurrency.
type Runner struct {
	opt    Options
	stats  *metrics.RunStats
	logger *slog.Logger
}

// New validates opt and returns a Runner ready to Run once.
func New(opt Options) (*Runner, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	opt.normalize()
	return &Runner{
		opt:    opt,
		stats:  opt.Stats,
		logger: opt.Logger.With("component", "runner"),
	}, nil
}

// Stats returns the run's shared statistics.
func (r *Runner) Stats() *metrics.RunStats {
	return r.stats
}

// Run fetches every target and returns once all workers have exited. On
// return every target has been recorded and Stats().Done() is closed.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	r.stats.MarkStart()

	targets := r.opt.Targets
	limiter := r.opt.LimiterFactory(r.opt.RatePerSecond)
	jobs := make(chan string)
	stoppedAt := make(chan int, 1)
	var dispatched atomic.Int64

	// Scheduler: serializes rate limiting to avoid burst overshoot across workers.
	go func() {
		defer close(jobs)
		for i, target := range targets {
			if err := limiter.Wait(ctx); err != nil {
				stoppedAt <- i
				return
			}
			select {
			case jobs <- target:
				dispatched.Add(1)
			case <-ctx.Done():
				stoppedAt <- i
				return
			}
		}
		stoppedAt <- len(targets)
	}()

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for target := range jobs {
				res := fetcher.Safe(ctx, r.opt.Fetcher, target)
				r.stats.Record(res.Elapsed, res.Success)
			}
		}()
	}
	wg.Wait()

	stop := <-stoppedAt
	skipped := len(targets) - stop
	if skipped > 0 {
		r.logger.Warn("run cancelled before every target was dispatched", "skipped", skipped, "dispatched", dispatched.Load())
		for range skipped {
			r.stats.Record(0, false)
		}
	}

	return Result{
		Stats:      r.stats,
		Duration:   time.Since(start),
		Dispatched: dispatched.Load(),
		Skipped:    int64(skipped),
	}
}
