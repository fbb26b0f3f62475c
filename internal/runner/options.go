package runner

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/torosent/fetchbench/internal/fetcher"
	"github.com/torosent/fetchbench/internal/metrics"
)

var (
	ErrNoTargets          = errors.New("no targets to fetch")
	ErrInvalidConcurrency = errors.New("concurrency must be >= 1")
	ErrNoFetcher          = errors.New("fetcher is required")
)

// Options configure the Runner.
type Options struct {
	Concurrency    int                         // maximum fetches in flight
	Targets        []string                    // fetched once each, in dispatch order
	Fetcher        fetcher.Fetcher             // fetch backend (required)
	RatePerSecond  int                         // dispatch pacing (0 means unlimited)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	Stats          *metrics.RunStats           // optional; must have Total() == len(Targets)
	Logger         *slog.Logger
}

func (o *Options) validate() error {
	if len(o.Targets) == 0 {
		return ErrNoTargets
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidConcurrency, o.Concurrency)
	}
	if o.Fetcher == nil {
		return ErrNoFetcher
	}
	if o.Stats != nil && o.Stats.Total() != int64(len(o.Targets)) {
		return fmt.Errorf("run stats sized for %d targets, got %d", o.Stats.Total(), len(o.Targets))
	}
	return nil
}

func (o *Options) normalize() {
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Concurrency > len(o.Targets) {
		o.Concurrency = len(o.Targets)
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
	if o.Stats == nil {
		o.Stats = metrics.NewRunStats(len(o.Targets), nil)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}
