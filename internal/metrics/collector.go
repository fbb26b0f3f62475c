package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/fetchbench/internal/probe"
)

// RunStats is the shared, concurrently updated aggregate for one run.
type RunStats struct {
	mu        sync.Mutex
	durations []time.Duration
	hist      *hdrhistogram.Histogram
	start     time.Time
	baseline  *probe.Snapshot

	total     int64
	claimed   atomic.Int64
	recorded  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64

	done     chan struct{}
	doneOnce sync.Once
}

// LatencySpread summarises the histogram of recorded durations.
type LatencySpread struct {
	Min    time.Duration
	Max    time.Duration
	StdDev time.Duration
}

// Snapshot is an immutable point-in-time copy of RunStats.
type Snapshot struct {
	Durations []time.Duration
	Successes int64
	Failures  int64
	Total     int64
	Start     time.Time
	Spread    LatencySpread
}

// Completed returns successes plus failures.
func (s Snapshot) Completed() int64 {
	return s.Successes + s.Failures
}

// NewRunStats creates run state for total targets. baseline is the resource
// reading taken at run start and may be nil.
func NewRunStats(total int, baseline *probe.Snapshot) *RunStats {
	if total < 0 {
		total = 0
	}
	// Track latencies from 1µs up to 10min with 3 significant figures.
	h := hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3)
	s := &RunStats{
		hist:     h,
		total:    int64(total),
		baseline: baseline,
		done:     make(chan struct{}),
	}
	if total == 0 {
		s.closeDone()
	}
	return s
}

// MarkStart sets the run start time. Only the first call has an effect.
func (s *RunStats) MarkStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		s.start = time.Now()
	}
}

// StartedAt returns the run start time, or the zero time before MarkStart.
func (s *RunStats) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// Baseline returns the resource reading taken at run start.
func (s *RunStats) Baseline() (probe.Snapshot, bool) {
	if s.baseline == nil {
		return probe.Snapshot{}, false
	}
	return *s.baseline, true
}

// Total returns the number of targets in the run.
func (s *RunStats) Total() int64 {
	return s.total
}

// Record accounts for one completed fetch. Durations are kept only when
// elapsed is positive. Record returns false, and changes nothing, once every
// target has already been accounted for.
func (s *RunStats) Record(elapsed time.Duration, success bool) bool {
	for {
		n := s.claimed.Load()
		if n >= s.total {
			return false
		}
		if s.claimed.CompareAndSwap(n, n+1) {
			break
		}
	}

	// Counters move first so a snapshot never holds more durations than
	// completed results.
	if success {
		s.successes.Add(1)
	} else {
		s.failures.Add(1)
	}

	if elapsed > 0 {
		s.mu.Lock()
		s.durations = append(s.durations, elapsed)
		us := elapsed.Microseconds()
		if us < s.hist.LowestTrackableValue() {
			us = s.hist.LowestTrackableValue()
		}
		if us > s.hist.HighestTrackableValue() {
			us = s.hist.HighestTrackableValue()
		}
		_ = s.hist.RecordValue(us)
		s.mu.Unlock()
	}

	if s.recorded.Add(1) == s.total {
		s.closeDone()
	}
	return true
}

// Completed returns how many targets have been fully recorded. The value only
// ever increases.
func (s *RunStats) Completed() int64 {
	return s.recorded.Load()
}

// Done is closed once every target has been recorded.
func (s *RunStats) Done() <-chan struct{} {
	return s.done
}

// Snapshot copies the current state without modifying it.
func (s *RunStats) Snapshot() Snapshot {
	s.mu.Lock()
	durations := make([]time.Duration, len(s.durations))
	copy(durations, s.durations)
	start := s.start
	var spread LatencySpread
	if s.hist.TotalCount() > 0 {
		spread = LatencySpread{
			Min:    time.Duration(s.hist.Min()) * time.Microsecond,
			Max:    time.Duration(s.hist.Max()) * time.Microsecond,
			StdDev: time.Duration(s.hist.StdDev() * float64(time.Microsecond)),
		}
	}
	s.mu.Unlock()

	return Snapshot{
		Durations: durations,
		Successes: s.successes.Load(),
		Failures:  s.failures.Load(),
		Total:     s.total,
		Start:     start,
		Spread:    spread,
	}
}

func (s *RunStats) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
