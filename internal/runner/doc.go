// Package runner provides the dispatcher that drives a benchmark run.
//
// A Runner fans a fixed target list out to a bounded number of workers, each
// calling the configured [fetcher.Fetcher] once per target and recording the
// result into a shared [metrics.RunStats]:
//   - At most Concurrency fetches are in flight at any moment
//   - Every target is accounted for exactly once, including targets never
//     dispatched because the run was cancelled (recorded as failures)
//   - A panicking fetcher is recorded as a failed fetch with no timing
//   - Dispatch can be paced with a token bucket (RatePerSecond)
//
// # Basic Usage
//
//	r, err := runner.New(runner.Options{
//		Concurrency: 8,
//		Targets:     urls,
//		Fetcher:     backend,
//	})
//	if err != nil {
//		return err
//	}
//	res := r.Run(ctx)
//	<-res.Stats.Done()
//
// Completion order is arbitrary; only the aggregate counts are defined.
package runner
