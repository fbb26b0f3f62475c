// Package metrics holds the shared state of a benchmark run and the pure
// aggregation that turns it into a report record.
//
// # RunStats
//
// [RunStats] is created once per run with the number of targets and is shared
// by the dispatcher, the progress reporter and the final aggregation:
//
//	stats := metrics.NewRunStats(len(targets), nil)
//	stats.MarkStart()
//	stats.Record(elapsed, success) // from any worker goroutine
//	<-stats.Done()                 // closed once every target is accounted for
//
// Counters are atomics and the duration slice is guarded by a mutex. The two
// are updated independently, so a reader taking a [Snapshot] while results are
// still arriving may see a result counted before its duration is appended.
// Progress reports tolerate that; the final report is taken after Done.
//
// # Aggregation
//
// [Aggregate] computes a [MetricRecord] from a [Snapshot], a resource
// summary and the elapsed wall clock. It is deterministic and is used for both
// progress lines and the final report so the two never disagree on formulas:
//
//   - average and median over recorded durations
//   - p95 as the nearest-rank value at index ceil(0.95*n)-1 of the sorted
//     durations, reported only when at least [MinP95Samples] are present
//   - success rate over the full target count
//   - throughput as completed fetches per second of wall clock
//
// Values are kept at full precision; [MetricRecord.Rounded] applies the fixed
// reporting precision.
package metrics
