// Package threshold evaluates pass/fail assertions against a run summary.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/fetchbench/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "latency", "success", "cpu"
	Aggregate string  // e.g., "p95", "avg", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

type extractor func(metrics.MetricRecord) float64

// catalog maps metric and aggregate to the MetricRecord field it reads.
// Latencies are seconds, memory MB, rates MB/s or fetches/s.
var catalog = map[string]map[string]extractor{
	"latency": {
		"avg": func(r metrics.MetricRecord) float64 { return r.AvgLatency },
		"p50": func(r metrics.MetricRecord) float64 { return r.P50Latency },
		"p95": func(r metrics.MetricRecord) float64 { return r.P95Latency },
		"min": func(r metrics.MetricRecord) float64 { return r.MinLatency },
		"max": func(r metrics.MetricRecord) float64 { return r.MaxLatency },
	},
	"success": {
		"rate":  func(r metrics.MetricRecord) float64 { return r.SuccessRate },
		"count": func(r metrics.MetricRecord) float64 { return float64(r.Successes) },
	},
	"failure": {
		"rate": func(r metrics.MetricRecord) float64 {
			if r.Total == 0 {
				return 0
			}
			return float64(r.Failures) / float64(r.Total)
		},
		"count": func(r metrics.MetricRecord) float64 { return float64(r.Failures) },
	},
	"throughput": {
		"rate": func(r metrics.MetricRecord) float64 { return r.Throughput },
	},
	"cpu": {
		"avg": func(r metrics.MetricRecord) float64 { return r.CPU },
	},
	"memory": {
		"avg":   func(r metrics.MetricRecord) float64 { return r.Memory },
		"delta": func(r metrics.MetricRecord) float64 { return r.MemoryDelta },
	},
	"io": {
		"rate": func(r metrics.MetricRecord) float64 { return r.IORate },
	},
	"disk": {
		"rate": func(r metrics.MetricRecord) float64 { return r.DiskRate },
	},
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against rec.
func (e *Evaluator) Evaluate(rec metrics.MetricRecord) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, rec))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, rec metrics.MetricRecord) Result {
	extract, ok := catalog[t.Metric][t.Aggregate]
	if !ok {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("error: unsupported threshold %s:%s", t.Metric, t.Aggregate),
		}
	}

	actual := extract(rec)
	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.3f %s %.3f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "latency:p95 < 2"          (latency percentile in seconds)
// - "latency:avg < 1.5"        (average latency in seconds)
// - "success:rate >= 0.95"     (success rate as decimal)
// - "failure:count == 0"       (failure count)
// - "throughput:rate > 10"     (fetches per second)
// - "cpu:avg < 80"             (CPU percent)
// - "memory:avg < 2048"        (memory MB)
// - "io:rate < 50"             (network MB/s)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency:p95 < 2')", s)
	}

	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := catalog[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(sortedKeys(catalog), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(sortedKeys(aggregates), ", "))
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
