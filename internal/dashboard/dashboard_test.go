package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/fetchbench/internal/metrics"
	"github.com/torosent/fetchbench/internal/output"
)

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		expected  int
	}{
		{"none", 0, 10, 0},
		{"half", 5, 10, 50},
		{"all", 10, 10, 100},
		{"no targets", 0, 0, 100},
		{"clamped", 12, 10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := completionPercent(tt.completed, tt.total); got != tt.expected {
				t.Errorf("completionPercent(%d, %d) = %d, expected %d", tt.completed, tt.total, got, tt.expected)
			}
		})
	}
}

func TestFormatLatencyHidesP95BelowMinimum(t *testing.T) {
	rec := metrics.MetricRecord{Timed: 5, AvgLatency: 1.5, P95Latency: 0}
	if got := formatLatency(rec); !strings.Contains(got, "P95:  n/a") {
		t.Errorf("expected p95 n/a, got %q", got)
	}

	rec.Timed = 40
	rec.P95Latency = 2.25
	if got := formatLatency(rec); !strings.Contains(got, "P95:  2.250s") {
		t.Errorf("expected p95 value, got %q", got)
	}
}

func TestFormatOutcomeRows(t *testing.T) {
	rows := formatOutcomeRows(metrics.MetricRecord{Successes: 4})
	if len(rows) != 2 || !strings.Contains(rows[1], "No failures") {
		t.Errorf("unexpected rows: %v", rows)
	}

	rows = formatOutcomeRows(metrics.MetricRecord{Successes: 4, Failures: 2})
	if !strings.Contains(rows[1], "Failed") || !strings.Contains(rows[1], "2") {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestUpdateAppliesProgress(t *testing.T) {
	d := newDashboard(RunConfig{Mode: "scraper", Concurrency: 4, Targets: 10}, nil)
	defer d.cancel()

	p := output.Progress{
		Completed: 5,
		Total:     10,
		Elapsed:   3 * time.Second,
		Record: metrics.MetricRecord{
			Successes:   4,
			Failures:    1,
			Throughput:  1.6667,
			SuccessRate: 0.4,
			CPU:         25,
			Memory:      300,
			NetworkRate: 0.75,
		},
	}
	d.Update(p)

	if d.completionGauge.Percent != 50 {
		t.Errorf("gauge percent = %d, expected 50", d.completionGauge.Percent)
	}
	if d.completionGauge.Label != "5 / 10" {
		t.Errorf("gauge label = %q", d.completionGauge.Label)
	}
	if got := d.throughputSpark.Sparklines[0].Data; len(got) != 1 || got[0] != 1.67 {
		t.Errorf("throughput history = %v", got)
	}
	if !strings.Contains(d.summaryPara.Text, "Mode: scraper") || !strings.Contains(d.summaryPara.Text, "Success Rate: 40.0%") {
		t.Errorf("summary = %q", d.summaryPara.Text)
	}
	if !strings.Contains(d.resourcePara.Text, "Network I/O:  0.75 MB/s") {
		t.Errorf("resources = %q", d.resourcePara.Text)
	}
}

func TestThroughputHistoryIsBounded(t *testing.T) {
	d := newDashboard(RunConfig{}, nil)
	defer d.cancel()

	for i := 0; i < historySize+20; i++ {
		d.Update(output.Progress{Record: metrics.MetricRecord{Throughput: float64(i)}})
	}
	if len(d.throughputHistory) != historySize {
		t.Fatalf("history length = %d, expected %d", len(d.throughputHistory), historySize)
	}
	if d.throughputHistory[0] != 20 {
		t.Errorf("oldest entry = %v, expected 20", d.throughputHistory[0])
	}
}

func TestFormatRunParams(t *testing.T) {
	tests := []struct {
		name     string
		cfg      RunConfig
		contains []string
		excludes []string
	}{
		{
			name:     "unlimited rate",
			cfg:      RunConfig{Mode: "http", Concurrency: 8},
			contains: []string{"Mode: http", "Workers: 8", "Rate: unlimited"},
			excludes: []string{"Config:", "Timeout:"},
		},
		{
			name:     "full",
			cfg:      RunConfig{Mode: "chrome", Concurrency: 2, Targets: 40, Rate: 2.5, Timeout: 30 * time.Second, ConfigFile: "bench.yaml"},
			contains: []string{"Targets: 40", "Rate: 2.5/s", "Timeout: 30s", "Config: bench.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{cfg: tt.cfg}
			got := d.formatRunParams()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q in %q", want, got)
				}
			}
			for _, notWant := range tt.excludes {
				if strings.Contains(got, notWant) {
					t.Errorf("did not expect %q in %q", notWant, got)
				}
			}
		})
	}
}
