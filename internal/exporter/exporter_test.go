package exporter

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/fetchbench/internal/metrics"
	"github.com/torosent/fetchbench/internal/output"
)

func sampleProgress() output.Progress {
	return output.Progress{
		Completed: 4,
		Total:     10,
		Record: metrics.MetricRecord{
			Successes:   3,
			Failures:    1,
			AvgLatency:  2,
			P50Latency:  1.5,
			Throughput:  2,
			SuccessRate: 0.3,
			CPU:         42,
			NetworkRate: 1.25,
		},
	}
}

func TestObserveSetsGauges(t *testing.T) {
	e := New("http", 4, nil)
	e.Observe(sampleProgress())

	assert.Equal(t, 4.0, testutil.ToFloat64(e.completed))
	assert.Equal(t, 10.0, testutil.ToFloat64(e.total))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.failures))
	assert.Equal(t, 0.3, testutil.ToFloat64(e.successRate))
	assert.Equal(t, 1.5, testutil.ToFloat64(e.latency.WithLabelValues("p50")))
	assert.Equal(t, 1.25, testutil.ToFloat64(e.networkRate))
}

func TestRegistryCarriesRunLabels(t *testing.T) {
	e := New("chrome-no-js", 8, nil)
	e.Observe(sampleProgress())

	expected := `
# HELP fetchbench_targets_completed Targets accounted for so far.
# TYPE fetchbench_targets_completed gauge
fetchbench_targets_completed{concurrency="8",mode="chrome-no-js"} 4
`
	err := testutil.GatherAndCompare(e.Registry(), strings.NewReader(expected), "fetchbench_targets_completed")
	assert.NoError(t, err)
}

func TestServeExposesMetrics(t *testing.T) {
	e := New("http", 1, nil)
	e.Observe(sampleProgress())
	require.NoError(t, e.Serve("127.0.0.1:0"))
	defer e.Shutdown(context.Background())

	resp, err := http.Get("http://" + e.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `fetchbench_cpu_percent{concurrency="1",mode="http"} 42`)
}

func TestShutdownWithoutServe(t *testing.T) {
	assert.NoError(t, New("http", 1, nil).Shutdown(context.Background()))
}
