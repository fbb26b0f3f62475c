// Package exporter publishes in-flight run progress as Prometheus metrics.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/torosent/fetchbench/internal/output"
)

const namespace = "fetchbench"

// Exporter holds the gauges for one run. Each Observe overwrites them.
type Exporter struct {
	registry *prometheus.Registry
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener

	completed   prometheus.Gauge
	total       prometheus.Gauge
	successes   prometheus.Gauge
	failures    prometheus.Gauge
	throughput  prometheus.Gauge
	successRate prometheus.Gauge
	latency     *prometheus.GaugeVec
	cpu         prometheus.Gauge
	memory      prometheus.Gauge
	networkRate prometheus.Gauge
	diskRate    prometheus.Gauge
}

// New creates an Exporter whose series carry mode and concurrency labels.
func New(mode string, concurrency int, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	labels := prometheus.Labels{"mode": mode, "concurrency": strconv.Itoa(concurrency)}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	e := &Exporter{
		registry:    prometheus.NewRegistry(),
		logger:      logger.With("component", "exporter"),
		completed:   gauge("targets_completed", "Targets accounted for so far."),
		total:       gauge("targets_total", "Targets in the run."),
		successes:   gauge("fetch_successes", "Successful fetches so far."),
		failures:    gauge("fetch_failures", "Failed fetches so far."),
		throughput:  gauge("throughput_per_second", "Completed fetches per second since start."),
		successRate: gauge("success_ratio", "Successes divided by total targets."),
		cpu:         gauge("cpu_percent", "Host CPU utilisation at the last tick."),
		memory:      gauge("memory_megabytes", "Host memory in use at the last tick."),
		networkRate: gauge("network_megabytes_per_second", "Network throughput since the previous tick."),
		diskRate:    gauge("disk_read_megabytes_per_second", "Disk read throughput since the previous tick."),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "fetch_latency_seconds",
			Help:        "Fetch latency statistic over completed fetches.",
			ConstLabels: labels,
		}, []string{"stat"}),
	}
	e.registry.MustRegister(
		e.completed, e.total, e.successes, e.failures, e.throughput, e.successRate,
		e.latency, e.cpu, e.memory, e.networkRate, e.diskRate,
	)
	return e
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe updates every gauge from p.
func (e *Exporter) Observe(p output.Progress) {
	r := p.Record
	e.completed.Set(float64(p.Completed))
	e.total.Set(float64(p.Total))
	e.successes.Set(float64(r.Successes))
	e.failures.Set(float64(r.Failures))
	e.throughput.Set(r.Throughput)
	e.successRate.Set(r.SuccessRate)
	e.latency.WithLabelValues("avg").Set(r.AvgLatency)
	e.latency.WithLabelValues("p50").Set(r.P50Latency)
	e.latency.WithLabelValues("p95").Set(r.P95Latency)
	e.cpu.Set(r.CPU)
	e.memory.Set(r.Memory)
	e.networkRate.Set(r.NetworkRate)
	e.diskRate.Set(r.DiskRate)
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server on addr exposing /metrics. It returns once the
// listener is bound.
func (e *Exporter) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	e.listener = ln
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server stopped", "error", err)
		}
	}()
	e.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Serve.
func (e *Exporter) Addr() string {
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Shutdown stops the server started by Serve.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}
