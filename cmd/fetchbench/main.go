package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/fetchbench/internal/config"
	"github.com/torosent/fetchbench/internal/dashboard"
	"github.com/torosent/fetchbench/internal/exporter"
	"github.com/torosent/fetchbench/internal/fetcher"
	"github.com/torosent/fetchbench/internal/history"
	"github.com/torosent/fetchbench/internal/metrics"
	"github.com/torosent/fetchbench/internal/monitor"
	"github.com/torosent/fetchbench/internal/output"
	"github.com/torosent/fetchbench/internal/probe"
	"github.com/torosent/fetchbench/internal/runner"
	"github.com/torosent/fetchbench/internal/targets"
	"github.com/torosent/fetchbench/internal/threshold"
	"github.com/torosent/fetchbench/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, cfg.LogLevel)

	if cfg.ListHistory {
		return listHistory(stdout, cfg.HistoryDB)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	list, err := targets.Load(cfg.TargetsFile, targets.Options{
		Limit:    cfg.EffectiveLimit(),
		JSONPath: cfg.TargetsPath,
	})
	if err != nil {
		return err
	}
	logger.Info("loaded targets", "count", len(list), "file", cfg.TargetsFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	kind, err := fetcher.ParseKind(cfg.Mode)
	if err != nil {
		return err
	}
	backend, err := fetcher.New(kind, fetcher.Options{
		Timeout:        cfg.Timeout,
		BrowserPath:    cfg.BrowserPath,
		MaxSessions:    cfg.Concurrency,
		PropagateTrace: tp.ShouldPropagate(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("start %s backend: %w", kind, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing backend failed", "error", err)
		}
	}()

	var f fetcher.Fetcher = backend
	if tp.Exporting() {
		f = fetcher.WithTracing(f, tp.Tracer(), kind)
	}
	f = fetcher.WithLogging(f, logger)

	sysProbe := probe.NewSystemProbe(probe.DefaultTimeout)
	mon := monitor.New(monitor.Options{
		Probe:    sysProbe,
		Interval: cfg.SampleInterval,
		Logger:   logger.With("component", "monitor"),
	})
	mon.Start(ctx)

	var baseline *probe.Snapshot
	if b, ok := mon.Baseline(); ok {
		baseline = &b
	}
	stats := metrics.NewRunStats(len(list), baseline)

	r, err := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		Targets:       list,
		Fetcher:       f,
		RatePerSecond: cfg.Rate,
		Stats:         stats,
		Logger:        logger,
	})
	if err != nil {
		mon.Stop(0)
		return err
	}

	info := metrics.RunInfo{
		RunID:       ulid.Make().String(),
		Mode:        cfg.ModeLabel(),
		Concurrency: cfg.Concurrency,
	}

	progressOut := io.Discard
	if cfg.Output == config.OutputText && !cfg.Dashboard {
		progressOut = stdout
	}
	progress := output.NewProgressReporter(output.ProgressOptions{
		Stats:    stats,
		Probe:    sysProbe,
		Info:     info,
		Interval: cfg.ProgressInterval,
		Writer:   progressOut,
		Logger:   logger,
	})

	if cfg.MetricsAddr != "" {
		exp := exporter.New(info.Mode, cfg.Concurrency, logger)
		if err := exp.Serve(cfg.MetricsAddr); err != nil {
			mon.Stop(0)
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = exp.Shutdown(shutdownCtx)
		}()
		progress.Subscribe(exp.Observe)
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(dashboard.RunConfig{
			Mode:        info.Mode,
			Concurrency: cfg.Concurrency,
			Targets:     len(list),
			Rate:        float64(cfg.Rate),
			Timeout:     cfg.Timeout,
			ConfigFile:  cfg.ConfigFile,
		}, cancel)
		if err != nil {
			mon.Stop(0)
			return err
		}
		progress.Subscribe(dash.Update)
		dash.Start()
	}

	progress.Start()
	result := r.Run(ctx)
	progress.Stop()
	if dash != nil {
		dash.Stop()
	}
	summary := mon.Stop(result.Duration)

	if result.Skipped > 0 {
		logger.Warn("run interrupted", "skipped", result.Skipped, "dispatched", result.Dispatched)
	}

	rec := metrics.Aggregate(info, result.Stats.Snapshot(), summary, result.Duration)
	results := threshold.NewEvaluator(thresholds).Evaluate(rec)

	if err := writeReport(stdout, cfg.Output, rec, results); err != nil {
		return err
	}

	if cfg.ResultsFile != "" {
		if err := output.AppendCSV(cfg.ResultsFile, info.Mode, rec); err != nil {
			return err
		}
		logger.Debug("appended results", "file", cfg.ResultsFile)
	}

	if cfg.HistoryDB != "" {
		if err := saveHistory(cfg.HistoryDB, rec); err != nil {
			return err
		}
	}

	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func writeReport(w io.Writer, format config.OutputFormat, rec metrics.MetricRecord, results []threshold.Result) error {
	switch format {
	case config.OutputJSON:
		return output.PrintJSONReport(w, rec, results)
	case config.OutputYAML:
		return output.PrintYAMLReport(w, rec, results)
	default:
		output.PrintReport(w, rec, results)
		return nil
	}
}

func saveHistory(path string, rec metrics.MetricRecord) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(rec)
}

func listHistory(w io.Writer, path string) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(0)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, rec := range recs {
		r := rec.Rounded()
		fmt.Fprintf(w, "%s  %-24s c=%-4d %d/%d ok  avg=%.3fs p95=%.3fs  %.2f req/s\n",
			r.RunID, r.Mode, r.Concurrency, r.Successes, r.Total, r.AvgLatency, r.P95Latency, r.Throughput)
	}
	return nil
}
