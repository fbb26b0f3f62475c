package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fetchbench --mode <mode> --concurrency <n>",
		Short:         "Benchmark fetch strategies under concurrent load",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Run flags
	flags.StringP("mode", "m", "", "Fetch mode: "+strings.Join(Modes, ", "))
	flags.String("label", "", "Label prefixed to the mode in the results file (e.g. Scrapy)")
	flags.IntP("concurrency", "c", DefaultConcurrency, "Number of concurrent workers")
	flags.String("targets", DefaultTargetsFile, "Path to the target list (one URL per line, or JSON)")
	flags.String("targets-path", "", "gjson path selecting URLs inside a JSON target file")
	flags.Int("limit", 0, "Use at most this many targets (0 means all)")
	flags.Int("per-worker", 0, "Use concurrency × per-worker targets when limit is unset")
	flags.Duration("timeout", DefaultTimeout, "Per-fetch timeout")
	flags.IntP("rate", "r", 0, "Dispatches per second limit (0 means unlimited)")
	flags.String("browser-path", "", "Browser binary for browser modes (required for miniblink)")

	// Sampling flags
	flags.Duration("progress-interval", DefaultProgressInterval, "Interval between progress reports")
	flags.Duration("sample-interval", DefaultSampleInterval, "Interval between resource samples")

	// Output flags
	flags.StringP("output", "o", string(OutputText), "Report format: text, json, or yaml")
	flags.String("results-file", DefaultResultsFile, "CSV file the run summary is appended to (empty disables)")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.String("history-db", "", "bbolt database recording every run")
	flags.Bool("list-history", false, "Print runs stored in history-db and exit")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("config", "", "Path to configuration file (JSON, YAML, or TOML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Pass/fail threshold (repeatable, e.g. 'latency:p95 < 2')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of fetches traced (0.0-1.0)")
	flags.String("tracing-service-name", "", "Service name reported with spans")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"mode":                 &cfg.Mode,
		"label":                &cfg.Label,
		"targets":              &cfg.TargetsFile,
		"targets-path":         &cfg.TargetsPath,
		"browser-path":         &cfg.BrowserPath,
		"results-file":         &cfg.ResultsFile,
		"history-db":           &cfg.HistoryDB,
		"metrics-addr":         &cfg.MetricsAddr,
		"log-level":            &cfg.LogLevel,
		"tracing-endpoint":     &cfg.Tracing.Endpoint,
		"tracing-protocol":     &cfg.Tracing.Protocol,
		"tracing-service-name": &cfg.Tracing.ServiceName,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(val)
	}

	ints := map[string]*int{
		"concurrency": &cfg.Concurrency,
		"limit":       &cfg.Limit,
		"per-worker":  &cfg.PerWorker,
		"rate":        &cfg.Rate,
	}
	for name, dst := range ints {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	durations := map[string]*time.Duration{
		"timeout":           &cfg.Timeout,
		"progress-interval": &cfg.ProgressInterval,
		"sample-interval":   &cfg.SampleInterval,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	bools := map[string]*bool{
		"dashboard":        &cfg.Dashboard,
		"list-history":     &cfg.ListHistory,
		"tracing-insecure": &cfg.Tracing.Insecure,
	}
	for name, dst := range bools {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = append(cfg.Thresholds, val...)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
