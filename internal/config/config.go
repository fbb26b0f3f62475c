package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Modes lists the fetch modes a run may use.
var Modes = []string{"chrome", "chrome-no-js", "chrome-no-media", "miniblink", "http", "scraper"}

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

const (
	DefaultConcurrency      = 4
	DefaultTargetsFile      = "urls.txt"
	DefaultResultsFile      = "results/logs.csv"
	DefaultTimeout          = 30 * time.Second
	DefaultProgressInterval = 5 * time.Second
	DefaultSampleInterval   = 500 * time.Millisecond
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Label            string        `mapstructure:"label"`
	Concurrency      int           `mapstructure:"concurrency"`
	TargetsFile      string        `mapstructure:"targets"`
	TargetsPath      string        `mapstructure:"targets_path"`
	Limit            int           `mapstructure:"limit"`
	PerWorker        int           `mapstructure:"per_worker"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Rate             int           `mapstructure:"rate"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	ResultsFile      string        `mapstructure:"results_file"`
	Output           OutputFormat  `mapstructure:"output"`
	Dashboard        bool          `mapstructure:"dashboard"`
	HistoryDB        string        `mapstructure:"history_db"`
	ListHistory      bool          `mapstructure:"list_history"`
	Thresholds       []string      `mapstructure:"thresholds"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	BrowserPath      string        `mapstructure:"browser_path"`
	LogLevel         string        `mapstructure:"log_level"`
	Tracing          TracingConfig `mapstructure:"tracing"`
	ConfigFile       string        `mapstructure:"-"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an OTLP endpoint is configured, in the config or
// the environment.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to Enabled unless set explicitly.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// EffectiveLimit returns the number of targets a run should use, or 0 for all
// of them. An explicit limit wins over concurrency × per-worker.
func (c Config) EffectiveLimit() int {
	if c.Limit > 0 {
		return c.Limit
	}
	if c.PerWorker > 0 && c.Concurrency > 0 {
		return c.Concurrency * c.PerWorker
	}
	return 0
}

// ModeLabel returns the mode prefixed with the label, e.g. "Scrapy-http".
func (c Config) ModeLabel() string {
	if c.Label == "" {
		return c.Mode
	}
	return c.Label + "-" + c.Mode
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Concurrency > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: High concurrency configured (%d workers). Ensure you have authorization to fetch the targets.\n", c.Concurrency)
	}

	if c.ListHistory {
		if strings.TrimSpace(c.HistoryDB) == "" {
			issues = append(issues, "list-history requires history-db")
		}
		if len(issues) > 0 {
			return ValidationError{issues: issues}
		}
		return nil
	}

	issues = append(issues, validateMode(c.Mode, c.BrowserPath)...)

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if strings.TrimSpace(c.TargetsFile) == "" {
		issues = append(issues, "targets is required (use --help for usage information)")
	}
	if c.Limit < 0 {
		issues = append(issues, "limit must be >= 0")
	}
	if c.PerWorker < 0 {
		issues = append(issues, "per-worker must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.ProgressInterval <= 0 {
		issues = append(issues, "progress-interval must be > 0")
	}
	if c.SampleInterval <= 0 {
		issues = append(issues, "sample-interval must be > 0")
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be 'text', 'json', or 'yaml', got %q", c.Output))
	}
	if c.Dashboard && c.Output != OutputText {
		issues = append(issues, "dashboard and machine-readable output are mutually exclusive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log-level must be debug, info, warn, or error, got %q", c.LogLevel))
	}

	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateMode(mode, browserPath string) []string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return []string{"mode is required (one of " + strings.Join(Modes, ", ") + ")"}
	}
	known := false
	for _, m := range Modes {
		if m == mode {
			known = true
			break
		}
	}
	if !known {
		return []string{fmt.Sprintf("mode %q is not supported (one of %s)", mode, strings.Join(Modes, ", "))}
	}
	if mode == "miniblink" && strings.TrimSpace(browserPath) == "" {
		return []string{"miniblink mode requires browser-path"}
	}
	return nil
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
