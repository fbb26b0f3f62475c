package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/fetchbench/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{"--mode", "http"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != "http" {
		t.Errorf("Mode = %q, want http", cfg.Mode)
	}
	if cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, config.DefaultConcurrency)
	}
	if cfg.TargetsFile != config.DefaultTargetsFile {
		t.Errorf("TargetsFile = %q, want %q", cfg.TargetsFile, config.DefaultTargetsFile)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.ProgressInterval != 5*time.Second {
		t.Errorf("ProgressInterval = %s, want 5s", cfg.ProgressInterval)
	}
	if cfg.SampleInterval != 500*time.Millisecond {
		t.Errorf("SampleInterval = %s, want 500ms", cfg.SampleInterval)
	}
	if cfg.Output != config.OutputText {
		t.Errorf("Output = %q, want text", cfg.Output)
	}
	if cfg.ResultsFile != config.DefaultResultsFile {
		t.Errorf("ResultsFile = %q, want %q", cfg.ResultsFile, config.DefaultResultsFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadNoArgsRequestsHelp(t *testing.T) {
	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadHelpFlag(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadConfigFileYAMLWithFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	if err := os.WriteFile(path, []byte(`mode: chrome-no-js
label: Scrapy
concurrency: 8
targets: sites.json
targets_path: "sites.#.url"
per_worker: 20
timeout: 10s
progress_interval: 2s
output: json
thresholds:
  - "latency:p95 < 2"
tracing:
  endpoint: localhost:4317
  protocol: http
  sample_rate: 0.5
  insecure: true
`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--mode", "scraper", "--threshold", "success:rate >= 0.9"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != "scraper" {
		t.Errorf("Mode = %q, want scraper (flag override)", cfg.Mode)
	}
	if cfg.Label != "Scrapy" {
		t.Errorf("Label = %q, want Scrapy", cfg.Label)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.TargetsFile != "sites.json" || cfg.TargetsPath != "sites.#.url" {
		t.Errorf("targets = %q path %q", cfg.TargetsFile, cfg.TargetsPath)
	}
	if cfg.EffectiveLimit() != 160 {
		t.Errorf("EffectiveLimit() = %d, want 160", cfg.EffectiveLimit())
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if cfg.ProgressInterval != 2*time.Second {
		t.Errorf("ProgressInterval = %s, want 2s", cfg.ProgressInterval)
	}
	if cfg.Output != config.OutputJSON {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want 2 entries", cfg.Thresholds)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.Protocol != "http" || cfg.Tracing.SampleRate != 0.5 || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.ModeLabel() != "Scrapy-scraper" {
		t.Errorf("ModeLabel() = %q, want Scrapy-scraper", cfg.ModeLabel())
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{"none", config.Config{Concurrency: 4}, 0},
		{"explicit", config.Config{Concurrency: 4, Limit: 7, PerWorker: 20}, 7},
		{"per worker", config.Config{Concurrency: 4, PerWorker: 20}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.EffectiveLimit(); got != tt.want {
				t.Errorf("EffectiveLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateCollectsIssues(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "firefox"
	cfg.Concurrency = 0
	cfg.Limit = -1
	cfg.Rate = -5
	cfg.ProgressInterval = 0
	cfg.Output = "xml"
	cfg.Tracing.SampleRate = 2

	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	want := []string{"mode", "concurrency", "limit", "rate", "progress-interval", "output", "sample_rate"}
	joined := strings.Join(verr.Issues(), "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("issues missing %q:\n%s", w, joined)
		}
	}
}

func TestValidateMiniblinkNeedsBrowserPath(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "miniblink"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected miniblink without browser path to fail")
	}
	cfg.BrowserPath = "/opt/miniblink/chrome"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateDashboardExclusiveWithJSON(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "http"
	cfg.Dashboard = true
	cfg.Output = config.OutputJSON
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected dashboard + json to fail")
	}
}

func TestValidateListHistoryOnly(t *testing.T) {
	cfg := config.Defaults()
	cfg.ListHistory = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected list-history without history-db to fail")
	}
	cfg.HistoryDB = "runs.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestTracingPropagateDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if (config.TracingConfig{}).ShouldPropagate() {
		t.Error("ShouldPropagate() = true without endpoint")
	}
	if !(config.TracingConfig{Endpoint: "localhost:4317"}).ShouldPropagate() {
		t.Error("ShouldPropagate() = false with endpoint")
	}
	off := false
	if (config.TracingConfig{Endpoint: "localhost:4317", Propagate: &off}).ShouldPropagate() {
		t.Error("ShouldPropagate() = true when disabled explicitly")
	}
}
