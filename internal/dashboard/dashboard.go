// Package dashboard renders a live terminal view of a running benchmark.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/fetchbench/internal/metrics"
	"github.com/torosent/fetchbench/internal/output"
)

const historySize = 100

// RunConfig holds benchmark parameters for display.
type RunConfig struct {
	Mode        string        // fetch mode label
	Concurrency int           // number of workers
	Targets     int           // number of targets loaded
	Rate        float64       // dispatch rate per second (0 = unlimited)
	Timeout     time.Duration // per-fetch timeout
	ConfigFile  string        // path to config file if used
}

// Dashboard renders a live terminal UI fed by progress updates.
type Dashboard struct {
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid            *ui.Grid
	summaryPara     *widgets.Paragraph
	completionGauge *widgets.Gauge
	throughputSpark *widgets.SparklineGroup
	latencyPara     *widgets.Paragraph
	resourcePara    *widgets.Paragraph
	outcomeList     *widgets.List

	throughputHistory []float64
	cfg               RunConfig
}

// New initialises the terminal and creates a Dashboard. shutdownFunc is
// invoked when the user presses q or Ctrl-C.
func New(cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	d := newDashboard(cfg, shutdownFunc)
	termWidth, termHeight := ui.TerminalDimensions()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	return d, nil
}

func newDashboard(cfg RunConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		ctx:               ctx,
		cancel:            cancel,
		shutdownFunc:      shutdownFunc,
		throughputHistory: make([]float64, 0, historySize),
		cfg:               cfg,
	}
	d.initWidgets()
	d.setupGrid()
	return d
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.completionGauge = widgets.NewGauge()
	d.completionGauge.Title = "Targets Completed"
	d.completionGauge.BarColor = ui.ColorBlue
	d.completionGauge.BorderStyle.Fg = ui.ColorCyan
	d.completionGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	sparkline := widgets.NewSparkline()
	sparkline.Title = "req/s"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}
	d.throughputSpark = widgets.NewSparklineGroup(sparkline)
	d.throughputSpark.Title = "Throughput"
	d.throughputSpark.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency"
	d.latencyPara.Text = "Waiting for data..."
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.resourcePara = widgets.NewParagraph()
	d.resourcePara.Title = "Resources"
	d.resourcePara.Text = "Waiting for data..."
	d.resourcePara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.resourcePara.BorderStyle.Fg = ui.ColorCyan

	d.outcomeList = widgets.NewList()
	d.outcomeList.Title = "Outcomes"
	d.outcomeList.Rows = []string{"Awaiting data"}
	d.outcomeList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	d.grid = ui.NewGrid()
	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.completionGauge),
		),
		ui.NewRow(0.35,
			ui.NewCol(0.65, d.throughputSpark),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.35,
			ui.NewCol(0.5, d.resourcePara),
			ui.NewCol(0.5, d.outcomeList),
		),
	)
}

// Start begins the render loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the render loop and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// Update applies a progress report. It is safe to call from any goroutine.
func (d *Dashboard) Update(p output.Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := p.Record.Rounded()

	d.throughputHistory = append(d.throughputHistory, r.Throughput)
	if len(d.throughputHistory) > historySize {
		d.throughputHistory = d.throughputHistory[1:]
	}
	d.throughputSpark.Sparklines[0].Data = d.throughputHistory
	d.throughputSpark.Title = fmt.Sprintf("Throughput | Current: %.2f req/s", r.Throughput)

	d.completionGauge.Percent = completionPercent(p.Completed, p.Total)
	d.completionGauge.Label = fmt.Sprintf("%d / %d", p.Completed, p.Total)

	d.summaryPara.Text = fmt.Sprintf("%s\nElapsed: %s | Success Rate: %.1f%%",
		d.formatRunParams(), p.Elapsed.Round(time.Second), r.SuccessRate*100)

	d.latencyPara.Text = formatLatency(r)

	d.resourcePara.Text = fmt.Sprintf(
		"CPU:          %.1f%%\nMemory:       %.0f MB\nNetwork I/O:  %.2f MB/s\nDisk Read:    %.2f MB/s",
		r.CPU, r.Memory, r.NetworkRate, r.DiskRate,
	)

	d.outcomeList.Rows = formatOutcomeRows(r)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.render()
		}
	}
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func completionPercent(completed, total int64) int {
	if total <= 0 {
		return 100
	}
	pct := int(completed * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func formatLatency(r metrics.MetricRecord) string {
	p95 := "n/a"
	if r.Timed >= metrics.MinP95Samples {
		p95 = fmt.Sprintf("%.3fs", r.P95Latency)
	}
	return fmt.Sprintf("Avg:  %.3fs\nP50:  %.3fs\nP95:  %s\nMin:  %.3fs\nMax:  %.3fs",
		r.AvgLatency, r.P50Latency, p95, r.MinLatency, r.MaxLatency)
}

func formatOutcomeRows(r metrics.MetricRecord) []string {
	rows := []string{fmt.Sprintf("[Successful](fg:green) %d", r.Successes)}
	if r.Failures == 0 {
		return append(rows, "[No failures](fg:green)")
	}
	return append(rows, fmt.Sprintf("[Failed](fg:red) %d", r.Failures))
}

// formatRunParams formats the run parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.cfg.Mode != "" {
		parts = append(parts, fmt.Sprintf("Mode: %s", d.cfg.Mode))
	}
	if d.cfg.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.cfg.Concurrency))
	}
	if d.cfg.Targets > 0 {
		parts = append(parts, fmt.Sprintf("Targets: %d", d.cfg.Targets))
	}
	if d.cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %g/s", d.cfg.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if d.cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.cfg.Timeout))
	}
	if d.cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
