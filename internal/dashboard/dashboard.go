// Package dashboard renders a live terminal UI for a load-generation
// run. It is a pure consumer: it reads RunState snapshots and log lines
// from the controller's channels and never touches the engine.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/volleyfire/volleyfire/internal/metrics"
)

// RunConfig holds the run parameters shown in the header.
type RunConfig struct {
	TargetURL   string
	Method      string
	Total       int
	Concurrency int
	Timeout     time.Duration
	ConfigFile  string
}

// Dashboard renders snapshots into a termui grid.
type Dashboard struct {
	events       <-chan metrics.RunState
	logs         <-chan string
	shutdownFunc func()
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	statsPara      *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	logList        *widgets.List

	latencyHistory []float64
	startTime      time.Time
	runConfig      RunConfig
}

// New initializes the terminal UI. shutdownFunc is invoked when the user
// presses q or Ctrl-C; the owner is expected to stop the run and then
// call Stop.
func New(events <-chan metrics.RunState, logs <-chan string, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		events:         events,
		logs:           logs,
		shutdownFunc:   shutdownFunc,
		ctx:            ctx,
		cancel:         cancel,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = formatRunHeader(d.runConfig)
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statsPara = widgets.NewParagraph()
	d.statsPara.Title = "Tallies"
	d.statsPara.Text = "Waiting for data..."
	d.statsPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Avg latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.logList = widgets.NewList()
	d.logList.Title = "Log"
	d.logList.Rows = []string{"Awaiting first batch"}
	d.logList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.logList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.6, d.latencySparkle),
			ui.NewCol(0.4, d.statsPara),
		),
		ui.NewRow(0.38,
			ui.NewCol(1.0, d.logList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Wait for Stop() to cancel the context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case state := <-d.events:
			d.applySnapshot(state)
			d.render()
		case line := <-d.logs:
			d.appendLog(line)
		case <-ticker.C:
			d.render()
		}
	}
}

func (d *Dashboard) applySnapshot(state metrics.RunState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.progressGauge.Percent = state.Progress
	d.progressGauge.Label = fmt.Sprintf("%d%% (batch %d/%d)", state.Progress, state.CompletedBatches, state.TotalBatches)

	d.statsPara.Text = formatTallies(state, time.Since(d.startTime))

	if avg := averageLatencyMs(state.Durations); avg > 0 {
		d.latencyHistory = append(d.latencyHistory, avg)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf("Latency | Avg: %.2fms", avg)
	}
}

func (d *Dashboard) appendLog(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.logList.Rows) == 1 && d.logList.Rows[0] == "Awaiting first batch" {
		d.logList.Rows = d.logList.Rows[:0]
	}
	d.logList.Rows = append(d.logList.Rows, line)
	if len(d.logList.Rows) > 50 {
		d.logList.Rows = d.logList.Rows[1:]
	}
	d.logList.ScrollBottom()
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatRunHeader(cfg RunConfig) string {
	header := fmt.Sprintf("Target: %s\nMethod: %s | Total: %d | Workers: %d",
		cfg.TargetURL, cfg.Method, cfg.Total, cfg.Concurrency)
	if cfg.Timeout > 0 {
		header += fmt.Sprintf(" | Timeout: %s", cfg.Timeout)
	}
	if cfg.ConfigFile != "" {
		header += fmt.Sprintf("\nConfig: %s", cfg.ConfigFile)
	}
	return header
}

func formatTallies(state metrics.RunState, elapsed time.Duration) string {
	processed := state.Successes + state.Failures
	successRate := 0.0
	if processed > 0 {
		successRate = float64(state.Successes) / float64(processed) * 100
	}
	return fmt.Sprintf(
		"Requests:     %d / %d\nSuccessful:   %d\nFailed:       %d\nSuccess Rate: %.1f%%\nElapsed:      %s",
		processed,
		state.TotalRequests,
		state.Successes,
		state.Failures,
		successRate,
		elapsed.Round(time.Second),
	)
}

func averageLatencyMs(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	mean := sum / time.Duration(len(durations))
	return float64(mean) / float64(time.Millisecond)
}
