// Package dashboard renders a live terminal view of a running load test.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/surge/internal/metrics"
)

const (
	refreshInterval = 500 * time.Millisecond
	historySize     = 100
	maxStatusRows   = 10
)

// RunInfo holds the run parameters shown in the summary panel.
type RunInfo struct {
	TargetURL string
	Mode      string
	Rate      int           // rps mode
	Power     int           // power mode
	RampStart int           // ramp mode
	RampStep  int           // ramp mode
	RampMax   int           // ramp mode
	Duration  time.Duration // planned run length, 0 if open ended
	Timeout   time.Duration
}

// Dashboard renders a live terminal UI fed by a metrics.Recorder.
type Dashboard struct {
	recorder     *metrics.Recorder
	info         RunInfo
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	rpsGauge       *widgets.Gauge
	metricsPara    *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	statusList     *widgets.List
	phaseList      *widgets.List
	latencyHistory []float64
	phases         []string
	peakRPS        float64
}

// New initializes the terminal and builds the widgets. shutdownFunc is
// called when the user presses q or Ctrl-C.
func New(recorder *metrics.Recorder, info RunInfo, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		recorder:       recorder,
		info:           info,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, historySize),
	}
	d.initWidgets()
	d.setupGrid()
	return d, nil
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Test Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Requests Per Second"
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	sparkline := widgets.NewSparkline()
	sparkline.Title = "P50 latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}
	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Failures by Status"
	d.statusList.Rows = []string{"[No failures](fg:green)"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.phaseList = widgets.NewList()
	d.phaseList.Title = "Ramp Phases"
	d.phaseList.Rows = []string{"[No phases](fg:green)"}
	d.phaseList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.phaseList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.16, ui.NewCol(1.0, d.summaryPara)),
		ui.NewRow(0.24,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.30, ui.NewCol(1.0, d.latencySparkle)),
		ui.NewRow(0.30,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.phaseList),
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
}

// AddPhase appends a finished ramp phase to the phase panel.
func (d *Dashboard) AddPhase(p metrics.Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phases = append(d.phases, formatPhaseRow(p))
	d.phaseList.Rows = d.phases
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(refreshInterval)
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
			d.update(d.recorder.Live())
			d.render()
		}
	}
}

func (d *Dashboard) update(live metrics.LiveStats) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if live.P50Latency > 0 {
		d.latencyHistory = append(d.latencyHistory, toMs(live.P50Latency))
		if len(d.latencyHistory) > historySize {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf("Latency | P50: %.2fms | P99: %.2fms | Max: %.2fms",
			toMs(live.P50Latency), toMs(live.P99Latency), toMs(live.MaxLatency))
	}

	if live.RequestsPerSec > d.peakRPS {
		d.peakRPS = live.RequestsPerSec
	}
	d.rpsGauge.Percent = gaugePercent(live.RequestsPerSec, d.peakRPS)
	d.rpsGauge.Label = fmt.Sprintf("%.1f RPS (peak %.1f)", live.RequestsPerSec, d.peakRPS)

	d.summaryPara.Text = formatSummary(d.info, live)
	d.metricsPara.Text = formatMetrics(live)
	d.statusList.Rows = formatStatusRows(live.StatusBuckets)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

func formatSummary(info RunInfo, live metrics.LiveStats) string {
	elapsed := live.Elapsed.Round(time.Second)
	progress := elapsed.String()
	if info.Duration > 0 {
		progress = fmt.Sprintf("%s / %s", elapsed, info.Duration)
	}
	return fmt.Sprintf("Target: %s\n%s\nElapsed: %s | Total: %d",
		info.TargetURL, formatRunParams(info), progress, live.Total)
}

func formatRunParams(info RunInfo) string {
	parts := []string{fmt.Sprintf("Mode: %s", info.Mode)}
	switch info.Mode {
	case "rps":
		parts = append(parts, fmt.Sprintf("Rate: %d/window", info.Rate))
	case "power":
		parts = append(parts, fmt.Sprintf("Power: %d in flight", info.Power))
	case "ramp":
		parts = append(parts, fmt.Sprintf("Ramp: %d..%d step %d", info.RampStart, info.RampMax, info.RampStep))
	}
	if info.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", info.Timeout))
	}
	return strings.Join(parts, " | ")
}

func formatMetrics(live metrics.LiveStats) string {
	errorRate := 0.0
	if live.Total > 0 {
		errorRate = float64(live.Failures) / float64(live.Total) * 100
	}
	return fmt.Sprintf(
		"Total Requests:    %d\nSuccessful:        %d\nFailed:            %d\nError Rate:        %.1f%%\nCurrent RPS:       %.2f",
		live.Total, live.Successes, live.Failures, errorRate, live.RequestsPerSec,
	)
}

func formatStatusRows(buckets map[string]int64) []string {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > maxStatusRows {
		rows = rows[:maxStatusRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", row.Label, row.Count))
	}
	return formatted
}

func formatPhaseRow(p metrics.Phase) string {
	color := "green"
	if p.Failures > 0 {
		color = "red"
	}
	return fmt.Sprintf("[RPS %d](fg:%s) ok %d | failed %d | %.1fs", p.RPS, color, p.Successes(), p.Failures, p.Duration.Seconds())
}

func gaugePercent(current, peak float64) int {
	if peak <= 0 {
		return 0
	}
	pct := int(current / peak * 100)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
