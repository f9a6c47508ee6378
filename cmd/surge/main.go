package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/surge/internal/config"
	"github.com/torosent/surge/internal/dashboard"
	"github.com/torosent/surge/internal/history"
	"github.com/torosent/surge/internal/httpclient"
	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/output"
	"github.com/torosent/surge/internal/runner"
	"github.com/torosent/surge/internal/threshold"
	"github.com/torosent/surge/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// errThresholdsFailed is returned when --strict-thresholds is set and an
// assertion did not hold.
var errThresholdsFailed = errors.New("one or more thresholds failed")

// syncWriter serializes writes from the progress reporter and ramp phase
// callbacks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type logrusFailureLogger struct {
	log logrus.FieldLogger
}

func (l logrusFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.log.WithError(err).Warn("request failed")
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	log := newLogger(stderr)

	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryFile != "" {
		if store, err = history.NewStore(cfg.HistoryFile); err != nil {
			return err
		}
	}

	runID := history.NewRunID(time.Now())
	runLog := log.WithFields(logrus.Fields{"run_id": runID, "mode": cfg.Mode, "target": cfg.TargetURL})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			runLog.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return err
	}
	recorder := metrics.NewRecorder()
	client := httpclient.NewClient(cfg.Timeout, maxInFlight(cfg))
	executor := httpclient.NewExecutor(client, builder, recorder, httpclient.WithTracing(provider))

	var requester runner.Requester = executor
	if cfg.LogErrors {
		requester = runner.WithLogging(requester, logrusFailureLogger{log: runLog})
	}

	var dash *dashboard.Dashboard
	opts := toRunnerOptions(cfg, requester, runLog)
	machineOutput := cfg.JSONOutput || cfg.YAMLOutput
	out := &syncWriter{w: stdout}
	opts.OnPhase = func(p runner.Phase) {
		phase := toMetricsPhase(p)
		switch {
		case dash != nil:
			dash.AddPhase(phase)
		case machineOutput:
			runLog.WithFields(logrus.Fields{
				"rps":       phase.RPS,
				"successes": phase.Successes(),
				"failures":  phase.Failures,
			}).Info("ramp phase finished")
		default:
			output.PrintPhase(out, phase)
			if phase.Failures > 0 {
				output.PrintRampHalt(out, phase)
			}
		}
	}

	r, err := runner.New(opts)
	if err != nil {
		return err
	}

	if cfg.Dashboard {
		if dash, err = dashboard.New(recorder, dashboardInfo(cfg), cancel); err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if dash == nil && !machineOutput {
		progress = output.NewProgressReporter(recorder, progressInterval, plannedDuration(cfg), out)
	}

	runLog.Info("starting run")
	recorder.Start()
	if progress != nil {
		progress.Start()
	}
	result := r.Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	if dash != nil {
		dash.Stop()
	}
	runLog.WithFields(logrus.Fields{
		"total":       result.Total,
		"errors":      result.Errors,
		"duration":    result.Duration,
		"stop_reason": result.StopReason,
	}).Info("run finished")

	report := buildReport(recorder.Snapshot(), result, cfg, runID)

	switch {
	case cfg.JSONOutput:
		if err := output.PrintJSONReport(stdout, report); err != nil {
			runLog.WithError(err).Error("failed to write JSON report")
		}
	case cfg.YAMLOutput:
		if err := output.PrintYAMLReport(stdout, report); err != nil {
			runLog.WithError(err).Error("failed to write YAML report")
		}
	default:
		output.PrintReport(stdout, report)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(report)
	if !machineOutput {
		output.PrintThresholds(stdout, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report, results); err != nil {
			runLog.WithError(err).Error("failed to write HTML report")
		} else {
			runLog.WithField("path", cfg.HTMLOutput).Info("HTML report written")
		}
	}

	if store != nil {
		prev, found, err := store.Previous(report.Target, report.Mode)
		switch {
		case err != nil:
			runLog.WithError(err).Warn("failed to read run history")
		case found && !machineOutput:
			output.PrintComparison(stdout, prev, report)
		}
		if err := store.Append(history.EntryFromReport(report, time.Now())); err != nil {
			runLog.WithError(err).Error("failed to append run history")
		}
	}

	if cfg.StrictThresholds && !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

func newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func toRunnerOptions(cfg *config.Config, requester runner.Requester, log logrus.FieldLogger) runner.Options {
	return runner.Options{
		Mode:     runner.Mode(cfg.Mode),
		Rate:     cfg.Rate,
		Power:    cfg.Power,
		Duration: cfg.Duration,
		Ramp: runner.RampPlan{
			StartRPS:     cfg.Ramp.StartRPS,
			Step:         cfg.Ramp.Step,
			StepDuration: cfg.Ramp.StepDuration,
			MaxRPS:       cfg.Ramp.MaxRPS,
			Pacing:       runner.Pacing(cfg.Ramp.Pacing),
		},
		Window:       cfg.Window,
		TickInterval: cfg.TickInterval,
		Requester:    requester,
		Logger:       log,
	}
}

func toMetricsPhase(p runner.Phase) metrics.Phase {
	return metrics.NewPhase(p.RPS, p.Dispatched, p.Failures, p.Elapsed)
}

func buildReport(snap metrics.Snapshot, result runner.Result, cfg *config.Config, runID string) metrics.Report {
	report := metrics.Aggregate(snap, result.Duration)
	report.RunID = runID
	report.Mode = string(cfg.Mode)
	report.Target = cfg.TargetURL
	report.StopReason = string(result.StopReason)
	for _, p := range result.Phases {
		report.Phases = append(report.Phases, toMetricsPhase(p))
	}
	return report
}

// plannedDuration is the expected run length, used for the remaining-time
// display. Ramp runs may end early on failure.
func plannedDuration(cfg *config.Config) time.Duration {
	if cfg.Mode == config.ModeRamp {
		return time.Duration(len(cfg.Ramp.Rates())) * cfg.Ramp.StepDuration
	}
	return cfg.Duration
}

// maxInFlight sizes the connection pool to the largest expected concurrency.
func maxInFlight(cfg *config.Config) int {
	switch cfg.Mode {
	case config.ModePower:
		return cfg.Power
	case config.ModeRamp:
		return cfg.Ramp.MaxRPS
	default:
		return cfg.Rate
	}
}

func dashboardInfo(cfg *config.Config) dashboard.RunInfo {
	return dashboard.RunInfo{
		TargetURL: cfg.TargetURL,
		Mode:      string(cfg.Mode),
		Rate:      cfg.Rate,
		Power:     cfg.Power,
		RampStart: cfg.Ramp.StartRPS,
		RampStep:  cfg.Ramp.Step,
		RampMax:   cfg.Ramp.MaxRPS,
		Duration:  plannedDuration(cfg),
		Timeout:   cfg.Timeout,
	}
}

func writeHTMLReport(path string, report metrics.Report, results []threshold.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := output.GenerateHTMLReport(f, report, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
