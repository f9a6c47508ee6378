package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/surge/internal/history"
	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/threshold"
)

// PrintReport outputs a human-readable summary report. Durations are shown
// in seconds with four decimals.
func PrintReport(w io.Writer, report metrics.Report) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if report.Target != "" {
		fmt.Fprintf(w, "Target:            %s\n", report.Target)
	}
	if report.Mode != "" {
		fmt.Fprintf(w, "Mode:              %s\n", report.Mode)
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", report.Total)
	fmt.Fprintf(w, "Successful:        %d\n", report.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", report.Failures)
	fmt.Fprintf(w, "Error Rate:        %.2f%%\n", report.ErrorRate)
	fmt.Fprintf(w, "Duration:          %s\n", seconds(report.Duration))
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", report.RequestsPerSec)

	if report.HasLatency {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Mean:            %s\n", seconds(report.MeanLatency))
		fmt.Fprintf(w, "  P95:             %s\n", seconds(report.P95Latency))
		fmt.Fprintf(w, "  P99:             %s\n", seconds(report.P99Latency))
		fmt.Fprintf(w, "  Min:             %s\n", seconds(report.MinLatency))
		fmt.Fprintf(w, "  P50:             %s\n", seconds(report.P50Latency))
		fmt.Fprintf(w, "  Max:             %s\n", seconds(report.MaxLatency))
	} else {
		fmt.Fprintln(w, "\nLatency:           n/a (no successful requests)")
	}

	if rows := metrics.FlattenStatusBuckets(report.StatusBuckets); len(rows) > 0 {
		fmt.Fprintln(w, "\nFailures by Status:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}

	if len(report.Phases) > 0 {
		fmt.Fprintln(w, "\nRamp Phases:")
		for _, p := range report.Phases {
			fmt.Fprintf(w, "  ")
			PrintPhase(w, p)
		}
	}
	if report.StopReason != "" {
		fmt.Fprintf(w, "\nStopped:           %s\n", report.StopReason)
	}
}

// PrintPhase writes the one-line summary of a finished ramp phase.
func PrintPhase(w io.Writer, p metrics.Phase) {
	fmt.Fprintf(w, "RPS: %d, successes: %d, failures: %d, elapsed: %s\n",
		p.RPS, p.Successes(), p.Failures, seconds(p.Duration))
}

// PrintRampHalt announces that the ramp stopped at a failing phase.
func PrintRampHalt(w io.Writer, p metrics.Phase) {
	fmt.Fprintf(w, "Failures detected at %d RPS; stopping ramp.\n", p.RPS)
}

// PrintThresholds prints threshold results and a pass/fail summary.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "\nThresholds:")
	passed := 0
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(w, "  %d/%d passed\n", passed, len(results))
}

// PrintComparison prints the change against a previous run of the same
// target and mode.
func PrintComparison(w io.Writer, prev history.Entry, report metrics.Report) {
	fmt.Fprintf(w, "\nCompared to run %s (%s):\n", prev.RunID, prev.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "  Requests/sec:    %.2f -> %.2f\n", prev.RequestsPerSec, report.RequestsPerSec)
	fmt.Fprintf(w, "  Error Rate:      %.2f%% -> %.2f%%\n", prev.ErrorRate, report.ErrorRate)
	if prev.HasLatency && report.HasLatency {
		fmt.Fprintf(w, "  P95:             %.4f s -> %.4f s\n", prev.P95LatencyMs/1000, report.P95LatencyMs/1000)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report metrics.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, report metrics.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.4f s", d.Seconds())
}
