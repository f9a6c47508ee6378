package metrics

import (
	"math"
	"slices"
	"time"
)

// Report is the final, immutable summary of a run.
type Report struct {
	RunID          string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Mode           string        `json:"mode,omitempty" yaml:"mode,omitempty"`
	Target         string        `json:"target,omitempty" yaml:"target,omitempty"`
	Total          int64         `json:"total" yaml:"total"`
	Successes      int64         `json:"successes" yaml:"successes"`
	Failures       int64         `json:"failures" yaml:"failures"`
	ErrorRate      float64       `json:"error_rate" yaml:"error_rate"`
	Duration       time.Duration `json:"-" yaml:"-"`
	RequestsPerSec float64       `json:"requests_per_sec" yaml:"requests_per_sec"`

	// HasLatency is false when no request succeeded; latency fields are then zero.
	HasLatency  bool          `json:"has_latency" yaml:"has_latency"`
	MinLatency  time.Duration `json:"-" yaml:"-"`
	MaxLatency  time.Duration `json:"-" yaml:"-"`
	MeanLatency time.Duration `json:"-" yaml:"-"`
	P50Latency  time.Duration `json:"-" yaml:"-"`
	P95Latency  time.Duration `json:"-" yaml:"-"`
	P99Latency  time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms" yaml:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms" yaml:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms" yaml:"duration_ms"`

	StatusBuckets map[string]int64 `json:"status_buckets,omitempty" yaml:"status_buckets,omitempty"`
	Phases        []Phase          `json:"phases,omitempty" yaml:"phases,omitempty"`
	StopReason    string           `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
}

// Phase summarizes one ramp step.
type Phase struct {
	RPS        int           `json:"rps" yaml:"rps"`
	Dispatched int64         `json:"dispatched" yaml:"dispatched"`
	Failures   int64         `json:"failures" yaml:"failures"`
	Duration   time.Duration `json:"-" yaml:"-"`
	DurationMs float64       `json:"duration_ms" yaml:"duration_ms"`
}

// NewPhase builds a Phase with its millisecond duration filled in.
func NewPhase(rps int, dispatched, failures int64, d time.Duration) Phase {
	return Phase{RPS: rps, Dispatched: dispatched, Failures: failures, Duration: d, DurationMs: toMs(d)}
}

// Successes returns the phase requests that did not fail.
func (p Phase) Successes() int64 {
	return p.Dispatched - p.Failures
}

// Aggregate computes a Report from a snapshot. It has no side effects and
// leaves snap untouched, so repeated calls yield identical reports.
//
// Percentiles use the nearest-rank method: the sample at index
// ceil(p/100*n)-1 of the ascending sample list.
func Aggregate(snap Snapshot, elapsed time.Duration) Report {
	total := snap.Total()
	report := Report{
		Total:     total,
		Successes: snap.Successes,
		Failures:  snap.Failures,
		Duration:  elapsed,
	}
	if total > 0 {
		report.ErrorRate = float64(snap.Failures) / float64(total) * 100
	}
	if elapsed > 0 && total > 0 {
		report.RequestsPerSec = float64(total) / elapsed.Seconds()
	}
	report.DurationMs = toMs(elapsed)

	if len(snap.StatusBuckets) > 0 {
		report.StatusBuckets = make(map[string]int64, len(snap.StatusBuckets))
		for k, v := range snap.StatusBuckets {
			report.StatusBuckets[k] = v
		}
	}

	if len(snap.Latencies) == 0 {
		return report
	}

	sorted := slices.Clone(snap.Latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, v := range sorted {
		sum += v
	}

	report.HasLatency = true
	report.MinLatency = sorted[0]
	report.MaxLatency = sorted[len(sorted)-1]
	report.MeanLatency = sum / time.Duration(len(sorted))
	report.P50Latency = Percentile(sorted, 50)
	report.P95Latency = Percentile(sorted, 95)
	report.P99Latency = Percentile(sorted, 99)

	report.MinLatencyMs = toMs(report.MinLatency)
	report.MaxLatencyMs = toMs(report.MaxLatency)
	report.MeanLatencyMs = toMs(report.MeanLatency)
	report.P50LatencyMs = toMs(report.P50Latency)
	report.P95LatencyMs = toMs(report.P95Latency)
	report.P99LatencyMs = toMs(report.P99Latency)
	return report
}

// Percentile returns the nearest-rank percentile p (0-100] of an ascending slice.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(n)/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
