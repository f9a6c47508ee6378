package metrics_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/torosent/surge/internal/metrics"
)

func TestAggregateLatencyStats(t *testing.T) {
	snap := metrics.Snapshot{
		Successes: 5,
		Latencies: []time.Duration{
			50 * time.Millisecond,
			10 * time.Millisecond,
			30 * time.Millisecond,
			20 * time.Millisecond,
			40 * time.Millisecond,
		},
	}

	report := metrics.Aggregate(snap, time.Second)

	if report.Total != 5 || report.Successes != 5 || report.Failures != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if !report.HasLatency {
		t.Fatal("expected latency to be reported")
	}
	if report.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", report.MinLatency)
	}
	if report.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", report.MaxLatency)
	}
	if report.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", report.MeanLatency)
	}
	if report.RequestsPerSec != 5 {
		t.Errorf("expected 5 req/s, got %f", report.RequestsPerSec)
	}
	if report.ErrorRate != 0 {
		t.Errorf("expected 0%% errors, got %f", report.ErrorRate)
	}
}

func TestAggregateNearestRank(t *testing.T) {
	// 100 samples: 1ms, 2ms, ..., 100ms.
	samples := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	report := metrics.Aggregate(metrics.Snapshot{Successes: 100, Latencies: samples}, 0)

	if report.P50Latency != 50*time.Millisecond {
		t.Errorf("expected p50 50ms, got %s", report.P50Latency)
	}
	if report.P95Latency != 95*time.Millisecond {
		t.Errorf("expected p95 95ms, got %s", report.P95Latency)
	}
	if report.P99Latency != 99*time.Millisecond {
		t.Errorf("expected p99 99ms, got %s", report.P99Latency)
	}
}

func TestPercentileSmallSamples(t *testing.T) {
	sorted := []time.Duration{1, 2, 3}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{1, 1},
		{33, 1},
		{34, 2},
		{95, 3},
		{99, 3},
		{100, 3},
	}
	for _, tt := range tests {
		if got := metrics.Percentile(sorted, tt.p); got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := metrics.Percentile(nil, 95); got != 0 {
		t.Errorf("expected 0 for empty samples, got %v", got)
	}
}

func TestAggregateP99NotBelowP95(t *testing.T) {
	sets := [][]time.Duration{
		{7 * time.Millisecond},
		{3 * time.Millisecond, 900 * time.Millisecond},
		{5, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4, 6},
	}
	for _, samples := range sets {
		r := metrics.Aggregate(metrics.Snapshot{Successes: int64(len(samples)), Latencies: samples}, time.Second)
		if r.P99Latency < r.P95Latency {
			t.Errorf("p99 %s below p95 %s for %v", r.P99Latency, r.P95Latency, samples)
		}
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	snap := metrics.Snapshot{
		Successes:     3,
		Failures:      1,
		Latencies:     []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond},
		StatusBuckets: map[string]int64{"500": 1},
	}
	first := metrics.Aggregate(snap, 2*time.Second)
	second := metrics.Aggregate(snap, 2*time.Second)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not idempotent:\n%+v\n%+v", first, second)
	}
	if snap.Latencies[0] != 30*time.Millisecond {
		t.Fatalf("aggregate mutated the snapshot: %v", snap.Latencies)
	}
}

func TestAggregateAllFailures(t *testing.T) {
	snap := metrics.Snapshot{Failures: 12, StatusBuckets: map[string]int64{metrics.BucketConnectionRefused: 12}}
	report := metrics.Aggregate(snap, time.Second)

	if report.HasLatency {
		t.Fatal("expected no latency for all-failure run")
	}
	if report.MeanLatency != 0 || report.P95Latency != 0 || report.P99Latency != 0 {
		t.Errorf("expected zero latency sentinel, got %+v", report)
	}
	if report.ErrorRate != 100 {
		t.Errorf("expected 100%% error rate, got %f", report.ErrorRate)
	}
	if report.Total != report.Successes+report.Failures {
		t.Errorf("conservation broken: %+v", report)
	}
}

func TestAggregateEmptySnapshot(t *testing.T) {
	report := metrics.Aggregate(metrics.Snapshot{}, 0)
	if report.Total != 0 || report.ErrorRate != 0 || report.RequestsPerSec != 0 || report.HasLatency {
		t.Fatalf("unexpected report for empty run: %+v", report)
	}
}
