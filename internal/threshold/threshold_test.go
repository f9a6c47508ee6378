package threshold

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/surge/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "p95 latency in seconds",
			input: "http_req_duration:p95 < 0.5",
			want: Threshold{
				Metric:    "http_req_duration",
				Aggregate: "p95",
				Operator:  "<",
				Value:     0.5,
				Raw:       "http_req_duration:p95 < 0.5",
			},
		},
		{
			name:  "failure rate",
			input: "http_req_failed:rate < 0.01",
			want: Threshold{
				Metric:    "http_req_failed",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "http_req_failed:rate < 0.01",
			},
		},
		{
			name:  "surrounding whitespace",
			input: "  http_requests:rate >= 100  ",
			want: Threshold{
				Metric:    "http_requests",
				Aggregate: "rate",
				Operator:  ">=",
				Value:     100,
				Raw:       "http_requests:rate >= 100",
			},
		},
		{name: "empty", input: "", wantError: true},
		{name: "missing aggregate", input: "http_req_duration < 1", wantError: true},
		{name: "unknown metric", input: "cpu_usage:avg < 1", wantError: true},
		{name: "unknown aggregate", input: "http_req_duration:p90 < 1", wantError: true},
		{name: "bad operator", input: "http_req_duration:p95 != 1", wantError: true},
		{name: "bad value", input: "http_req_duration:p95 < 1.2.3", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	got, err := ParseMultiple([]string{"http_req_duration:p99 < 1", "http_req_failed:count == 0"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseMultiple() = %d thresholds, want 2", len(got))
	}

	_, err = ParseMultiple([]string{"http_req_duration:p99 < 1", "bogus", "also bogus"})
	if err == nil {
		t.Fatal("ParseMultiple() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Errorf("error %q should name every bad entry", err)
	}

	if got, err := ParseMultiple(nil); got != nil || err != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v", got, err)
	}
}

func sampleReport() metrics.Report {
	return metrics.Report{
		Total:          200,
		Successes:      190,
		Failures:       10,
		RequestsPerSec: 40,
		HasLatency:     true,
		MinLatency:     10 * time.Millisecond,
		MaxLatency:     900 * time.Millisecond,
		MeanLatency:    120 * time.Millisecond,
		P50Latency:     100 * time.Millisecond,
		P95Latency:     400 * time.Millisecond,
		P99Latency:     800 * time.Millisecond,
	}
}

func TestEvaluator(t *testing.T) {
	thresholds, err := ParseMultiple([]string{
		"http_req_duration:p95 < 0.5",
		"http_req_duration:p99 < 0.5",
		"http_req_duration:avg <= 0.12",
		"http_req_failed:rate < 0.1",
		"http_req_failed:count > 10",
		"http_requests:rate >= 40",
		"http_requests:count == 200",
	})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}

	results := NewEvaluator(thresholds).Evaluate(sampleReport())
	want := []bool{true, false, true, true, false, true, true}
	if len(results) != len(want) {
		t.Fatalf("Evaluate() = %d results, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.Pass != want[i] {
			t.Errorf("%s: Pass = %v, want %v (actual %.4f)", r.Threshold.Raw, r.Pass, want[i], r.Actual)
		}
		if r.Message == "" {
			t.Errorf("%s: empty message", r.Threshold.Raw)
		}
	}
	if AllPassed(results) {
		t.Error("AllPassed() = true, want false")
	}
	if !AllPassed(results[:1]) {
		t.Error("AllPassed() on passing subset = false")
	}
}

func TestEvaluatorWithoutThresholds(t *testing.T) {
	if got := NewEvaluator(nil).Evaluate(sampleReport()); got != nil {
		t.Errorf("Evaluate() = %v, want nil", got)
	}
}

func TestLatencyThresholdFailsWithoutSuccesses(t *testing.T) {
	th, err := Parse("http_req_duration:p95 < 10")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	report := metrics.Report{Total: 5, Failures: 5}

	results := NewEvaluator([]Threshold{th}).Evaluate(report)
	if len(results) != 1 || results[0].Pass {
		t.Fatalf("Evaluate() = %+v, want one failing result", results)
	}
	if !strings.Contains(results[0].Message, "no successful requests") {
		t.Errorf("Message = %q", results[0].Message)
	}
}

func TestFailureRateWithNoRequests(t *testing.T) {
	got, err := metricValue(Threshold{Metric: MetricFailed, Aggregate: "rate"}, metrics.Report{})
	if err != nil || got != 0 {
		t.Errorf("metricValue() = %v, %v; want 0, nil", got, err)
	}
	if _, err := metricValue(Threshold{Metric: MetricFailed, Aggregate: "p95"}, metrics.Report{}); err == nil {
		t.Error("metricValue() with p95 on failures should fail")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{1, "<", 2, true},
		{2, "<", 2, false},
		{2, "<=", 2, true},
		{3, ">", 2, true},
		{2, ">=", 2, true},
		{0.1 + 0.2, "==", 0.3, true},
		{1, "!=", 2, false},
	}
	for _, tt := range tests {
		if got := compare(tt.actual, tt.operator, tt.expected); got != tt.want {
			t.Errorf("compare(%v %s %v) = %v, want %v", tt.actual, tt.operator, tt.expected, got, tt.want)
		}
	}
}
