// Package threshold evaluates pass/fail assertions against a run report.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/torosent/surge/internal/metrics"
)

const (
	MetricDuration = "http_req_duration"
	MetricFailed   = "http_req_failed"
	MetricRequests = "http_requests"
)

var (
	thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

	validMetrics    = []string{MetricDuration, MetricFailed, MetricRequests}
	validAggregates = []string{"p50", "p95", "p99", "avg", "mean", "min", "max", "rate", "count"}
	validOperators  = []string{"<", "<=", ">", ">=", "=="}

	errNoLatency = errors.New("no successful requests, latency is undefined")
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // http_req_duration, http_req_failed or http_requests
	Aggregate string  // p50, p95, p99, avg, min, max, rate or count
	Operator  string  // <, <=, >, >= or ==
	Value     float64 // latency in seconds, failure rate as a fraction
	Raw       string
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a report.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against report.
func (e *Evaluator) Evaluate(report metrics.Report) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, report))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, report metrics.Report) Result {
	actual, err := metricValue(t, report)
	if err != nil {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("✗ %s: %v", t.Raw, err),
		}
	}

	pass := compare(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.4f %s %.4f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string. Supported forms:
//
//	http_req_duration:p95 < 0.5   latency percentile in seconds
//	http_req_duration:avg < 0.2   mean latency in seconds
//	http_req_failed:rate < 0.01   failure fraction
//	http_req_failed:count < 10    failure count
//	http_requests:rate > 100      requests per second
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, errors.New("empty threshold string")
	}

	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'http_req_duration:p95 < 0.5')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %w", m[4], err)
	}
	if !slices.Contains(validMetrics, metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(validMetrics, ", "))
	}
	if !slices.Contains(validAggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: %s)", aggregate, strings.Join(validAggregates, ", "))
	}
	if !slices.Contains(validOperators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: %s)", operator, strings.Join(validOperators, ", "))
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every threshold and reports all malformed entries at once.
func ParseMultiple(raw []string) ([]Threshold, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make([]Threshold, 0, len(raw))
	var issues []string
	for i, s := range raw {
		t, err := Parse(s)
		if err != nil {
			issues = append(issues, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(issues, "; "))
	}
	return out, nil
}

func metricValue(t Threshold, report metrics.Report) (float64, error) {
	switch t.Metric {
	case MetricDuration:
		return latencyValue(t.Aggregate, report)
	case MetricFailed:
		switch t.Aggregate {
		case "count":
			return float64(report.Failures), nil
		case "rate":
			if report.Total == 0 {
				return 0, nil
			}
			return float64(report.Failures) / float64(report.Total), nil
		}
		return 0, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", t.Aggregate, t.Metric)
	case MetricRequests:
		switch t.Aggregate {
		case "count":
			return float64(report.Total), nil
		case "rate":
			return report.RequestsPerSec, nil
		}
		return 0, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", t.Aggregate, t.Metric)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func latencyValue(aggregate string, report metrics.Report) (float64, error) {
	if !report.HasLatency {
		return 0, errNoLatency
	}
	switch aggregate {
	case "p50":
		return report.P50Latency.Seconds(), nil
	case "p95":
		return report.P95Latency.Seconds(), nil
	case "p99":
		return report.P99Latency.Seconds(), nil
	case "avg", "mean":
		return report.MeanLatency.Seconds(), nil
	case "min":
		return report.MinLatency.Seconds(), nil
	case "max":
		return report.MaxLatency.Seconds(), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s", aggregate, MetricDuration)
	}
}

func compare(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
