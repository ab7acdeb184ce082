// Package threshold parses and evaluates pass/fail assertions against a
// finished run's aggregate statistics.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/volleyfire/volleyfire/internal/metrics"
)

// Threshold is one performance assertion.
type Threshold struct {
	Metric    string  // "latency", "failed", "requests"
	Aggregate string  // "p50", "p99", "avg", "rate", ...
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64
	Raw       string // original string for display
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against the given stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{Threshold: t, Pass: false, Message: fmt.Sprintf("error: %v", err)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses one threshold string. Supported forms:
//   - "latency:p99 < 500"    (latency percentile in ms)
//   - "latency:avg < 200"    (average latency in ms)
//   - "failed:rate < 0.01"   (failure rate as decimal)
//   - "failed:count < 10"    (failure count)
//   - "requests:rate > 100"  (requests per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p99 < 500')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[4], err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, failed, requests)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, rate, count)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every threshold string and reports all the
// failures at once.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "latency", "failed", "requests":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractLatencyMetric(t.Aggregate, stats)
	case "failed":
		return extractFailureMetric(t.Aggregate, stats)
	case "requests":
		return extractRequestMetric(t.Aggregate, stats)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50LatencyMs, nil
	case "p90":
		return stats.P90LatencyMs, nil
	case "p95":
		// Approximate p95 from the recorded p90 and p99.
		return (stats.P90LatencyMs + stats.P99LatencyMs) / 2, nil
	case "p99":
		return stats.P99LatencyMs, nil
	case "avg":
		return stats.AvgLatencyMs, nil
	case "min":
		return stats.MinLatencyMs, nil
	case "max":
		return stats.MaxLatencyMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for latency", aggregate)
	}
}

func extractFailureMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.Failures), nil
	case "rate":
		if stats.Total == 0 {
			return 0, nil
		}
		return float64(stats.Failures) / float64(stats.Total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for failed (use 'count' or 'rate')", aggregate)
	}
}

func extractRequestMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.Total), nil
	case "rate":
		return stats.RequestsPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for requests (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

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
