// Package metrics folds per-request outcomes into a running RunState and
// a final Stats summary. The aggregator is deliberately lock-free: it is
// owned by the run's control goroutine and only ever touched between two
// completed batches.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/volleyfire/volleyfire/internal/executor"
)

// Aggregator accumulates outcomes batch by batch.
type Aggregator struct {
	state         RunState
	hist          *hdrhistogram.Histogram
	sumLatency    time.Duration
	minLatency    time.Duration
	maxLatency    time.Duration
	failureCauses map[string]int
}

// NewAggregator creates an aggregator for a run of the given volume and
// batch count. The run is considered started (and running) immediately.
func NewAggregator(totalRequests, totalBatches int) *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Aggregator{
		state: RunState{
			TotalRequests: totalRequests,
			TotalBatches:  totalBatches,
			Durations:     make([]time.Duration, 0, totalRequests),
			StartTime:     time.Now(),
			Running:       true,
		},
		hist:          h,
		failureCauses: make(map[string]int),
	}
}

// Fold records the settled outcomes of one completed batch. A time is
// recorded for every outcome, failures included, so the recorded-times
// count always matches the processed volume. Progress advances to
// completedBatches/totalBatches and reaches 100 only on the last batch.
func (a *Aggregator) Fold(outcomes []executor.Outcome) {
	for _, outcome := range outcomes {
		if outcome.Success {
			a.state.Successes++
		} else {
			a.state.Failures++
			a.failureCauses[ClassifyFailure(outcome.Err)]++
		}

		a.state.Durations = append(a.state.Durations, outcome.Elapsed)
		a.sumLatency += outcome.Elapsed

		if a.minLatency == 0 || outcome.Elapsed < a.minLatency {
			a.minLatency = outcome.Elapsed
		}
		if outcome.Elapsed > a.maxLatency {
			a.maxLatency = outcome.Elapsed
		}

		if outcome.Elapsed > 0 {
			us := outcome.Elapsed.Microseconds()
			if us < a.hist.LowestTrackableValue() {
				us = a.hist.LowestTrackableValue()
			}
			if us > a.hist.HighestTrackableValue() {
				us = a.hist.HighestTrackableValue()
			}
			_ = a.hist.RecordValue(us)
		}
	}

	a.state.CompletedBatches++
	if a.state.TotalBatches > 0 {
		a.state.Progress = a.state.CompletedBatches * 100 / a.state.TotalBatches
	}
}

// Snapshot returns a deep copy of the current RunState, safe to hand to
// another goroutine.
func (a *Aggregator) Snapshot() RunState {
	snapshot := a.state
	snapshot.Durations = append([]time.Duration(nil), a.state.Durations...)
	return snapshot
}

// CompletedBatches reports how many batches have been folded so far.
func (a *Aggregator) CompletedBatches() int {
	return a.state.CompletedBatches
}

// Finalize closes the run and computes the aggregate summary. The average
// is the arithmetic mean of all recorded times, or 0 when nothing was
// recorded (the zero-length run).
func (a *Aggregator) Finalize(stopped bool) Stats {
	a.state.Running = false
	a.state.EndTime = time.Now()
	if !stopped && a.state.CompletedBatches == a.state.TotalBatches {
		a.state.Progress = 100
	}

	elapsed := a.state.EndTime.Sub(a.state.StartTime)
	recorded := len(a.state.Durations)

	stats := Stats{
		Total:      a.state.Successes + a.state.Failures,
		Successes:  a.state.Successes,
		Failures:   a.state.Failures,
		Stopped:    stopped,
		MinLatency: a.minLatency,
		MaxLatency: a.maxLatency,
		Duration:   elapsed,
	}

	if recorded > 0 {
		stats.AvgLatency = a.sumLatency / time.Duration(recorded)
	}

	if a.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.AvgLatencyMs = float64(stats.AvgLatency) / float64(time.Millisecond)
	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && stats.Total > 0 {
		stats.RequestsPerSec = float64(stats.Total) / elapsed.Seconds()
	}

	if len(a.failureCauses) > 0 {
		stats.FailureCauses = make(map[string]int, len(a.failureCauses))
		for cause, count := range a.failureCauses {
			stats.FailureCauses[cause] = count
		}
	}

	return stats
}
