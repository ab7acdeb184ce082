package metrics

import (
	"testing"
	"time"

	"github.com/volleyfire/volleyfire/internal/executor"
)

func outcomesOf(elapsed time.Duration, successes, failures int) []executor.Outcome {
	outcomes := make([]executor.Outcome, 0, successes+failures)
	for i := 0; i < successes; i++ {
		outcomes = append(outcomes, executor.Outcome{Success: true, StatusCode: 200, Elapsed: elapsed})
	}
	for i := 0; i < failures; i++ {
		outcomes = append(outcomes, executor.Outcome{Success: false, Err: "connection refused", Elapsed: elapsed})
	}
	return outcomes
}

func TestFoldCountsAndRecordedTimes(t *testing.T) {
	agg := NewAggregator(10, 4)
	agg.Fold(outcomesOf(10*time.Millisecond, 2, 1))
	agg.Fold(outcomesOf(20*time.Millisecond, 3, 0))

	snap := agg.Snapshot()
	if snap.Successes != 5 || snap.Failures != 1 {
		t.Fatalf("tallies = %d/%d", snap.Successes, snap.Failures)
	}
	if len(snap.Durations) != 6 {
		t.Fatalf("recorded times = %d, want 6", len(snap.Durations))
	}
	if snap.CompletedBatches != 2 {
		t.Fatalf("completed batches = %d", snap.CompletedBatches)
	}
	if !snap.Running {
		t.Fatal("run should still be marked running")
	}
}

func TestProgressSequence(t *testing.T) {
	agg := NewAggregator(10, 4)
	want := []int{25, 50, 75, 100}

	var got []int
	for _, size := range []int{3, 3, 3, 1} {
		agg.Fold(outcomesOf(time.Millisecond, size, 0))
		got = append(got, agg.Snapshot().Progress)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress sequence = %v, want %v", got, want)
		}
	}
}

func TestProgressMonotone(t *testing.T) {
	agg := NewAggregator(100, 7)
	last := 0
	for i := 0; i < 7; i++ {
		agg.Fold(outcomesOf(time.Millisecond, 10, 0))
		progress := agg.Snapshot().Progress
		if progress < last {
			t.Fatalf("progress regressed: %d after %d", progress, last)
		}
		if progress == 100 && i != 6 {
			t.Fatalf("progress hit 100 on batch %d of 7", i+1)
		}
		last = progress
	}
	if last != 100 {
		t.Fatalf("final progress = %d", last)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	agg := NewAggregator(4, 2)
	agg.Fold(outcomesOf(time.Millisecond, 2, 0))

	snap := agg.Snapshot()
	snap.Durations[0] = 99 * time.Hour

	if agg.Snapshot().Durations[0] == 99*time.Hour {
		t.Fatal("snapshot shares backing storage with the aggregator")
	}
}

func TestFinalizeAverage(t *testing.T) {
	agg := NewAggregator(4, 2)
	agg.Fold([]executor.Outcome{
		{Success: true, Elapsed: 10 * time.Millisecond},
		{Success: true, Elapsed: 20 * time.Millisecond},
	})
	agg.Fold([]executor.Outcome{
		{Success: true, Elapsed: 30 * time.Millisecond},
		{Success: false, Err: "timeout", Elapsed: 40 * time.Millisecond},
	})

	stats := agg.Finalize(false)
	if stats.AvgLatency != 25*time.Millisecond {
		t.Fatalf("avg = %s, want 25ms", stats.AvgLatency)
	}
	if stats.MinLatency != 10*time.Millisecond || stats.MaxLatency != 40*time.Millisecond {
		t.Fatalf("min/max = %s/%s", stats.MinLatency, stats.MaxLatency)
	}
	if stats.Total != 4 || stats.Successes != 3 || stats.Failures != 1 {
		t.Fatalf("tallies = %+v", stats)
	}
	if stats.FailureCauses["Timeout"] != 1 {
		t.Fatalf("failure causes = %v", stats.FailureCauses)
	}
}

// A zero-length run finalizes immediately with a zero average.
func TestFinalizeZeroVolume(t *testing.T) {
	agg := NewAggregator(0, 0)
	stats := agg.Finalize(false)
	if stats.AvgLatency != 0 {
		t.Fatalf("avg = %s, want 0", stats.AvgLatency)
	}
	if stats.Total != 0 || stats.Successes != 0 || stats.Failures != 0 {
		t.Fatalf("tallies = %+v", stats)
	}

	snap := agg.Snapshot()
	if snap.Running {
		t.Fatal("finalized run still marked running")
	}
	if snap.Progress != 100 {
		t.Fatalf("progress = %d, want 100", snap.Progress)
	}
	if snap.EndTime.IsZero() {
		t.Fatal("end timestamp not set")
	}
}

// All requests failing is a completed run with degraded statistics, not
// an error state.
func TestFinalizeAllFailures(t *testing.T) {
	agg := NewAggregator(4, 2)
	agg.Fold(outcomesOf(time.Millisecond, 0, 2))
	agg.Fold(outcomesOf(time.Millisecond, 0, 2))

	stats := agg.Finalize(false)
	if stats.Failures != 4 || stats.Successes != 0 {
		t.Fatalf("tallies = %+v", stats)
	}
	if stats.AvgLatency != time.Millisecond {
		t.Fatalf("avg = %s; failures still record times", stats.AvgLatency)
	}
}

func TestFinalizeStoppedKeepsPartialProgress(t *testing.T) {
	agg := NewAggregator(10, 4)
	agg.Fold(outcomesOf(time.Millisecond, 3, 0))
	agg.Fold(outcomesOf(time.Millisecond, 3, 0))

	stats := agg.Finalize(true)
	if !stats.Stopped {
		t.Fatal("stats should be marked stopped")
	}
	if stats.Total != 6 {
		t.Fatalf("total = %d, want 6", stats.Total)
	}
	if snap := agg.Snapshot(); snap.Progress != 50 {
		t.Fatalf("progress = %d, want 50", snap.Progress)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"Get \"http://x\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)", "Timeout"},
		{"dial tcp 127.0.0.1:1: connect: connection refused", "Connection refused"},
		{"dial tcp: lookup nowhere.invalid: no such host", "DNS resolution failure"},
		{"parse \"://bad\": missing protocol scheme", "Request URL error"},
		{"read tcp 10.0.0.1:80: connection reset by peer", "Connection reset"},
		{"tls: failed to verify certificate", "TLS handshake failure"},
		{"context canceled", "Request cancelled"},
		{"something inexplicable", "Transport error"},
		{"", "Unreported failure"},
	}

	for _, tc := range cases {
		if got := ClassifyFailure(tc.message); got != tc.want {
			t.Fatalf("ClassifyFailure(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}
