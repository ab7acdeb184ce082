package batch_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volleyfire/volleyfire/internal/batch"
	"github.com/volleyfire/volleyfire/internal/executor"
)

// fakeExecutor simulates settling a request with fixed latency.
type fakeExecutor struct {
	latency     time.Duration
	fail        bool
	calls       int64
	inflight    int64
	maxInflight int64
}

func (f *fakeExecutor) Execute(ctx context.Context) executor.Outcome {
	atomic.AddInt64(&f.calls, 1)
	current := atomic.AddInt64(&f.inflight, 1)
	for {
		max := atomic.LoadInt64(&f.maxInflight)
		if current <= max || atomic.CompareAndSwapInt64(&f.maxInflight, max, current) {
			break
		}
	}
	if f.latency > 0 {
		time.Sleep(f.latency)
	}
	atomic.AddInt64(&f.inflight, -1)

	if f.fail {
		return executor.Outcome{Success: false, Err: "synthetic failure", Elapsed: f.latency}
	}
	return executor.Outcome{Success: true, StatusCode: 200, Elapsed: f.latency}
}

func TestSchedulerDispatchesAllBatches(t *testing.T) {
	fake := &fakeExecutor{latency: time.Millisecond}
	plan := batch.Plan{Total: 10, Concurrency: 3}
	s := batch.NewScheduler(plan, fake)

	var sizes []int
	s.Run(context.Background(), func(index int, outcomes []executor.Outcome) bool {
		if index != len(sizes) {
			t.Fatalf("batches out of order: got index %d at position %d", index, len(sizes))
		}
		sizes = append(sizes, len(outcomes))
		return true
	})

	want := []int{3, 3, 3, 1}
	if len(sizes) != len(want) {
		t.Fatalf("batch count = %d, want %d", len(sizes), len(want))
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch %d size = %d, want %d", i, sizes[i], want[i])
		}
	}
	if got := atomic.LoadInt64(&fake.calls); got != 10 {
		t.Fatalf("executor called %d times, want 10", got)
	}
}

func TestSchedulerBatchJoinBoundsConcurrency(t *testing.T) {
	fake := &fakeExecutor{latency: 20 * time.Millisecond}
	plan := batch.Plan{Total: 9, Concurrency: 3}
	s := batch.NewScheduler(plan, fake)

	s.Run(context.Background(), func(int, []executor.Outcome) bool { return true })

	if max := atomic.LoadInt64(&fake.maxInflight); max > 3 {
		t.Fatalf("cross-batch overlap observed: max inflight %d", max)
	}
}

func TestSchedulerStopsWhenBatchFuncReturnsFalse(t *testing.T) {
	fake := &fakeExecutor{}
	plan := batch.Plan{Total: 10, Concurrency: 3}
	s := batch.NewScheduler(plan, fake)

	batches := 0
	s.Run(context.Background(), func(index int, outcomes []executor.Outcome) bool {
		batches++
		return batches < 2
	})

	if batches != 2 {
		t.Fatalf("expected drain after second batch, ran %d", batches)
	}
	if got := atomic.LoadInt64(&fake.calls); got != 6 {
		t.Fatalf("executor called %d times, want 6", got)
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	fake := &fakeExecutor{}
	plan := batch.Plan{Total: 10, Concurrency: 3}
	s := batch.NewScheduler(plan, fake)

	ctx, cancel := context.WithCancel(context.Background())
	batches := 0
	s.Run(ctx, func(index int, outcomes []executor.Outcome) bool {
		batches++
		cancel() // takes effect at the next batch boundary
		return true
	})

	if batches != 1 {
		t.Fatalf("expected a single batch after cancel, ran %d", batches)
	}
}

// Individual request failures never abort the batch or the run.
func TestSchedulerFailuresDoNotAbort(t *testing.T) {
	fake := &fakeExecutor{fail: true}
	plan := batch.Plan{Total: 7, Concurrency: 3}
	s := batch.NewScheduler(plan, fake)

	settled := 0
	s.Run(context.Background(), func(index int, outcomes []executor.Outcome) bool {
		for _, outcome := range outcomes {
			if outcome.Success {
				t.Fatal("fake should only fail")
			}
			settled++
		}
		return true
	})

	if settled != 7 {
		t.Fatalf("settled %d outcomes, want 7", settled)
	}
}

func TestSchedulerZeroVolume(t *testing.T) {
	fake := &fakeExecutor{}
	s := batch.NewScheduler(batch.Plan{Total: 0, Concurrency: 3}, fake)

	called := false
	s.Run(context.Background(), func(int, []executor.Outcome) bool {
		called = true
		return true
	})

	if called || atomic.LoadInt64(&fake.calls) != 0 {
		t.Fatal("zero-volume plan must dispatch nothing")
	}
}
