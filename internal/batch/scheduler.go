// Package batch drives the load-generation engine's unit of progress:
// a fixed-size group of requests dispatched concurrently and awaited
// together. Batches never overlap; batch b+1 is not dispatched until
// every request of batch b has settled.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/volleyfire/volleyfire/internal/executor"
)

// InterBatchPause bounds burst load: the scheduler sleeps this long
// between any two batches, never after the last.
const InterBatchPause = 100 * time.Millisecond

// BatchFunc receives the settled outcomes of one batch. Returning false
// stops the scheduler before the next batch is dispatched; the current
// batch has always fully settled by the time it is called.
type BatchFunc func(index int, outcomes []executor.Outcome) bool

// Scheduler executes a Plan batch by batch against a single Executor.
type Scheduler struct {
	plan  Plan
	exec  executor.Executor
	pause time.Duration
}

// NewScheduler creates a scheduler with the standard inter-batch pause.
func NewScheduler(plan Plan, exec executor.Executor) *Scheduler {
	return &Scheduler{plan: plan, exec: exec, pause: InterBatchPause}
}

// Run dispatches every batch in order. Within a batch all requests are
// issued concurrently and joined with wait-for-all semantics; individual
// failures never abort the batch. Cancellation via ctx or onBatch is
// observed only at batch boundaries, so an in-flight batch always drains.
func (s *Scheduler) Run(ctx context.Context, onBatch BatchFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	n := s.plan.NumBatches()
	for b := 0; b < n; b++ {
		if b > 0 && ctx.Err() != nil {
			return
		}

		outcomes := s.runBatch(ctx, s.plan.SizeOf(b))
		if onBatch != nil && !onBatch(b, outcomes) {
			return
		}

		if b < n-1 {
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				return
			}
		}
	}
}

// runBatch issues size concurrent requests and blocks until every one of
// them has settled.
func (s *Scheduler) runBatch(ctx context.Context, size int) []executor.Outcome {
	outcomes := make([]executor.Outcome, size)

	var wg sync.WaitGroup
	wg.Add(size)
	for i := 0; i < size; i++ {
		go func(slot int) {
			defer wg.Done()
			outcomes[slot] = s.exec.Execute(ctx)
		}(i)
	}
	wg.Wait()

	return outcomes
}
