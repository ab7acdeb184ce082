// Package output renders run progress and final reports to a writer.
package output

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/volleyfire/volleyfire/internal/metrics"
)

// ProgressReporter rewrites a single terminal line from the RunState
// snapshots it consumes. It never blocks the producer; it simply renders
// whatever arrives.
type ProgressReporter struct {
	events   <-chan metrics.RunState
	writer   io.Writer
	done     chan struct{}
	finished chan struct{}
	active   int32
}

// NewProgressReporter creates a reporter reading snapshots from events.
func NewProgressReporter(events <-chan metrics.RunState, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		events:   events,
		writer:   writer,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start begins rendering in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts rendering and waits for the final line to flush.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case state, ok := <-p.events:
			if !ok {
				fmt.Fprintln(p.writer)
				return
			}
			fmt.Fprint(p.writer, FormatProgressLine(state))
		case <-p.done:
			// Drain anything already queued so the last snapshot lands.
			for {
				select {
				case state, ok := <-p.events:
					if !ok {
						fmt.Fprintln(p.writer)
						return
					}
					fmt.Fprint(p.writer, FormatProgressLine(state))
				default:
					fmt.Fprintln(p.writer)
					return
				}
			}
		}
	}
}

// FormatProgressLine renders one snapshot as a carriage-returned status
// line.
func FormatProgressLine(state metrics.RunState) string {
	return fmt.Sprintf("\rBatch %d/%d | Progress: %d%% | Requests: %d | OK: %d | Failed: %d",
		state.CompletedBatches, state.TotalBatches, state.Progress,
		state.Successes+state.Failures, state.Successes, state.Failures)
}
