// Package controller owns the lifecycle of a load-generation run. It
// wires config validation, batch scheduling and metrics aggregation
// together and publishes immutable RunState snapshots and log lines to
// whatever presentation layer is listening. The engine never depends on
// how either stream is rendered.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/volleyfire/volleyfire/internal/batch"
	"github.com/volleyfire/volleyfire/internal/config"
	"github.com/volleyfire/volleyfire/internal/executor"
	"github.com/volleyfire/volleyfire/internal/metrics"
)

// State is the run lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// ErrRunInProgress is returned by Start while a run is already active.
var ErrRunInProgress = errors.New("run already in progress")

const (
	eventBuffer = 64
	logBuffer   = 64
	logTimeFmt  = "2006-01-02 15:04:05"
)

// Options configure a Controller.
type Options struct {
	// NewExecutor builds the request executor for a run. Defaults to the
	// HTTP executor; tests inject fakes here.
	NewExecutor func(cfg *config.Config, headers map[string]string) executor.Executor
	// Tracer, when non-nil, is handed to the default HTTP executor.
	Tracer    trace.Tracer
	Propagate bool
}

// Controller drives runs through Idle -> Running -> {Completed, Stopped}.
type Controller struct {
	mu    sync.Mutex
	state State

	stopRequested atomic.Bool
	runID         string

	events chan metrics.RunState
	logs   chan string

	opts Options
}

// New creates a Controller in the Idle state.
func New(opts Options) *Controller {
	c := &Controller{
		state:  StateIdle,
		events: make(chan metrics.RunState, eventBuffer),
		logs:   make(chan string, logBuffer),
		opts:   opts,
	}
	if c.opts.NewExecutor == nil {
		c.opts.NewExecutor = func(cfg *config.Config, headers map[string]string) executor.Executor {
			return executor.NewHTTPExecutor(executor.Options{
				Method:    cfg.Method,
				Target:    cfg.TargetURL,
				Headers:   headers,
				Body:      cfg.Body,
				Timeout:   cfg.Timeout,
				Tracer:    opts.Tracer,
				Propagate: opts.Propagate,
			})
		}
	}
	return c
}

// Events streams one RunState snapshot per completed batch plus a final
// one. Sends are non-blocking; a lagging consumer loses intermediate
// snapshots, never the engine's pace.
func (c *Controller) Events() <-chan metrics.RunState {
	return c.events
}

// Logs streams timestamped human-readable log lines.
func (c *Controller) Logs() <-chan string {
	return c.logs
}

// State reports the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop requests cooperative cancellation. It is a no-op unless a run is
// active. The in-flight batch is allowed to finish settling; the
// guarantee is that no new batch is dispatched afterwards.
func (c *Controller) Stop() {
	c.mu.Lock()
	active := c.state == StateRunning
	runID := c.runID
	c.mu.Unlock()
	if !active {
		return
	}
	if c.stopRequested.CompareAndSwap(false, true) {
		c.logf(runID, "stop requested; draining in-flight batch")
	}
}

// Start validates the config and drives the run to completion, blocking
// until the run finishes or is stopped. It returns ErrRunInProgress when
// called while Running and a *config.ValidationError when the config is
// unusable; in both cases no run is started.
func (c *Controller) Start(ctx context.Context, cfg *config.Config) (metrics.Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return metrics.Stats{}, errors.New("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return metrics.Stats{}, err
	}

	run := *cfg
	run.Normalize()

	runID := ulid.Make().String()

	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return metrics.Stats{}, ErrRunInProgress
	}
	c.state = StateRunning
	c.runID = runID
	c.mu.Unlock()
	c.stopRequested.Store(false)

	headers := config.EffectiveHeaders(&run)
	exec := c.opts.NewExecutor(&run, headers)

	plan := batch.Plan{Total: run.Total, Concurrency: run.Concurrency}
	totalBatches := plan.NumBatches()
	agg := metrics.NewAggregator(run.Total, totalBatches)

	c.logf(runID, "run started: %s %s, %d requests in %d batches of up to %d",
		run.Method, run.TargetURL, run.Total, totalBatches, run.Concurrency)

	scheduler := batch.NewScheduler(plan, exec)
	scheduler.Run(ctx, func(index int, outcomes []executor.Outcome) bool {
		agg.Fold(outcomes)
		snapshot := agg.Snapshot()
		c.emit(snapshot)
		c.logf(runID, "batch %d/%d settled: %d ok, %d failed, progress %d%%",
			index+1, totalBatches, snapshot.Successes, snapshot.Failures, snapshot.Progress)
		return !c.stopRequested.Load() && ctx.Err() == nil
	})

	cancelled := c.stopRequested.Load() || ctx.Err() != nil
	stopped := cancelled && agg.CompletedBatches() < totalBatches

	stats := agg.Finalize(stopped)
	stats.RunID = runID
	c.emit(agg.Snapshot())

	if stopped {
		c.logf(runID, "run stopped after %d/%d batches: %d ok, %d failed",
			agg.CompletedBatches(), totalBatches, stats.Successes, stats.Failures)
	} else {
		c.logf(runID, "run completed: %d ok, %d failed, avg %.2fms",
			stats.Successes, stats.Failures, stats.AvgLatencyMs)
	}

	c.mu.Lock()
	if stopped {
		c.state = StateStopped
	} else {
		c.state = StateCompleted
	}
	c.mu.Unlock()

	return stats, nil
}

// emit publishes a snapshot without ever blocking the control thread.
func (c *Controller) emit(snapshot metrics.RunState) {
	select {
	case c.events <- snapshot:
	default:
		// Drop when the consumer lags; the final snapshot restates totals.
	}
}

func (c *Controller) logf(runID, format string, args ...interface{}) {
	line := fmt.Sprintf("%s [%s] %s", time.Now().Format(logTimeFmt), runID, fmt.Sprintf(format, args...))
	select {
	case c.logs <- line:
	default:
	}
}
