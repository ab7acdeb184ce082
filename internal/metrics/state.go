package metrics

import "time"

// RunState is the running view of one load-generation run. It is owned
// by the run's control goroutine and mutated only between completed
// batches; consumers receive deep copies via Aggregator.Snapshot, so no
// locking is involved anywhere in the engine.
type RunState struct {
	TotalRequests    int             `json:"total_requests"`
	Successes        int             `json:"successes"`
	Failures         int             `json:"failures"`
	Durations        []time.Duration `json:"-"`
	CompletedBatches int             `json:"completed_batches"`
	TotalBatches     int             `json:"total_batches"`
	Progress         int             `json:"progress"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          time.Time       `json:"end_time,omitzero"`
	Running          bool            `json:"running"`
}

// Stats is the aggregate result of a finished run.
type Stats struct {
	RunID     string `json:"run_id,omitempty"`
	Total     int    `json:"total"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	Stopped   bool   `json:"stopped"`

	AvgLatency time.Duration `json:"-"`
	MinLatency time.Duration `json:"-"`
	MaxLatency time.Duration `json:"-"`
	P50Latency time.Duration `json:"-"`
	P90Latency time.Duration `json:"-"`
	P99Latency time.Duration `json:"-"`
	Duration   time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	MinLatencyMs   float64 `json:"min_latency_ms"`
	MaxLatencyMs   float64 `json:"max_latency_ms"`
	P50LatencyMs   float64 `json:"p50_latency_ms"`
	P90LatencyMs   float64 `json:"p90_latency_ms"`
	P99LatencyMs   float64 `json:"p99_latency_ms"`
	DurationMs     float64 `json:"duration_ms"`
	RequestsPerSec float64 `json:"requests_per_sec"`

	FailureCauses map[string]int `json:"failure_causes,omitempty"`
}
