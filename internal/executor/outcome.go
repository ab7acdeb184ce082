package executor

import "time"

// Outcome classifies the settled result of a single request. Success is
// true whenever the transport completed and a response was received,
// regardless of status code; the engine measures reachability, not
// application-level correctness. Err is set only on transport failure.
type Outcome struct {
	Success    bool
	StatusCode int
	Err        string
	Elapsed    time.Duration
}

// ElapsedMs returns the measured wall-clock time in milliseconds.
func (o Outcome) ElapsedMs() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}
