package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/volleyfire/volleyfire/internal/metrics"
	"github.com/volleyfire/volleyfire/internal/threshold"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if stats.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", stats.RunID)
	}
	if stats.Stopped {
		fmt.Fprintln(w, "Status:            stopped early")
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Avg:             %s\n", stats.AvgLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.FailureCauses) > 0 {
		fmt.Fprintln(w, "\nFailure Breakdown:")
		causes := make([]string, 0, len(stats.FailureCauses))
		for cause := range stats.FailureCauses {
			causes = append(causes, cause)
		}
		sort.Slice(causes, func(i, j int) bool {
			if stats.FailureCauses[causes[i]] != stats.FailureCauses[causes[j]] {
				return stats.FailureCauses[causes[i]] > stats.FailureCauses[causes[j]]
			}
			return causes[i] < causes[j]
		})
		for _, cause := range causes {
			fmt.Fprintf(w, "  - %s: %d\n", cause, stats.FailureCauses[cause])
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// PrintThresholdResults writes one line per evaluated threshold and
// reports whether every one of them passed.
func PrintThresholdResults(w io.Writer, results []threshold.Result) bool {
	if len(results) == 0 {
		return true
	}

	fmt.Fprintln(w, "\nThresholds:")
	allPassed := true
	for _, result := range results {
		fmt.Fprintf(w, "  %s\n", result.Message)
		if !result.Pass {
			allPassed = false
		}
	}
	return allPassed
}
