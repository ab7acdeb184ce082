package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/volleyfire/volleyfire/internal/metrics"
)

func TestFormatProgressLine(t *testing.T) {
	line := FormatProgressLine(metrics.RunState{
		CompletedBatches: 2,
		TotalBatches:     4,
		Progress:         50,
		Successes:        18,
		Failures:         2,
	})

	if !strings.HasPrefix(line, "\r") {
		t.Fatal("progress line must start with a carriage return")
	}
	for _, want := range []string{"Batch 2/4", "50%", "Requests: 20", "OK: 18", "Failed: 2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestProgressReporterRendersSnapshots(t *testing.T) {
	events := make(chan metrics.RunState, 4)
	var buf bytes.Buffer

	reporter := NewProgressReporter(events, &buf)
	reporter.Start()

	events <- metrics.RunState{CompletedBatches: 1, TotalBatches: 2, Progress: 50, Successes: 5}
	events <- metrics.RunState{CompletedBatches: 2, TotalBatches: 2, Progress: 100, Successes: 10}
	time.Sleep(20 * time.Millisecond)
	reporter.Stop()

	output := buf.String()
	if !strings.Contains(output, "Batch 2/2") {
		t.Fatalf("output %q missing final batch line", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Fatal("reporter should terminate the line on stop")
	}
}

func TestProgressReporterDrainsQueuedOnStop(t *testing.T) {
	events := make(chan metrics.RunState, 4)
	var buf bytes.Buffer

	reporter := NewProgressReporter(events, &buf)
	events <- metrics.RunState{CompletedBatches: 3, TotalBatches: 3, Progress: 100, Successes: 9}

	reporter.Start()
	reporter.Stop()

	if !strings.Contains(buf.String(), "100%") {
		t.Fatalf("queued snapshot was not flushed: %q", buf.String())
	}
}

func TestProgressReporterStopWithoutStart(t *testing.T) {
	reporter := NewProgressReporter(make(chan metrics.RunState), nil)
	reporter.Stop()
	reporter.Stop()
}
