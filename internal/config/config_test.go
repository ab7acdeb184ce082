package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateRequiresTarget(t *testing.T) {
	cfg := Config{Method: "GET"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for empty target")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Issues()) != 1 || !strings.Contains(verr.Issues()[0], "target is required") {
		t.Fatalf("unexpected issues: %v", verr.Issues())
	}
}

func TestValidateMethodSet(t *testing.T) {
	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "get", " patch "} {
		cfg := Config{TargetURL: "http://example.com", Method: method}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("method %q should be accepted: %v", method, err)
		}
	}

	cfg := Config{TargetURL: "http://example.com", Method: "HEAD"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported method")
	}
}

func TestValidateRejectsConflictingOutputs(t *testing.T) {
	cfg := Config{TargetURL: "http://example.com", Dashboard: true, JSONOutput: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for dashboard + json-output")
	}
}

func TestNormalizeDefaultsAndClamps(t *testing.T) {
	cases := []struct {
		name            string
		total           int
		concurrency     int
		wantTotal       int
		wantConcurrency int
	}{
		{"zero values default", 0, 0, DefaultTotal, DefaultWorkers},
		{"negative values default", -5, -1, DefaultTotal, DefaultWorkers},
		{"in range untouched", 250, 25, 250, 25},
		{"clamped to maxima", 50000, 500, MaxTotal, MaxWorkers},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{TargetURL: "http://example.com", Total: tc.total, Concurrency: tc.concurrency}
			cfg.Normalize()
			if cfg.Total != tc.wantTotal {
				t.Fatalf("total = %d, want %d", cfg.Total, tc.wantTotal)
			}
			if cfg.Concurrency != tc.wantConcurrency {
				t.Fatalf("concurrency = %d, want %d", cfg.Concurrency, tc.wantConcurrency)
			}
		})
	}
}

func TestNormalizeMethodAndTimeout(t *testing.T) {
	cfg := Config{TargetURL: "  http://example.com  ", Method: "", Timeout: -time.Second}
	cfg.Normalize()
	if cfg.Method != "GET" {
		t.Fatalf("method = %q, want GET", cfg.Method)
	}
	if cfg.TargetURL != "http://example.com" {
		t.Fatalf("target not trimmed: %q", cfg.TargetURL)
	}
	if cfg.Timeout != 0 {
		t.Fatalf("timeout = %s, want 0", cfg.Timeout)
	}
}

// Normalizing the same raw config twice must yield the same run plan.
func TestNormalizeIdempotent(t *testing.T) {
	first := Config{TargetURL: "http://example.com", Total: 99999, Concurrency: 3}
	second := first
	first.Normalize()
	second.Normalize()
	second.Normalize()
	if first.Total != second.Total || first.Concurrency != second.Concurrency || first.Method != second.Method {
		t.Fatalf("normalize not idempotent: %+v vs %+v", first, second)
	}
}
