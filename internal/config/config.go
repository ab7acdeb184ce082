package config

import (
	"fmt"
	"strings"
	"time"
)

// Limits applied when normalizing numeric fields. Values outside these
// ranges are clamped rather than rejected.
const (
	DefaultTotal   = 100
	DefaultWorkers = 10
	MaxTotal       = 10000
	MaxWorkers     = 100
)

// allowedMethods is the fixed set of HTTP methods the engine supports.
var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

type Config struct {
	TargetURL   string            `mapstructure:"target"`
	Method      string            `mapstructure:"method"`
	Total       int               `mapstructure:"total"`
	Concurrency int               `mapstructure:"concurrency"`
	Body        string            `mapstructure:"body"`
	HeaderLines string            `mapstructure:"header_lines"`
	Headers     map[string]string `mapstructure:"headers"`
	BearerToken string            `mapstructure:"bearer_token"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	JSONOutput  bool              `mapstructure:"json_output"`
	Dashboard   bool              `mapstructure:"dashboard"`
	LogLines    bool              `mapstructure:"log_lines"`
	Thresholds  []string          `mapstructure:"thresholds"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	ConfigFile  string            `mapstructure:"-"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether span export is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers should be injected
// into outbound requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the fields that cannot be repaired by Normalize.
// An empty target is the only fatal condition besides an unknown method;
// malformed numeric fields are clamped, not rejected.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}

	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method != "" && !allowedMethods[method] {
		issues = append(issues, fmt.Sprintf("method %q is not supported (use GET, POST, PUT, DELETE or PATCH)", c.Method))
	}

	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return &ValidationError{issues: issues}
	}
	return nil
}

// Normalize repairs the fields that Validate deliberately tolerates.
// Absent or nonsensical volumes fall back to defaults and out-of-range
// values are clamped, so a run plan can always be derived from a config
// with a non-empty target.
func (c *Config) Normalize() {
	c.TargetURL = strings.TrimSpace(c.TargetURL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = "GET"
	}

	if c.Total <= 0 {
		c.Total = DefaultTotal
	} else if c.Total > MaxTotal {
		c.Total = MaxTotal
	}

	if c.Concurrency <= 0 {
		c.Concurrency = DefaultWorkers
	} else if c.Concurrency > MaxWorkers {
		c.Concurrency = MaxWorkers
	}

	if c.Timeout < 0 {
		c.Timeout = 0
	}
}
