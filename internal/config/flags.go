package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volleyfire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core request flags
	flags.String("target", "", "Target URL to load test")
	flags.String("method", "GET", "HTTP method (GET, POST, PUT, DELETE, PATCH)")
	flags.StringSlice("header", nil, "Custom request header as 'Key: Value' (repeatable)")
	flags.String("body", "", "Inline request body payload (ignored for GET)")
	flags.String("token", "", "Bearer token for the Authorization header")

	// Volume flags
	flags.IntP("total", "t", DefaultTotal, "Total number of requests to send")
	flags.IntP("concurrency", "c", DefaultWorkers, "Requests fired concurrently per batch")
	flags.Duration("timeout", 0, "Per-request timeout (0 means none)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-lines", false, "Print engine log lines as the run progresses")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'latency:p99 < 500')")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("trace-service", "", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Span sampling rate between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("trace-propagate", false, "Inject W3C trace headers into outbound requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
	}
	if fs.Changed("token") {
		val, err := fs.GetString("token")
		if err != nil {
			return err
		}
		cfg.BearerToken = strings.TrimSpace(val)
	}
	if fs.Changed("total") {
		val, err := fs.GetInt("total")
		if err != nil {
			return err
		}
		cfg.Total = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-lines") {
		val, err := fs.GetBool("log-lines")
		if err != nil {
			return err
		}
		cfg.LogLines = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	// Repeated --header flags are joined into the same newline-separated
	// form the header parser accepts from config files and callers.
	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		lines := strings.Join(vals, "\n")
		if cfg.HeaderLines == "" {
			cfg.HeaderLines = lines
		} else {
			cfg.HeaderLines += "\n" + lines
		}
	}

	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-service") {
		val, err := fs.GetString("trace-service")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-propagate") {
		val, err := fs.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}

	return nil
}
