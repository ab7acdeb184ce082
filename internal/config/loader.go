package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Method:     "GET",
		Headers:    map[string]string{},
		ConfigFile: configPath,
		Tracing:    TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
// Numeric parsing failure is not fatal: unusable values are left at zero for
// Normalize to repair with defaults.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = val
		}
	}

	if raw, ok := lookupSetting(settings, "total"); ok {
		if val, err := asInt(raw); err == nil {
			cfg.Total = val
		}
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		if val, err := asInt(raw); err == nil {
			cfg.Concurrency = val
		}
	}

	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		cfg.Body = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[k] = v
		}
	}

	if raw, ok := lookupSetting(settings, "headerlines", "header_lines", "header-lines"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("headerLines: %w", err)
		}
		cfg.HeaderLines = val
	}

	if raw, ok := lookupSetting(settings, "bearertoken", "bearer_token", "bearer-token", "token"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("bearerToken: %w", err)
		}
		cfg.BearerToken = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "loglines", "log_lines", "log-lines"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logLines: %w", err)
		}
		cfg.LogLines = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(tc *TracingConfig, raw interface{}) error {
	settings, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}

	if val, ok := lookupSetting(settings, "endpoint"); ok {
		s, err := asString(val)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(s)
	}
	if val, ok := lookupSetting(settings, "protocol"); ok {
		s, err := asString(val)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(s))
	}
	if val, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		s, err := asString(val)
		if err != nil {
			return fmt.Errorf("serviceName: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(s)
	}
	if val, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		f, err := asFloat64(val)
		if err != nil {
			return fmt.Errorf("sampleRate: %w", err)
		}
		tc.SampleRate = f
	}
	if val, ok := lookupSetting(settings, "insecure"); ok {
		b, err := asBool(val)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = b
	}
	if val, ok := lookupSetting(settings, "propagate"); ok {
		b, err := asBool(val)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = b
	}
	return nil
}
