package config

import "strings"

const bearerPrefix = "Bearer "

// ParseHeaderLines parses newline-separated "Key: Value" lines into a
// header map. Each line is split on the first colon and both sides are
// trimmed; lines that do not yield a non-empty key and value are dropped
// without being reported.
func ParseHeaderLines(text string) map[string]string {
	headers := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

// EffectiveHeaders builds the final header set for a run: headers from
// the config file, overlaid by parsed custom header lines, with a derived
// Authorization entry appended last when a bearer token is configured.
// The derived entry wins over a same-named custom header.
func EffectiveHeaders(cfg *Config) map[string]string {
	headers := make(map[string]string, len(cfg.Headers)+4)
	for key, value := range cfg.Headers {
		headers[key] = value
	}
	for key, value := range ParseHeaderLines(cfg.HeaderLines) {
		headers[key] = value
	}

	token := strings.TrimSpace(cfg.BearerToken)
	if token != "" {
		if !strings.HasPrefix(token, bearerPrefix) {
			token = bearerPrefix + token
		}
		headers["Authorization"] = token
	}
	return headers
}
