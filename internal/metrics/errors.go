package metrics

import "strings"

// Failure cause buckets reported in the final summary. Transport error
// strings vary by platform, so classification is substring based and
// falls back to a generic bucket.
const (
	causeTimeout    = "Timeout"
	causeRefused    = "Connection refused"
	causeReset      = "Connection reset"
	causeDNS        = "DNS resolution failure"
	causeTLS        = "TLS handshake failure"
	causeBadURL     = "Request URL error"
	causeCancelled  = "Request cancelled"
	causeTransport  = "Transport error"
	causeUnreported = "Unreported failure"
)

// ClassifyFailure maps a transport error message to a friendly cause
// bucket for the failure breakdown.
func ClassifyFailure(message string) string {
	cleaned := strings.ToLower(strings.TrimSpace(message))
	if cleaned == "" {
		return causeUnreported
	}

	switch {
	case strings.Contains(cleaned, "context deadline exceeded"),
		strings.Contains(cleaned, "client.timeout"),
		strings.Contains(cleaned, "timeout"):
		return causeTimeout
	case strings.Contains(cleaned, "context canceled"):
		return causeCancelled
	case strings.Contains(cleaned, "connection refused"):
		return causeRefused
	case strings.Contains(cleaned, "connection reset"),
		strings.Contains(cleaned, "broken pipe"):
		return causeReset
	case strings.Contains(cleaned, "no such host"),
		strings.Contains(cleaned, "server misbehaving"):
		return causeDNS
	case strings.Contains(cleaned, "tls"),
		strings.Contains(cleaned, "certificate"):
		return causeTLS
	case strings.Contains(cleaned, "protocol scheme"),
		strings.Contains(cleaned, "invalid url"),
		strings.Contains(cleaned, "missing url"):
		return causeBadURL
	default:
		return causeTransport
	}
}
