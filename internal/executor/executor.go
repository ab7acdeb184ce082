// Package executor issues single outbound requests and measures their
// outcome. It is the engine's only I/O boundary: transport failures are
// captured into the returned Outcome and never propagate to callers.
package executor

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/volleyfire/volleyfire/internal/tracing"
)

const defaultContentType = "application/json"

// Executor abstracts executing one request and classifying its result.
type Executor interface {
	Execute(ctx context.Context) Outcome
}

// Options configure an HTTPExecutor.
type Options struct {
	Method    string
	Target    string
	Headers   map[string]string
	Body      string
	Timeout   time.Duration // 0 means no per-request timeout
	Tracer    trace.Tracer  // nil disables span recording
	Propagate bool          // inject W3C trace headers into requests
}

// HTTPExecutor performs one HTTP request per Execute call against a fixed
// method, target and header set.
type HTTPExecutor struct {
	client    *http.Client
	method    string
	target    string
	headers   map[string]string
	body      string
	tracer    trace.Tracer
	propagate bool
}

// NewHTTPExecutor creates an executor with a tuned transport.
func NewHTTPExecutor(opts Options) *HTTPExecutor {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}
	return &HTTPExecutor{
		client:    NewClient(opts.Timeout),
		method:    method,
		target:    strings.TrimSpace(opts.Target),
		headers:   opts.Headers,
		body:      opts.Body,
		tracer:    opts.Tracer,
		propagate: opts.Propagate,
	}
}

// Execute issues one request and measures wall-clock time from call start
// to settlement. It never returns an error: transport failures (DNS,
// connection refused, timeout, malformed URL) become failed Outcomes and
// any completed response, including 4xx/5xx, is a successful one.
func (e *HTTPExecutor) Execute(ctx context.Context) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, e.tracer, e.method, e.target)
	}

	req, err := e.buildRequest(ctx)
	if err != nil {
		outcome := Outcome{Success: false, Err: err.Error(), Elapsed: time.Since(start)}
		if span != nil {
			tracing.EndSpan(span, err)
		}
		return outcome
	}

	resp, err := e.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		outcome := Outcome{Success: false, Err: err.Error(), Elapsed: elapsed}
		if span != nil {
			tracing.EndSpan(span, err)
		}
		return outcome
	}

	// The engine never inspects response bodies; drain to allow
	// connection reuse.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if span != nil {
		tracing.EndSpan(span, nil, attribute.Int("http.response.status_code", resp.StatusCode))
	}

	return Outcome{Success: true, StatusCode: resp.StatusCode, Elapsed: elapsed}
}

func (e *HTTPExecutor) buildRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	attachBody := e.method != http.MethodGet && e.body != ""
	if attachBody {
		body = strings.NewReader(e.body)
	}

	req, err := http.NewRequestWithContext(ctx, e.method, e.target, body)
	if err != nil {
		return nil, err
	}

	for key, value := range e.headers {
		req.Header.Set(key, value)
	}
	if attachBody {
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", defaultContentType)
		}
		req.ContentLength = int64(len(e.body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(e.body)), nil
		}
	}

	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	return req, nil
}

// NewClient builds an HTTP client with connection pooling suited to
// concurrent batches. A zero timeout leaves settlement bounded only by
// the underlying transport.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
