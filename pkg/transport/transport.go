package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a whole catalog request, body included.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxBodyBytes bounds how much of a response body is read.
	DefaultMaxBodyBytes = 8 * 1024 * 1024

	userAgent = "MovieBrowser/1.0 (+https://github.com/ogero/moviebrowser)"
)

// Transport performs single HTTP GETs.
// Any response that was received is returned with its status code, whatever the code is.
// Only failures to obtain a response at all are returned as errors.
type Transport interface {
	// Get fetches rawURL and returns the response body and status code.
	Get(ctx context.Context, rawURL string) ([]byte, int, error)
}

// Option customizes the transport built by NewHTTPTransport.
type Option func(*options)

type options struct {
	timeout      time.Duration
	maxBodyBytes int64
	limiter      *rate.Limiter
	accept       string
	roundTripper http.RoundTripper
}

// WithTimeout sets the per request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithMaxBodyBytes sets the largest body accepted. Zero or less disables the check.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithRateLimit caps outgoing requests per second. Zero or less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithAcceptHeader sets the Accept header sent with every request.
func WithAcceptHeader(accept string) Option {
	return func(o *options) { o.accept = accept }
}

// WithRoundTripper replaces the base round tripper.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) { o.roundTripper = rt }
}

// NewHTTPTransport creates a Transport backed by net/http.
func NewHTTPTransport(opts ...Option) Transport {
	o := &options{
		timeout:      DefaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		accept:       "application/json",
	}
	for _, opt := range opts {
		opt(o)
	}

	var rt http.RoundTripper
	if o.roundTripper != nil {
		rt = o.roundTripper
	} else {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConns = 100
		t.MaxConnsPerHost = 100
		t.MaxIdleConnsPerHost = 100
		rt = t
	}

	rt = NewModifyHeadersRoundTripper(rt,
		WithAccept(o.accept),
		WithUserAgent(userAgent),
	)
	if o.limiter != nil {
		rt = NewRateLimitRoundTripper(rt, o.limiter)
	}

	return &httpTransport{
		httpClient: &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(rt),
		},
		maxBodyBytes: o.maxBodyBytes,
	}
}

type httpTransport struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

// Get fetches rawURL and returns the response body and status code.
func (t *httpTransport) Get(ctx context.Context, rawURL string) ([]byte, int, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "transport.Transport.Get")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	res, err := t.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status", res.StatusCode))

	body, err := readBody(res.Body, t.maxBodyBytes)
	if err != nil {
		span.RecordError(err)
		return nil, res.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, res.StatusCode, nil
}
