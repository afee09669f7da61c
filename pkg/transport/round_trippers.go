package transport

import (
	"net/http"

	"golang.org/x/time/rate"
)

// ModifyHeadersOption is a function type used to modify HTTP headers in a request.
// It takes a function that sets a header key and value, allowing for flexible header modification.
type ModifyHeadersOption func(func(key string, value string))

type modifyHeadersRoundTripper struct {
	roundTripper http.RoundTripper
	options      []ModifyHeadersOption
}

// NewModifyHeadersRoundTripper will add headers to a request.
func NewModifyHeadersRoundTripper(rt http.RoundTripper, opts ...ModifyHeadersOption) http.RoundTripper {
	return &modifyHeadersRoundTripper{roundTripper: rt, options: opts}
}

func (rt *modifyHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for _, opt := range rt.options {
		opt(req.Header.Set)
	}
	return rt.roundTripper.RoundTrip(req)
}

// WithUserAgent is a functional option to set the HTTP client user agent.
func WithUserAgent(userAgent string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("User-Agent", userAgent)
	}
}

// WithAccept is a functional option to set the accepted response media types.
func WithAccept(accept string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("Accept", accept)
	}
}

type rateLimitRoundTripper struct {
	roundTripper http.RoundTripper
	limiter      *rate.Limiter
}

// NewRateLimitRoundTripper delays requests so that no more than the limiter allows are sent.
// Waiting honours the request context.
func NewRateLimitRoundTripper(rt http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	return &rateLimitRoundTripper{roundTripper: rt, limiter: limiter}
}

func (rt *rateLimitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return rt.roundTripper.RoundTrip(req)
}
