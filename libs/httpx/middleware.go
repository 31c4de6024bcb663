package httpx

import (
	"net/http"
	"time"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, m ...Middleware) http.Handler {
	// Apply in reverse so Chain(h, a, b) becomes a(b(h)).
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func WithBodyLimit(limitBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func WithTimeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// Transport is the client-side counterpart of Middleware.
type Transport func(http.RoundTripper) http.RoundTripper

type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// ChainTransport wraps base so that ChainTransport(base, a, b) sends requests
// through a, then b, then base.
func ChainTransport(base http.RoundTripper, t ...Transport) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(t) - 1; i >= 0; i-- {
		if t[i] == nil {
			continue
		}
		base = t[i](base)
	}
	return base
}

// WithBearer sets Authorization from token on every request. An empty token
// means the header is removed, so a signed-out client never leaks a stale one.
func WithBearer(token func() string) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			if tok := token(); tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			} else {
				r.Header.Del("Authorization")
			}
			return next.RoundTrip(r)
		})
	}
}
