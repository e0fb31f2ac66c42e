package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries the per-call correlation id
const HeaderRequestID = "X-Request-ID"

// Doer sends a request and returns its response. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to a Doer
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware decorates a Doer with a request and/or response transform.
type Middleware func(next Doer) Doer

// Chain wraps base with the middleware so that mw[0] sees the request first
// and the response last.
func Chain(base Doer, mw ...Middleware) Doer {
	chained := base
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// RequestID stamps every outgoing request with an X-Request-ID unless the
// caller already set one.
func RequestID() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) != "" {
				return next.Do(req)
			}
			stamped := req.Clone(req.Context())
			stamped.Header.Set(HeaderRequestID, uuid.New().String())
			return next.Do(stamped)
		})
	}
}

// Logging records each call with its final status and duration
func Logging(logger zerolog.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			event := logger.Debug()
			if err != nil {
				event = logger.Warn().Err(err)
			}
			event = event.
				Str("method", req.Method).
				Str("url", req.URL.Redacted()).
				Str("request_id", req.Header.Get(HeaderRequestID)).
				Dur("elapsed", time.Since(start))
			if resp != nil {
				event = event.Int("status", resp.StatusCode)
			}
			event.Msg("gateway call")
			return resp, err
		})
	}
}
