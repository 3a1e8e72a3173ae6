// healthbot/middlewares/transport.go
package middlewares

import (
	"net/http"
	"time"

	"healthbot/healthbot/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// Middleware wraps an outgoing transport.
type Middleware func(http.RoundTripper) http.RoundTripper

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain applies mws so the first one sees the request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// RequestID stamps every request with a fresh id unless one is set.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) == "" {
				r = r.Clone(r.Context())
				r.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return next.RoundTrip(r)
		})
	}
}

// AccessLog writes one request.log entry per round trip. Headers are never
// logged since they carry the bearer token.
func AccessLog() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				logging.RequestLogger.Warn("request failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			logging.RequestLogger.Info("request", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
