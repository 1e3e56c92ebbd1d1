package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nourish/session"
)

// Transport wraps an outgoing round tripper.
type Transport func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain applies mws so that the first one sees the request first.
func Chain(base http.RoundTripper, mws ...Transport) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// Bearer attaches "Authorization: Bearer <token>" when the store holds a
// credential. Requests that already carry an Authorization header are left
// alone.
func Bearer(store session.Store) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Authorization") != "" {
				return next.RoundTrip(r)
			}
			cred, err := store.Get()
			if err != nil {
				if r.Body != nil {
					r.Body.Close()
				}
				return nil, fmt.Errorf("read session: %w", err)
			}
			if cred == nil || cred.AccessToken == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+cred.AccessToken)
			return next.RoundTrip(r)
		})
	}
}

// RequestIDHeader carries a per-request id for correlating logs.
const RequestIDHeader = "X-Request-ID"

// RequestID stamps each request with a fresh uuid.
func RequestID() Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(r)
		})
	}
}

// Logging logs every round trip at debug level.
func Logging(log *zap.Logger) Transport {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
				zap.Duration("latency", time.Since(start)),
			}
			if err != nil {
				log.Debug("request failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			log.Debug("request", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
