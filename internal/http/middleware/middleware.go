// Package middleware holds the http.Handler wrappers applied to every
// request before it reaches the records router.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader is read from incoming requests and always set on
// responses.
const RequestIDHeader = "X-Request-ID"

type contextKey struct{}

type requestScope struct {
	id  string
	log *slog.Logger
}

// RequestID tags each request with an id (the caller's X-Request-ID, or a
// new UUID) and stores a logger carrying that id in the request context.
func RequestID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			scope := requestScope{
				id:  reqID,
				log: base.With(slog.String("request_id", reqID)),
			}
			w.Header().Set(RequestIDHeader, reqID)

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, scope)))
		})
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	scope, _ := ctx.Value(contextKey{}).(requestScope)
	return scope.id
}

// Logger returns the request-scoped logger, falling back to slog.Default()
// outside a RequestID chain (tests, background work).
func Logger(ctx context.Context) *slog.Logger {
	if scope, ok := ctx.Value(contextKey{}).(requestScope); ok && scope.log != nil {
		return scope.log
	}
	return slog.Default()
}

// Logging writes one access log line per request after it completes.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		Logger(r.Context()).Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
