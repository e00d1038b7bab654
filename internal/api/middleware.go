// ABOUTME: Request-scoped middleware shared by every route
// ABOUTME: Assigns request ids and logs completions with status and duration

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NiLuJe/kosync/internal/field"
)

// requestIDContextKey is the key type for storing the request id in
// context.Context.
type requestIDContextKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the id assigned to this request, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLogging assigns each request a uuid and logs its completion.
// The per-request audit lines live in the gate and the handlers; this one
// is debug-level plumbing for correlating them.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(withRequestID(r.Context(), id)))

		s.logger.Debug("request complete",
			"request_id", id,
			"addr", field.RemoteAddr(r),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
