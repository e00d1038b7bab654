// ABOUTME: Authentication gate middleware for the sync endpoints
// ABOUTME: Validates the x-auth header pair against the store on every request

package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/NiLuJe/kosync/internal/auth"
	"github.com/NiLuJe/kosync/internal/field"
	"github.com/NiLuJe/kosync/internal/store"
)

// Header names are fixed by the sync protocol.
const (
	headerAuthUser = "x-auth-user"
	headerAuthKey  = "x-auth-key"
)

// requireAuth wraps a handler with the credential check. Every request is
// authenticated independently against the user store; there are no sessions
// and nothing is cached between requests.
//
// Order matters: header syntax first (no store I/O for garbage), then the
// lookup, then a constant-time comparison of the presented key against the
// stored one. A store fault is reported as Internal, never Unauthorized:
// the caller's credentials might be fine. The key value itself never
// reaches a log line or response body.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := field.RemoteAddr(r)
		s.logger.Info("request", "addr", addr, "method", r.Method, "path", r.URL.Path)

		username := r.Header.Get(headerAuthUser)
		key := r.Header.Get(headerAuthKey)
		if !field.Valid(username) || !field.Valid(key) {
			s.logger.Warn("auth rejected", "addr", addr, "reason", "unusable auth headers")
			writeError(w, ErrUnauthorized)
			return
		}

		stored, err := s.store.GetUser(r.Context(), username)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("auth rejected", "addr", addr, "user", username, "reason", "unknown user")
			writeError(w, ErrUnauthorized)
			return
		}
		if err != nil {
			s.logger.Error("auth lookup failed", "addr", addr, "user", username, "error", err)
			writeError(w, ErrInternal)
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(stored)) != 1 {
			s.logger.Warn("auth rejected", "addr", addr, "user", username, "reason", "key mismatch")
			writeError(w, ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), username)))
	})
}
