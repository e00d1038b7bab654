// ABOUTME: HTTP handlers for the sync protocol endpoints
// ABOUTME: Registration, auth check, progress push/pull, healthcheck, robots

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/NiLuJe/kosync/internal/auth"
	"github.com/NiLuJe/kosync/internal/field"
	"github.com/NiLuJe/kosync/internal/store"
)

// robotsBody is served verbatim; reading positions are not for indexing.
const robotsBody = "User-agent: *\nDisallow: /\n"

// Server holds the handlers for the sync API. The store is injected at
// construction; there is no other state.
type Server struct {
	store  store.Store
	logger *slog.Logger

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// New creates an API server around the given store.
func New(st store.Store, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		logger: logger.With("component", "api"),
		now:    time.Now,
	}
}

// Routes builds the endpoint table. The gate wraps every route except
// registration and robots.txt; the composition is spelled out here rather
// than hidden inside handler bodies, so the table reads like the protocol.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users/create", s.handleCreateUser)
	mux.Handle("GET /users/auth", s.requireAuth(http.HandlerFunc(s.handleAuthCheck)))
	mux.Handle("GET /syncs/progress/{document}", s.requireAuth(http.HandlerFunc(s.handleGetProgress)))
	mux.Handle("PUT /syncs/progress", s.requireAuth(http.HandlerFunc(s.handleUpdateProgress)))
	mux.Handle("GET /healthcheck", s.requireAuth(http.HandlerFunc(s.handleHealthcheck)))
	mux.HandleFunc("GET /robots.txt", s.handleRobots)

	return s.withRequestLogging(mux)
}

// createUserRequest is the registration payload. The password arrives
// already hashed by the client and is stored untouched.
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createUserResponse struct {
	Username string `json:"username"`
}

type authCheckResponse struct {
	Authorized string `json:"authorized"`
}

type healthcheckResponse struct {
	State string `json:"state"`
}

// documentEcho is the pull response when no record exists yet.
type documentEcho struct {
	Document string `json:"document"`
}

// updateProgressRequest mirrors the record fields with pointers so a
// missing field is distinguishable from a zero value. A client-sent
// timestamp is accepted and discarded; the server's clock is the only one
// that counts.
type updateProgressRequest struct {
	Document   *string  `json:"document"`
	Percentage *float64 `json:"percentage"`
	Progress   *string  `json:"progress"`
	Device     *string  `json:"device"`
	DeviceID   *string  `json:"device_id"`
	Timestamp  *int64   `json:"timestamp"`
}

func (r *updateProgressRequest) complete() bool {
	return r.Document != nil && r.Percentage != nil && r.Progress != nil &&
		r.Device != nil && r.DeviceID != nil
}

type updateProgressResponse struct {
	Document  string `json:"document"`
	Timestamp int64  `json:"timestamp"`
}

// handleCreateUser registers a new account. This is the only
// unauthenticated mutating endpoint, so validation is strict: the username
// must be usable as a storage key, the password printable. Validation runs
// before any store I/O.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	addr := field.RemoteAddr(r)

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("registration rejected", "addr", addr, "reason", "undecodable body")
		writeError(w, ErrInvalidRequest)
		return
	}

	if !field.ValidKey(req.Username) || !field.Valid(req.Password) {
		s.logger.Warn("registration rejected", "addr", addr, "reason", "invalid fields")
		writeError(w, ErrInvalidRequest)
		return
	}

	_, err := s.store.GetUser(r.Context(), req.Username)
	if err == nil {
		s.logger.Warn("registration rejected", "addr", addr, "user", req.Username, "reason", "already registered")
		writeError(w, ErrUserExists)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("registration lookup failed", "addr", addr, "error", err)
		writeError(w, ErrInternal)
		return
	}

	if err := s.store.PutUser(r.Context(), req.Username, req.Password); err != nil {
		s.logger.Error("registration store failed", "addr", addr, "user", req.Username, "error", err)
		writeError(w, ErrInternal)
		return
	}

	s.logger.Info("registered user", "addr", addr, "user", req.Username)
	writeJSON(w, http.StatusCreated, createUserResponse{Username: req.Username})
}

// handleAuthCheck confirms the gate accepted the credentials. All the work
// already happened in the middleware.
func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("login", "user", auth.MustFromContext(r.Context()))
	writeJSON(w, http.StatusOK, authCheckResponse{Authorized: "OK"})
}

// handleGetProgress returns the last pushed position for a document. A
// document never synced from any device is not an error: the response
// echoes the document id back and the client starts fresh.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	username := auth.MustFromContext(r.Context())

	document := r.PathValue("document")
	if !field.ValidKey(document) {
		s.logger.Warn("pull rejected", "user", username, "reason", "invalid document field")
		writeError(w, ErrDocumentFieldMissing)
		return
	}

	p, err := s.store.GetProgress(r.Context(), username, document)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Info("pull", "user", username, "document", document, "result", "no record")
		writeJSON(w, http.StatusOK, documentEcho{Document: document})
		return
	}
	if err != nil {
		s.logger.Error("pull failed", "user", username, "document", document, "error", err)
		writeError(w, ErrInternal)
		return
	}

	s.logger.Info("pull", "user", username, "document", document, "percentage", p.Percentage, "device", p.Device)
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateProgress stores a pushed position. Beyond field presence
// nothing is validated: the push path is deliberately more permissive
// than the pull path, and the cursor is opaque. Last write wins; the
// assigned timestamp goes back to the client.
func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	username := auth.MustFromContext(r.Context())

	var req updateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.complete() {
		s.logger.Warn("push rejected", "user", username, "reason", "malformed body")
		writeError(w, ErrInvalidRequest)
		return
	}

	p := &store.Progress{
		Document:   *req.Document,
		Percentage: *req.Percentage,
		Progress:   *req.Progress,
		Device:     *req.Device,
		DeviceID:   *req.DeviceID,
		Timestamp:  s.now().Unix(),
	}

	if err := s.store.PutProgress(r.Context(), username, p); err != nil {
		s.logger.Error("push failed", "user", username, "document", p.Document, "error", err)
		writeError(w, ErrInternal)
		return
	}

	s.logger.Info("push", "user", username, "document", p.Document, "percentage", p.Percentage, "device", p.Device)
	writeJSON(w, http.StatusOK, updateProgressResponse{Document: p.Document, Timestamp: p.Timestamp})
}

// handleHealthcheck reports liveness. It sits behind the gate on purpose:
// clients use it to verify that stored credentials still work.
func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("healthcheck", "user", auth.MustFromContext(r.Context()))
	writeJSON(w, http.StatusOK, healthcheckResponse{State: "OK"})
}

// handleRobots turns crawlers away. Unauthenticated, like registration.
func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("robots.txt", "addr", field.RemoteAddr(r))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(robotsBody))
}
