// ABOUTME: Wire error taxonomy shared by the handlers and the auth gate
// ABOUTME: Maps every failure to the fixed status/code/message table clients expect

package api

import (
	"encoding/json"
	"net/http"
)

// Error is one member of the fixed failure taxonomy. Status, code, and
// message are wire constants: deployed clients key on them, so they never
// change. Internal causes are logged server-side and never leak into the
// body.
type Error struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// The complete taxonomy. Every failure path in the server terminates in
// exactly one of these; there is no sixth outcome. The 402 for an existing
// username is historical but load-bearing.
var (
	ErrInternal             = &Error{Status: http.StatusInternalServerError, Code: 2000, Message: "Unknown server error."}
	ErrUnauthorized         = &Error{Status: http.StatusUnauthorized, Code: 2001, Message: "Unauthorized"}
	ErrUserExists           = &Error{Status: http.StatusPaymentRequired, Code: 2002, Message: "Username is already registered."}
	ErrInvalidRequest       = &Error{Status: http.StatusForbidden, Code: 2003, Message: "Invalid request"}
	ErrDocumentFieldMissing = &Error{Status: http.StatusForbidden, Code: 2004, Message: "Field 'document' not provided."}
)

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// writeError sends a taxonomy member as the response body.
func writeError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// writeJSON sends a success payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
