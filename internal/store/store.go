// ABOUTME: Storage interfaces and domain types for the sync service
// ABOUTME: Defines the user and progress contracts implemented by each backend

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested user or progress record does not exist
var ErrNotFound = errors.New("not found")

// Progress is a reading position for one document on one account. The struct
// doubles as the wire shape: JSON field names are fixed by the sync protocol
// and shared with every KOReader client in the field.
//
// Progress (the cursor) is an opaque client-defined position string (an
// xpointer for EPUBs, a page number for PDFs); the server never parses it.
// Timestamp is Unix seconds, assigned by the server at push time; the zero
// value is omitted so a bare "document" echo stays minimal.
type Progress struct {
	Document   string  `json:"document"`
	Percentage float64 `json:"percentage"`
	Progress   string  `json:"progress"`
	Device     string  `json:"device"`
	DeviceID   string  `json:"device_id"`
	Timestamp  int64   `json:"timestamp,omitempty"`
}

// UserStore persists account credentials. The key is stored exactly as the
// client registered it (clients send an MD5 digest of the password);
// comparison happens in the auth layer, never here.
type UserStore interface {
	// GetUser returns the stored key for username, or ErrNotFound.
	GetUser(ctx context.Context, username string) (string, error)

	// PutUser stores the key for a new username.
	PutUser(ctx context.Context, username, key string) error
}

// ProgressStore persists reading positions keyed by (username, document).
// A put replaces the whole record: last write wins.
type ProgressStore interface {
	// GetProgress returns the last pushed position, or ErrNotFound.
	GetProgress(ctx context.Context, username, document string) (*Progress, error)

	// PutProgress inserts or replaces the position for (username, p.Document).
	PutProgress(ctx context.Context, username string, p *Progress) error
}

// Store is the full storage contract the server is wired against. Backends
// are safe for concurrent use; the sqlite backend is the default, with
// postgres, redis, and memory selectable via configuration.
type Store interface {
	UserStore
	ProgressStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
