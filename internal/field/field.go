// ABOUTME: Validation helpers for client-supplied field values
// ABOUTME: Enforces length and character rules before values reach the store

package field

import (
	"net/http"
	"net/netip"
	"unicode"
	"unicode/utf8"
)

// Limit is the maximum accepted length, in bytes, for any client-supplied
// field: usernames, keys, document ids, and auth header values.
const Limit = 255

// Valid reports whether s is acceptable as a general field value: non-empty,
// at most Limit bytes, valid UTF-8, and free of control characters. Keys and
// passwords sent by clients are checked with this before any store lookup.
func Valid(s string) bool {
	if s == "" || len(s) > Limit {
		return false
	}
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ValidKey reports whether s is acceptable as a storage key (usernames and
// document ids): non-empty, at most Limit bytes, and built only from ASCII
// letters, digits, '-', '_', and '.'. The stricter alphabet keeps keys free
// of path separators, whitespace, and the ':' delimiter of the Redis layout.
func ValidKey(s string) bool {
	if s == "" || len(s) > Limit {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}

// RemoteAddr returns the client address used in log lines. It prefers the
// X-Real-IP header when it carries a parseable IP (set by a reverse proxy in
// front of the server), falling back to the connection's peer address. The
// value is informational only and never part of an authorization decision.
func RemoteAddr(r *http.Request) string {
	if v := r.Header.Get("X-Real-IP"); v != "" {
		if addr, err := netip.ParseAddr(v); err == nil {
			return addr.String()
		}
	}
	return r.RemoteAddr
}
