// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithUser/FromContext for propagating the account via context

package auth

import (
	"context"
)

// userContextKey is the key type for storing the authenticated username in
// context.Context.
type userContextKey struct{}

// WithUser returns a new context with the authenticated username attached.
// The auth gate calls this after the presented key matched the stored one.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userContextKey{}, username)
}

// FromContext retrieves the authenticated username from the context,
// returning false if the request never passed the gate.
func FromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(userContextKey{}).(string)
	return username, ok
}

// MustFromContext retrieves the authenticated username from the context,
// panicking if not present. Only call this from handlers registered behind
// the gate.
func MustFromContext(ctx context.Context) string {
	username, ok := FromContext(ctx)
	if !ok {
		panic("auth: username not found in context")
	}
	return username
}
