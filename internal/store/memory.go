// ABOUTME: In-memory implementation of the Store interface
// ABOUTME: Backs unit tests and throwaway deployments; nothing survives a restart

package store

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded map implementation of the Store interface.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]string
	progress map[string]map[string]Progress // username -> document -> record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]string),
		progress: make(map[string]map[string]Progress),
	}
}

// GetUser returns the stored key for username.
func (m *MemoryStore) GetUser(ctx context.Context, username string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.users[username]
	if !ok {
		return "", ErrNotFound
	}
	return key, nil
}

// PutUser stores the key for a new username.
func (m *MemoryStore) PutUser(ctx context.Context, username, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[username] = key
	return nil
}

// GetProgress returns the last pushed position for (username, document).
func (m *MemoryStore) GetProgress(ctx context.Context, username, document string) (*Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.progress[username][document]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := p
	return &result, nil
}

// PutProgress inserts or replaces the position for (username, p.Document).
func (m *MemoryStore) PutProgress(ctx context.Context, username string, p *Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.progress[username] == nil {
		m.progress[username] = make(map[string]Progress)
	}
	m.progress[username][p.Document] = *p
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
