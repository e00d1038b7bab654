// ABOUTME: Redis implementation of the Store interface using go-redis
// ABOUTME: Keeps the key layout used by earlier sync server deployments

package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the Store interface on a Redis server. The key
// layout matches what earlier sync server deployments wrote, so pointing
// this backend at an existing database keeps every account and position:
//
//	user:<username>:key                  stored credential (string)
//	user:<username>:document:<document>  position fields (hash)
//
// Usernames cannot contain ':' (enforced at registration). Keys are only
// ever constructed, never parsed, so document ids are free-form.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore connects to the Redis server and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	logger := slog.Default().With("component", "store")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	logger.Info("Redis store initialized", "addr", addr, "db", db)
	return &RedisStore{client: client, logger: logger}, nil
}

func userKey(username string) string {
	return "user:" + username + ":key"
}

func documentKey(username, document string) string {
	return "user:" + username + ":document:" + document
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetUser returns the stored key for username.
func (s *RedisStore) GetUser(ctx context.Context, username string) (string, error) {
	key, err := s.client.Get(ctx, userKey(username)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting user: %w", err)
	}

	return key, nil
}

// PutUser stores the key for a new username.
func (s *RedisStore) PutUser(ctx context.Context, username, key string) error {
	if err := s.client.Set(ctx, userKey(username), key, 0).Err(); err != nil {
		return fmt.Errorf("setting user: %w", err)
	}

	return nil
}

// GetProgress returns the last pushed position for (username, document).
func (s *RedisStore) GetProgress(ctx context.Context, username, document string) (*Progress, error) {
	// HGetAll returns an empty map, not redis.Nil, for a missing key
	fields, err := s.client.HGetAll(ctx, documentKey(username, document)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting progress: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return progressFromHash(document, fields)
}

// PutProgress inserts or replaces the position for (username, p.Document).
func (s *RedisStore) PutProgress(ctx context.Context, username string, p *Progress) error {
	if err := s.client.HSet(ctx, documentKey(username, p.Document), progressToHash(p)).Err(); err != nil {
		return fmt.Errorf("setting progress: %w", err)
	}

	return nil
}

// progressToHash flattens a record into the stored hash fields.
func progressToHash(p *Progress) map[string]any {
	return map[string]any{
		"percentage": p.Percentage,
		"progress":   p.Progress,
		"device":     p.Device,
		"device_id":  p.DeviceID,
		"timestamp":  p.Timestamp,
	}
}

// progressFromHash rebuilds a record from stored hash fields. Records
// written by other server implementations may lack fields; those come
// back as zero values rather than errors.
func progressFromHash(document string, fields map[string]string) (*Progress, error) {
	p := &Progress{Document: document}

	if v, ok := fields["percentage"]; ok {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing percentage: %w", err)
		}
		p.Percentage = pct
	}

	p.Progress = fields["progress"]
	p.Device = fields["device"]
	p.DeviceID = fields["device_id"]

	if v, ok := fields["timestamp"]; ok {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		p.Timestamp = ts
	}

	return p, nil
}
