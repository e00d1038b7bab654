// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Default backend with automatic schema creation and WAL mode

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pooled connection to ":memory:" opens a separate empty database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL keeps pulls readable while a push is being written
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			userkey TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS progress (
			username TEXT NOT NULL,
			document TEXT NOT NULL,
			percentage REAL NOT NULL,
			progress TEXT NOT NULL,
			device TEXT NOT NULL,
			device_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (username, document)
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser returns the stored key for username.
func (s *SQLiteStore) GetUser(ctx context.Context, username string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT userkey FROM users WHERE username = ?`, username,
	).Scan(&key)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying user: %w", err)
	}

	return key, nil
}

// PutUser stores the key for a new username. The username is the primary
// key, so a concurrent duplicate insert fails with a constraint error.
func (s *SQLiteStore) PutUser(ctx context.Context, username, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, userkey, created_at) VALUES (?, ?, ?)`,
		username, key, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetProgress returns the last pushed position for (username, document).
func (s *SQLiteStore) GetProgress(ctx context.Context, username, document string) (*Progress, error) {
	query := `
		SELECT document, percentage, progress, device, device_id, timestamp
		FROM progress
		WHERE username = ? AND document = ?
	`

	var p Progress
	err := s.db.QueryRowContext(ctx, query, username, document).Scan(
		&p.Document,
		&p.Percentage,
		&p.Progress,
		&p.Device,
		&p.DeviceID,
		&p.Timestamp,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}

	return &p, nil
}

// PutProgress inserts or replaces the position for (username, p.Document).
func (s *SQLiteStore) PutProgress(ctx context.Context, username string, p *Progress) error {
	query := `
		INSERT INTO progress (username, document, percentage, progress, device, device_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, document) DO UPDATE SET
			percentage = excluded.percentage,
			progress = excluded.progress,
			device = excluded.device,
			device_id = excluded.device_id,
			timestamp = excluded.timestamp
	`

	_, err := s.db.ExecContext(ctx, query,
		username, p.Document, p.Percentage, p.Progress, p.Device, p.DeviceID, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}

	return nil
}
