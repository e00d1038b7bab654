// ABOUTME: PostgreSQL implementation of the Store interface via the pgx stdlib driver
// ABOUTME: Schema is managed by embedded goose migrations run at open

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/NiLuJe/kosync/internal/store/migrations"
)

// PostgresStore implements the Store interface using PostgreSQL. It exists
// for deployments where several server instances share one database; the
// SQL mirrors the sqlite backend apart from placeholders and schema
// management.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore opens a PostgreSQL store for the given DSN and applies
// the embedded schema migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	logger := slog.Default().With("component", "store")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("PostgreSQL store initialized")
	return &PostgresStore{db: db, logger: logger}, nil
}

// runMigrations points goose at the embedded migration files and applies
// anything not yet recorded in the goose version table.
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser returns the stored key for username.
func (s *PostgresStore) GetUser(ctx context.Context, username string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT userkey FROM users WHERE username = $1`, username,
	).Scan(&key)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying user: %w", err)
	}

	return key, nil
}

// PutUser stores the key for a new username.
func (s *PostgresStore) PutUser(ctx context.Context, username, key string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, userkey) VALUES ($1, $2)`,
		username, key,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetProgress returns the last pushed position for (username, document).
func (s *PostgresStore) GetProgress(ctx context.Context, username, document string) (*Progress, error) {
	query := `
		SELECT document, percentage, progress, device, device_id, timestamp
		FROM progress
		WHERE username = $1 AND document = $2
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
func (s *PostgresStore) PutProgress(ctx context.Context, username string, p *Progress) error {
	query := `
		INSERT INTO progress (username, document, percentage, progress, device, device_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username, document) DO UPDATE SET
			percentage = EXCLUDED.percentage,
			progress = EXCLUDED.progress,
			device = EXCLUDED.device,
			device_id = EXCLUDED.device_id,
			timestamp = EXCLUDED.timestamp
	`

	_, err := s.db.ExecContext(ctx, query,
		username, p.Document, p.Percentage, p.Progress, p.Device, p.DeviceID, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}

	return nil
}
