// ABOUTME: Tests for the PostgreSQL store using sqlmock
// ABOUTME: Exercises SQL and error mapping without a running database

package store

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStore{db: db, logger: slog.Default()}, mock
}

func TestPostgresStore_GetUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT userkey FROM users WHERE username = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"userkey"}).AddRow("stored-key"))

	key, err := s.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "stored-key", key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUser_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT userkey FROM users WHERE username = $1`)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"userkey"}))

	_, err := s.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUser_Fault(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT userkey FROM users WHERE username = $1`)).
		WithArgs("alice").
		WillReturnError(dbErr)

	_, err := s.GetUser(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "backend faults must stay distinct from missing users")
	assert.ErrorIs(t, err, dbErr)
}

func TestPostgresStore_PutUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (username, userkey) VALUES ($1, $2)`)).
		WithArgs("alice", "stored-key").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutUser(context.Background(), "alice", "stored-key")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := sqlmock.NewRows([]string{"document", "percentage", "progress", "device", "device_id", "timestamp"}).
		AddRow("doc1", 0.42, "/body/p[3]", "kobo", "ABC", int64(1724300000))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT document, percentage, progress, device, device_id, timestamp`)).
		WithArgs("alice", "doc1").
		WillReturnRows(rows)

	got, err := s.GetProgress(context.Background(), "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, &Progress{
		Document:   "doc1",
		Percentage: 0.42,
		Progress:   "/body/p[3]",
		Device:     "kobo",
		DeviceID:   "ABC",
		Timestamp:  1724300000,
	}, got)
}

func TestPostgresStore_GetProgress_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT document, percentage, progress, device, device_id, timestamp`)).
		WithArgs("alice", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"document", "percentage", "progress", "device", "device_id", "timestamp"}))

	_, err := s.GetProgress(context.Background(), "alice", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_PutProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO progress`)).
		WithArgs("alice", "doc1", 0.42, "/body/p[3]", "kobo", "ABC", int64(1724300000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutProgress(context.Background(), "alice", &Progress{
		Document:   "doc1",
		Percentage: 0.42,
		Progress:   "/body/p[3]",
		Device:     "kobo",
		DeviceID:   "ABC",
		Timestamp:  1724300000,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
