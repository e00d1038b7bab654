// ABOUTME: Embedded SQL migrations for the PostgreSQL backend
// ABOUTME: Applied by goose when the store is opened

package migrations

import "embed"

// Migrations holds the SQL migration files applied by goose.
//
//go:embed *.sql
var Migrations embed.FS
