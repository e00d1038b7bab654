// Package store provides persistent storage for the sync server.
//
// # Architecture
//
// Handlers depend on small interfaces rather than concrete types:
//
//   - UserStore: account credentials (get/put)
//   - ProgressStore: per-(user, document) reading positions (get/put)
//   - Store: both of the above plus Ping and Close
//
// Four backends implement Store:
//
//   - SQLiteStore: the default; a single file with WAL mode, schema
//     created at open. Use ":memory:" for tests.
//   - PostgresStore: for deployments sharing one database across server
//     instances. Schema is managed by embedded goose migrations.
//   - RedisStore: keeps the key layout of earlier sync server
//     deployments (user:<name>:key strings and user:<name>:document:<doc>
//     hashes), so existing data keeps working.
//   - MemoryStore: mutex-guarded maps for tests and throwaway servers.
//
// # Data Model
//
// A user is a (username, key) pair; the key is stored exactly as the
// client registered it, already hashed client-side. A Progress record is
// the complete last-pushed position for one document: percentage, the
// opaque position cursor, device name, device id, and the server-assigned
// Unix timestamp. Puts are last-write-wins upserts keyed by
// (username, document).
//
// # Error Handling
//
// Lookups for absent users or records return ErrNotFound; callers decide
// whether that is an auth failure, a normal pre-first-sync echo, or a
// registration green light. Every other error is a backend fault, wrapped
// with context. All methods accept context.Context for cancellation.
package store
