// Package sqlite provides the SQLite-based audit store for run reports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A Store owns one database
// connection and hands out the ReportStore interface backed by it.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Reports live in sync_reports; their per-device outcomes in sync_outcomes,
// ordered by position.
//
// # Data Location
//
// By default, the database is stored at ~/.intunesync/data/audit.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
