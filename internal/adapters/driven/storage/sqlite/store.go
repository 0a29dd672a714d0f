package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/intunesync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
)

// DatabaseFile is the file name of the audit database inside the data directory.
const DatabaseFile = "audit.db"

// Store is a SQLite-based storage for run reports.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.intunesync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".intunesync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ReportStore returns a ReportStore interface backed by this store.
func (s *Store) ReportStore() driven.ReportStore {
	return &reportStore{store: s}
}

// migrate runs all pending migrations.
// Each up migration records its own version in schema_migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_reports.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// schemaVersion returns the highest applied migration.
func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// ==================== Report Store ====================

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

// Save stores a report and replaces its outcomes in one transaction.
func (s *reportStore) Save(ctx context.Context, report *domain.ResultReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("saving report: %w: missing report id", domain.ErrConfiguration)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_reports (id, mode, platform, principal, started_at, finished_at,
			requested, found, not_found, synced, failed, cancelled, fetch_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			platform = excluded.platform,
			principal = excluded.principal,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			requested = excluded.requested,
			found = excluded.found,
			not_found = excluded.not_found,
			synced = excluded.synced,
			failed = excluded.failed,
			cancelled = excluded.cancelled,
			fetch_error = excluded.fetch_error
	`, report.ID, string(report.Mode), nullString(string(report.Platform)), nullString(report.Principal),
		report.StartedAt.UTC(), nullTime(&report.FinishedAt),
		report.Requested, report.Found, report.NotFound, report.Synced, report.Failed,
		report.Cancelled, nullString(report.FetchError))
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sync_outcomes WHERE report_id = ?", report.ID); err != nil {
		return fmt.Errorf("clearing outcomes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sync_outcomes (report_id, position, name, device_id, platform, owner,
			last_sync_at, kind, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("saving outcomes: %w", err)
	}
	defer stmt.Close()

	for i, o := range report.Outcomes {
		if _, err := stmt.ExecContext(ctx, report.ID, i, o.Name, nullString(o.DeviceID),
			nullString(o.Platform), nullString(o.Owner), nullTime(o.LastSyncAt),
			string(o.Kind), nullString(o.Reason)); err != nil {
			return fmt.Errorf("saving outcome %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// Get retrieves a report and its outcomes by ID.
func (s *reportStore) Get(ctx context.Context, id string) (*domain.ResultReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, mode, platform, principal, started_at, finished_at,
			requested, found, not_found, synced, failed, cancelled, fetch_error
		FROM sync_reports WHERE id = ?
	`, id)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT name, device_id, platform, owner, last_sync_at, kind, reason
		FROM sync_outcomes WHERE report_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	report.Outcomes = make([]domain.DeviceOutcome, 0, report.Processed())
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		report.Outcomes = append(report.Outcomes, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}

	return report, nil
}

// List returns the most recent reports first, without outcomes.
// A non-positive limit returns every report.
func (s *reportStore) List(ctx context.Context, limit int) ([]domain.ResultReport, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, mode, platform, principal, started_at, finished_at,
			requested, found, not_found, synced, failed, cancelled, fetch_error
		FROM sync_reports ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ResultReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

// ==================== Helpers ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*domain.ResultReport, error) {
	var r domain.ResultReport
	var mode string
	var platform, principal, fetchError sql.NullString
	var startedAt, finishedAt sql.NullTime

	if err := row.Scan(&r.ID, &mode, &platform, &principal, &startedAt, &finishedAt,
		&r.Requested, &r.Found, &r.NotFound, &r.Synced, &r.Failed,
		&r.Cancelled, &fetchError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	r.Mode = domain.RunMode(mode)
	r.Platform = domain.Platform(platform.String)
	r.Principal = principal.String
	r.FetchError = fetchError.String
	if startedAt.Valid {
		r.StartedAt = startedAt.Time.UTC()
	}
	if finishedAt.Valid {
		r.FinishedAt = finishedAt.Time.UTC()
	}
	return &r, nil
}

func scanOutcome(row scanner) (*domain.DeviceOutcome, error) {
	var o domain.DeviceOutcome
	var kind string
	var deviceID, platform, owner, reason sql.NullString
	var lastSync sql.NullTime

	if err := row.Scan(&o.Name, &deviceID, &platform, &owner, &lastSync, &kind, &reason); err != nil {
		return nil, fmt.Errorf("scanning outcome: %w", err)
	}

	o.Kind = domain.OutcomeKind(kind)
	o.DeviceID = deviceID.String
	o.Platform = platform.String
	o.Owner = owner.String
	o.Reason = reason.String
	if lastSync.Valid {
		t := lastSync.Time.UTC()
		o.LastSyncAt = &t
	}
	return &o, nil
}

// nullString converts empty strings to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime converts nil or zero times to NULL and stores the rest in UTC.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
