package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jonathan/scholarship-agent/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	run_id      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      TEXT NOT NULL,
	details     TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_url ON ledger_entries(url);
`

// SQLiteStore keeps entries in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Message: "failed to open sqlite ledger", Cause: err}
	}
	// Single writer; one connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=FULL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, &Error{Message: "failed to set pragma", Cause: err}
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, &Error{Message: "failed to create ledger schema", Cause: err}
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts one entry.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, run_id, url, status, details, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.RunID.String(), e.URL, string(e.Status), e.Details, e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &Error{Message: "failed to insert ledger entry", Cause: err}
	}
	return nil
}

// Entries returns entries in insertion order.
func (s *SQLiteStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, url, status, details, recorded_at FROM ledger_entries ORDER BY seq`)
	if err != nil {
		return nil, &Error{Message: "failed to query ledger entries", Cause: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			id, runID, status string
			recordedAt        string
		)
		if err := rows.Scan(&id, &runID, &e.URL, &status, &e.Details, &recordedAt); err != nil {
			return nil, &Error{Message: "failed to scan ledger entry", Cause: err}
		}
		e.ID, _ = uuid.Parse(id)
		e.RunID, _ = uuid.Parse(runID)
		e.Status = types.LinkStatus(status)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Message: "failed to read ledger entries", Cause: err}
	}
	return entries, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
