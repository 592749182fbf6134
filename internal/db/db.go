// Package db provides PostgreSQL access for the completed-link ledger.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq         BIGSERIAL PRIMARY KEY,
	id          UUID NOT NULL UNIQUE,
	run_id      UUID NOT NULL,
	url         TEXT NOT NULL,
	status      TEXT NOT NULL,
	details     TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_url ON ledger_entries(url);
`

// EnsureSchema creates the ledger table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure ledger schema: %w", err)
	}
	return nil
}

// InsertLedgerEntry appends one ledger row.
func (db *DB) InsertLedgerEntry(ctx context.Context, row LedgerRow) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO ledger_entries (id, run_id, url, status, details, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		row.ID, row.RunID, row.URL, row.Status, row.Details, row.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry for %s: %w", row.URL, err)
	}
	return nil
}

// ListLedgerEntries returns all rows in insertion order.
func (db *DB) ListLedgerEntries(ctx context.Context) ([]LedgerRow, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, url, status, details, recorded_at
		 FROM ledger_entries ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var row LedgerRow
		if err := rows.Scan(&row.ID, &row.RunID, &row.URL, &row.Status, &row.Details, &row.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}
	return out, nil
}
