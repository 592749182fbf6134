package ledger

import (
	"context"

	"github.com/jonathan/scholarship-agent/internal/db"
	"github.com/jonathan/scholarship-agent/internal/types"
)

// PostgresStore keeps entries in PostgreSQL.
type PostgresStore struct {
	db *db.DB
}

// OpenPostgres connects to databaseURL and ensures the ledger table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	conn, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, &Error{Message: "failed to open postgres ledger", Cause: err}
	}
	if err := conn.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, &Error{Message: "failed to prepare postgres ledger", Cause: err}
	}
	return &PostgresStore{db: conn}, nil
}

// Append inserts one entry.
func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	err := s.db.InsertLedgerEntry(ctx, db.LedgerRow{
		ID:         e.ID,
		RunID:      e.RunID,
		URL:        e.URL,
		Status:     string(e.Status),
		Details:    e.Details,
		RecordedAt: e.RecordedAt,
	})
	if err != nil {
		return &Error{Message: "append failed", Cause: err}
	}
	return nil
}

// Entries returns entries in insertion order.
func (s *PostgresStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.ListLedgerEntries(ctx)
	if err != nil {
		return nil, &Error{Message: "list failed", Cause: err}
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			ID:         r.ID,
			RunID:      r.RunID,
			URL:        r.URL,
			Status:     types.LinkStatus(r.Status),
			Details:    r.Details,
			RecordedAt: r.RecordedAt,
		})
	}
	return entries, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
