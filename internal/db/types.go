package db

import (
	"time"

	"github.com/google/uuid"
)

// LedgerRow represents a ledger_entries record
type LedgerRow struct {
	ID         uuid.UUID `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	Details    string    `json:"details"`
	RecordedAt time.Time `json:"recorded_at"`
}
