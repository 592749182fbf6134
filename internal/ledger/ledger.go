// Package ledger records which candidate links have been processed.
//
// The ledger is append-only. Backends only append and list entries; the rules
// for effective status and terminal conflicts live in Ledger so every backend
// behaves the same.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// ErrAlreadyTerminal is returned when a link that already has a terminal status
// would receive a different status.
var ErrAlreadyTerminal = errors.New("link already has a terminal status")

// Entry is one ledger record.
type Entry struct {
	ID         uuid.UUID        `json:"id"`
	RunID      uuid.UUID        `json:"run_id"`
	URL        string           `json:"url"`
	Status     types.LinkStatus `json:"status"`
	Details    string           `json:"details,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// Store is a backend that persists entries in append order.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Entries(ctx context.Context) ([]Entry, error)
	Close() error
}

// Error represents a backend failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ledger error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("ledger error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Ledger applies the append rules on top of a Store. It has a single writer.
type Ledger struct {
	store  Store
	runID  uuid.UUID
	now    func() time.Time
	logger *zap.Logger
}

// New wraps store. Entries appended through the returned Ledger carry runID.
func New(store Store, runID uuid.UUID, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, runID: runID, now: time.Now, logger: logger.Named("ledger")}
}

// Record appends a status for url. Recording the same terminal status again is
// a no-op. Any other status for a link that is already terminal returns
// ErrAlreadyTerminal and writes nothing.
func (l *Ledger) Record(ctx context.Context, url string, status types.LinkStatus, details string) error {
	url = NormalizeURL(url)
	if url == "" {
		return &Error{Message: "empty url"}
	}
	if status == types.StatusNone {
		return &Error{Message: fmt.Sprintf("no status for %s", url)}
	}

	current, err := l.Effective(ctx, url)
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		if current == status {
			l.logger.Debug("terminal status already recorded", zap.String("url", url), zap.String("status", string(status)))
			return nil
		}
		return fmt.Errorf("%w: %s is %s, refusing %s", ErrAlreadyTerminal, url, current, status)
	}

	entry := Entry{
		ID:         uuid.New(),
		RunID:      l.runID,
		URL:        url,
		Status:     status,
		Details:    oneLine(details),
		RecordedAt: l.now().UTC(),
	}
	if err := l.store.Append(ctx, entry); err != nil {
		return err
	}
	l.logger.Info("recorded link status",
		zap.String("url", url),
		zap.String("status", string(status)),
		zap.String("details", entry.Details))
	return nil
}

// Entries returns every entry in append order.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	return l.store.Entries(ctx)
}

// Effective returns the current status of url, or StatusNone when unrecorded.
func (l *Ledger) Effective(ctx context.Context, url string) (types.LinkStatus, error) {
	processed, err := l.Processed(ctx)
	if err != nil {
		return types.StatusNone, err
	}
	return processed[NormalizeURL(url)], nil
}

// Processed returns the effective status of every recorded URL.
func (l *Ledger) Processed(ctx context.Context) (map[string]types.LinkStatus, error) {
	entries, err := l.store.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return EffectiveStatuses(entries), nil
}

// Excluded reports whether discovery must drop a link with this status. Terminal
// links and links already classified as ads never come back as candidates.
func Excluded(status types.LinkStatus) bool {
	return status.IsTerminal() || status == types.StatusAd
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// EffectiveStatuses folds entries in order. The latest entry wins until a
// terminal status is seen; after that the URL's status no longer changes.
func EffectiveStatuses(entries []Entry) map[string]types.LinkStatus {
	out := make(map[string]types.LinkStatus, len(entries))
	for _, e := range entries {
		url := NormalizeURL(e.URL)
		if out[url].IsTerminal() {
			continue
		}
		out[url] = e.Status
	}
	return out
}

// NormalizeURL trims whitespace and a trailing slash so the same page recorded
// twice compares equal.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if strings.HasSuffix(url, "/") && strings.Count(url, "/") > 3 {
		url = strings.TrimRight(url, "/")
	}
	return url
}

// oneLine keeps details on one line and free of the field separator used by
// the file backend.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", "/")
}
