package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/scholarship-agent/internal/config"
	"github.com/jonathan/scholarship-agent/internal/types"
)

func backends(t *testing.T) map[string]func() Store {
	dir := t.TempDir()
	return map[string]func() Store{
		"file": func() Store {
			return NewFileStore(filepath.Join(dir, uuid.NewString()+".txt"))
		},
		"sqlite": func() Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(dir, uuid.NewString()+".db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestLedger_RecordAndProcessed(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := New(open(), uuid.New(), nil)
			defer l.Close()

			require.NoError(t, l.Record(ctx, "https://a.example/apply", types.StatusOpen, "deadline May 1"))
			require.NoError(t, l.Record(ctx, "https://a.example/apply", types.StatusSkipped, "user skipped"))
			require.NoError(t, l.Record(ctx, "https://b.example", types.StatusClosed, "deadline passed"))

			processed, err := l.Processed(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.StatusSkipped, processed["https://a.example/apply"])
			assert.Equal(t, types.StatusClosed, processed["https://b.example"])

			entries, err := l.Entries(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, "deadline May 1", entries[0].Details)
		})
	}
}

func TestLedger_IdempotentTerminal(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := New(open(), uuid.New(), nil)
			defer l.Close()

			url := "https://c.example/scholarship"
			require.NoError(t, l.Record(ctx, url, types.StatusCompleted, ""))
			require.NoError(t, l.Record(ctx, url, types.StatusCompleted, "again"))

			err := l.Record(ctx, url, types.StatusNotFound, "")
			assert.ErrorIs(t, err, ErrAlreadyTerminal)
			err = l.Record(ctx, url, types.StatusOpen, "")
			assert.ErrorIs(t, err, ErrAlreadyTerminal)

			entries, err := l.Entries(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no second or conflicting entry is written")

			status, err := l.Effective(ctx, url+"/")
			require.NoError(t, err)
			assert.Equal(t, types.StatusCompleted, status)
		})
	}
}

func TestLedger_RejectsEmptyInput(t *testing.T) {
	l := New(NewFileStore(filepath.Join(t.TempDir(), "links.txt")), uuid.Nil, nil)
	assert.Error(t, l.Record(context.Background(), "  ", types.StatusOpen, ""))
	assert.Error(t, l.Record(context.Background(), "https://x.example", types.StatusNone, ""))
}

func TestEffectiveStatuses_TerminalSticks(t *testing.T) {
	entries := []Entry{
		{URL: "https://x.example", Status: types.StatusOpen},
		{URL: "https://x.example", Status: types.StatusClosed},
		{URL: "https://x.example", Status: types.StatusOpen},
		{URL: "https://y.example", Status: types.StatusFailed},
	}
	got := EffectiveStatuses(entries)
	assert.Equal(t, types.StatusClosed, got["https://x.example"])
	assert.Equal(t, types.StatusFailed, got["https://y.example"])
}

func TestExcluded(t *testing.T) {
	tests := map[types.LinkStatus]bool{
		types.StatusNone:      false,
		types.StatusOpen:      false,
		types.StatusSkipped:   false,
		types.StatusFailed:    false,
		types.StatusAd:        true,
		types.StatusClosed:    true,
		types.StatusCompleted: true,
		types.StatusNotFound:  true,
	}
	for status, want := range tests {
		assert.Equal(t, want, Excluded(status), string(status))
	}
}

func TestFileStore_ReadsLegacyLinksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	content := `https://one.example
https://two.example | open
# comment

https://three.example | Not Found | page was a 404
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	entries, err := NewFileStore(path).Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, types.StatusNone, entries[0].Status)
	assert.Equal(t, types.StatusOpen, entries[1].Status)
	assert.Equal(t, types.StatusNotFound, entries[2].Status)
	assert.Equal(t, "page was a 404", entries[2].Details)
}

func TestFileStore_BadStatusLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://one.example | maybe\n"), 0644))

	_, err := NewFileStore(path).Entries(context.Background())
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "line 1")
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "https://a.example", FormatLine(Entry{URL: "https://a.example"}))
	assert.Equal(t, "https://a.example | open", FormatLine(Entry{URL: "https://a.example", Status: types.StatusOpen}))
	assert.Equal(t, "https://a.example | closed | past deadline",
		FormatLine(Entry{URL: "https://a.example", Status: types.StatusClosed, Details: "past deadline"}))
}

func TestRecord_DetailsKeptOnOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	l := New(NewFileStore(path), uuid.New(), nil)

	require.NoError(t, l.Record(context.Background(), "https://a.example", types.StatusSkipped, "line one\nline | two"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example | skipped | line one line / two\n", string(raw))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://a.example/", NormalizeURL(" https://a.example/ "))
	assert.Equal(t, "https://a.example/apply", NormalizeURL("https://a.example/apply/"))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenStore(ctx, config.Config{LedgerBackend: config.LedgerFile, LedgerPath: filepath.Join(dir, "links.txt")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = OpenStore(ctx, config.Config{LedgerBackend: config.LedgerSQLite, LedgerPath: filepath.Join(dir, "ledger.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = OpenStore(ctx, config.Config{LedgerBackend: config.LedgerPostgres})
	assert.Error(t, err)

	_, err = OpenStore(ctx, config.Config{LedgerBackend: "redis"})
	assert.Error(t, err)
}
