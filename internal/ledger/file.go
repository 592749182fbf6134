package ledger

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// FileStore keeps entries as "url | status | details" lines. Each append is
// synced before returning, so a crash loses at most the entry being written.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes one line and syncs the file.
func (s *FileStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &Error{Message: "failed to open ledger file", Cause: err}
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(e) + "\n"); err != nil {
		return &Error{Message: "failed to append ledger entry", Cause: err}
	}
	if err := f.Sync(); err != nil {
		return &Error{Message: "failed to sync ledger file", Cause: err}
	}
	return nil
}

// Entries reads every line. A missing file is an empty ledger.
func (s *FileStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Message: "failed to open ledger file", Cause: err}
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		entry, ok, err := ParseLine(scanner.Text())
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("%s line %d", s.path, lineNum), Cause: err}
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Message: "failed to read ledger file", Cause: err}
	}
	return entries, nil
}

// Close is a no-op; the file is opened per call.
func (s *FileStore) Close() error {
	return nil
}

// FormatLine renders an entry in the links file format.
func FormatLine(e Entry) string {
	line := e.URL
	if e.Status != types.StatusNone || e.Details != "" {
		line += " | " + string(e.Status)
	}
	if e.Details != "" {
		line += " | " + e.Details
	}
	return line
}

// ParseLine reads a "url | status | details" line. Status and details are
// optional. Blank lines and lines starting with '#' return ok=false.
func ParseLine(line string) (Entry, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false, nil
	}

	parts := strings.SplitN(line, "|", 3)
	entry := Entry{URL: NormalizeURL(parts[0])}
	if entry.URL == "" {
		return Entry{}, false, fmt.Errorf("missing url in %q", line)
	}
	if len(parts) > 1 {
		status, err := types.ParseLinkStatus(parts[1])
		if err != nil {
			return Entry{}, false, err
		}
		entry.Status = status
	}
	if len(parts) > 2 {
		entry.Details = strings.TrimSpace(parts[2])
	}
	return entry, true, nil
}
