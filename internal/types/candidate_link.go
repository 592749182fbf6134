package types

import (
	"fmt"
	"strings"
)

// LinkStatus is the annotation recorded for a candidate link.
type LinkStatus string

// Link statuses. The zero value means no status has been determined.
const (
	StatusNone      LinkStatus = ""
	StatusOpen      LinkStatus = "open"
	StatusClosed    LinkStatus = "closed"
	StatusCompleted LinkStatus = "completed"
	StatusNotFound  LinkStatus = "not_found"
	StatusAd        LinkStatus = "ad"
	StatusSkipped   LinkStatus = "skipped"
	StatusFailed    LinkStatus = "failed"
)

// IsTerminal reports whether a link with this status is permanently excluded
// from future candidate lists.
func (s LinkStatus) IsTerminal() bool {
	switch s {
	case StatusClosed, StatusCompleted, StatusNotFound:
		return true
	}
	return false
}

// ParseLinkStatus normalizes free-text status labels ("Not Found", "not-found", "open").
func ParseLinkStatus(s string) (LinkStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch LinkStatus(norm) {
	case StatusNone, StatusOpen, StatusClosed, StatusCompleted, StatusNotFound,
		StatusAd, StatusSkipped, StatusFailed:
		return LinkStatus(norm), nil
	}
	return StatusNone, fmt.Errorf("unknown link status %q", s)
}

// CandidateLink is a page address produced by discovery with an optional status
// and a short rationale.
type CandidateLink struct {
	URL     string     `json:"url"`
	Status  LinkStatus `json:"status,omitempty"`
	Details string     `json:"details,omitempty"`
}

func (l CandidateLink) String() string {
	if l.Status == StatusNone {
		return l.URL
	}
	if l.Details == "" {
		return fmt.Sprintf("%s [%s]", l.URL, l.Status)
	}
	return fmt.Sprintf("%s [%s: %s]", l.URL, l.Status, l.Details)
}
