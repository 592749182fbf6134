// Package profile loads, persists and collects the applicant profile.
package profile

import "fmt"

// StoreError represents a failure reading or writing the persisted profile.
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile store error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("profile store error: %s", e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// UnsupportedMaterialError is returned for essay or transcript files whose
// format cannot be read as text (for example .docx).
type UnsupportedMaterialError struct {
	Path   string
	Format string
}

func (e *UnsupportedMaterialError) Error() string {
	return fmt.Sprintf("unsupported material format %q for %s (convert it to .txt, .md or .pdf)", e.Format, e.Path)
}
