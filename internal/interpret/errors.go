package interpret

import (
	"fmt"
)

// Error represents a failed call to the page interpreter.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("interpreter error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("interpreter error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ParseError is returned when a model answer cannot be read as the expected
// structure. Raw keeps the full answer so a human can use it as context.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse interpreter answer: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
