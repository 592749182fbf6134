package browser

import (
	"errors"
	"fmt"

	"github.com/jonathan/scholarship-agent/internal/mapper"
	"github.com/jonathan/scholarship-agent/internal/navigator"
)

var (
	_ navigator.Driver = (*Session)(nil)
	_ mapper.Filler    = (*Session)(nil)
)

// ErrNotInteractable means the element was missing, disabled or read-only.
var ErrNotInteractable = errors.New("element not interactable")

// ErrNoSuchOption means no option's visible text equals the requested value.
var ErrNoSuchOption = errors.New("no option with that text")

// Error represents a failed browser operation.
type Error struct {
	Op    string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("browser: %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
