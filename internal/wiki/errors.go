package wiki

import (
	"errors"
	"fmt"

	domainerrors "github.com/Edward-Muir/when/internal/errors"
)

// Sentinel errors for Wikipedia API operations.
// ErrNotFound and ErrNoResults carry the not-found code, so errors.Is against
// domainerrors.ErrNotFound matches both.
var (
	ErrNotFound    = domainerrors.NotFound("wiki: article not found")
	ErrNoResults   = domainerrors.NotFound("wiki: no search results")
	ErrRateLimited = errors.New("wiki: rate limited by server")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "search", "pageviews"
	Query string // Search text or article title
	Err   error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("wiki %s [%s]: %v", e.Op, e.Query, e.Err)
	}
	return fmt.Sprintf("wiki %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, query string, err error) error {
	return &Error{
		Op:    op,
		Query: query,
		Err:   err,
	}
}
