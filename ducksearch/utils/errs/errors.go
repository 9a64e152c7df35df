// Package errs defines the error taxonomy shared by the search core.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstreamUnavailable = errors.New("search provider unavailable")
	ErrRateLimited         = errors.New("rate limited by search provider")
	ErrPageFetchFailed     = errors.New("page fetch failed")
)

// Error tags a cause with one of the sentinel kinds above.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return e.Kind == target }

// New wraps err under the given kind.
func New(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Invalid builds an ErrInvalidRequest with a formatted reason.
func Invalid(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: ErrInvalidRequest, Err: fmt.Errorf(format, args...)}
}
