package fetch

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	// ErrNotFound is returned for HTTP 404. It is never retried.
	ErrNotFound = errors.New("resource not found")
	// ErrTransient is returned when retryable failures outlast the retry budget.
	ErrTransient = errors.New("upstream unavailable after retries")
	// ErrUnexpectedStatus is returned for non-retryable, non-404 statuses.
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	// ErrDecode is returned when a 2xx body cannot be decoded.
	ErrDecode = errors.New("decode response failed")
	// ErrCanceled is returned when the caller's context ends mid-fetch.
	ErrCanceled = errors.New("fetch canceled")
)

// Error carries the context of a failed fetch.
type Error struct {
	Op     string // operation, e.g. "fetch.text"
	Kind   error  // one of the sentinel kinds above
	URL    string
	Status int   // last HTTP status seen, 0 when none
	Err    error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusOf returns the last HTTP status recorded in err, or 0.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
