package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/leakscan/internal/adapters/fetch"
	"github.com/okian/leakscan/internal/adapters/gamesource"
	service "github.com/okian/leakscan/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("upstream failure")
	ErrUnavailable = errors.New("service unavailable")
	ErrInternal    = errors.New("internal error")
)

// Error pairs a sentinel kind with its cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind creates an error of the given kind with a message.
func NewKind(kind error, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Wrap adds context to err, keeping its kind.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapKind tags err with kind unless it already carries an API kind.
func WrapKind(kind error, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// classify maps domain and transport errors onto API kinds.
func classify(err error) error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return err
	case errors.Is(err, service.ErrEmptyUsername):
		return WrapKind(ErrBadRequest, err)
	case errors.Is(err, gamesource.ErrUserNotFound):
		return WrapKind(ErrNotFound, err)
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, fetch.ErrCanceled),
		errors.Is(err, service.ErrNotStarted):
		return WrapKind(ErrUnavailable, err)
	case errors.Is(err, fetch.ErrTransient),
		errors.Is(err, fetch.ErrUnexpectedStatus),
		errors.Is(err, fetch.ErrDecode):
		return WrapKind(ErrUpstream, err)
	default:
		return WrapKind(ErrInternal, err)
	}
}

// statusOf returns the HTTP status and error code for err.
func statusOf(err error) (int, string) {
	err = classify(err)
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
