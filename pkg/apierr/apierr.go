// Package apierr defines the semantic error kinds from the service's error
// handling design: ValidationError, NotFound, RateLimited,
// UpstreamFetchError, RepositoryError, and Conflict. These are plain
// sentinel-wrapped errors; the HTTP boundary (internal/platform/httpmiddleware)
// is the only place that maps one to an HTTP status code.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of HTTP status mapping and
// orchestrator recovery policy (spec §7).
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindRateLimited
	KindUpstreamFetch
	KindRepository
	KindConflict
)

// Error wraps an underlying cause with a Kind so the HTTP boundary and the
// orchestrator can branch on error semantics without string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newErr(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newErr(KindNotFound, format, args...)
}

func RateLimited(format string, args ...any) *Error {
	return newErr(KindRateLimited, format, args...)
}

func UpstreamFetch(cause error, format string, args ...any) *Error {
	e := newErr(KindUpstreamFetch, format, args...)
	e.Cause = cause
	return e
}

func Repository(cause error, format string, args ...any) *Error {
	e := newErr(KindRepository, format, args...)
	e.Cause = cause
	return e
}

func Conflict(format string, args ...any) *Error {
	return newErr(KindConflict, format, args...)
}

// KindOf extracts the Kind of err, walking the Unwrap chain. Returns
// KindUnknown if neither err nor anything in its chain is an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
