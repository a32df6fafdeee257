package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable error category surfaced to API clients.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindResultTerminal         Kind = "result_terminal"
	KindForbidden              Kind = "forbidden"
	KindValidation             Kind = "validation_error"
	KindInternal               Kind = "internal"
)

// Error carries a stable kind alongside a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func InvalidStateTransition(format string, args ...interface{}) *Error {
	return newError(KindInvalidStateTransition, format, args...)
}

func ResultTerminal(format string, args ...interface{}) *Error {
	return newError(KindResultTerminal, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// Wrap attaches an underlying cause while keeping the kind and message stable.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from any error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the response status used by the controllers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidStateTransition, KindResultTerminal:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
