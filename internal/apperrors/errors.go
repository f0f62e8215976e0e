// Package apperrors defines typed application errors and their HTTP mapping.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies application failures.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindConfiguration Kind = "configuration"
	KindConnection    Kind = "connection"
	KindPersistence   Kind = "persistence"
	KindValidation    Kind = "validation"
)

// Error is a typed application failure with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so callers can test against the
// sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrConnection    = &Error{Kind: KindConnection}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrValidation    = &Error{Kind: KindValidation}
)

// E builds a typed error.
func E(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a typed error around cause. A nil cause yields nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the outermost typed error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status code returned to callers.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
