// Package apperr defines the error kinds surfaced by the HTTP API and their
// status code mapping.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	// KindValidation marks a missing or malformed request field.
	KindValidation Kind = "validation"
	// KindConflict marks a unique key violation.
	KindConflict Kind = "conflict"
	// KindUnauthenticated marks rejected credentials.
	KindUnauthenticated Kind = "unauthenticated"
	// KindInvalidToken marks a bearer token that failed verification.
	KindInvalidToken Kind = "invalid_token"
	// KindNotFound marks a missing target record.
	KindNotFound Kind = "not_found"
	// KindInternal marks store failures and anything unexpected.
	KindInternal Kind = "internal"
)

// InternalMessage is the only message ever returned for KindInternal.
const InternalMessage = "Internal server error"

// Error carries a kind, a client-safe message, and an optional cause that is
// never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps err as KindInternal with the generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidToken:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to send to clients.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return InternalMessage
	}
	return e.Message
}
