package model

import "errors"

// Kind classifies a failure so callers and the HTTP layer can react to it
// without string matching.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindConflict          Kind = "conflict"
	KindUnauthenticated   Kind = "unauthenticated"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindAlreadyRegistered Kind = "already_registered"
	KindAuthProvider      Kind = "auth_provider_error"
	KindStoreUnavailable  Kind = "store_unavailable"
)

// Error is the discriminated failure outcome returned by the core services.
// Every error surfaced to a caller carries a kind and a human-readable
// message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// NewError creates a domain error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a domain error that preserves the underlying cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// ErrorKind extracts the kind from an error chain. Errors that are not
// domain errors report an empty kind.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return ErrorKind(err) == kind
}
