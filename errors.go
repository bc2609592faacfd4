package auth

import (
	"errors"
	"net/http"
)

// Kind enumerates the error taxonomy. Every kind except KindInternal is
// operational: expected, user-facing, and safe to show.
type Kind int

const (
	// KindBadRequest covers malformed or missing input, failed validation,
	// and duplicate unique fields.
	KindBadRequest Kind = iota
	// KindUnauthenticated covers missing, invalid, expired, or stale
	// tokens, unknown or inactive identities, and wrong credentials.
	KindUnauthenticated
	// KindForbidden means authenticated but with insufficient role.
	KindForbidden
	// KindNotFound means no such identity for a flow that requires one.
	KindNotFound
	// KindUnavailable means a downstream notification dispatch failed.
	KindUnavailable
	// KindInternal is anything unclassified. Its cause never leaks to
	// clients.
	KindInternal
)

// StatusCode returns the fixed HTTP status for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure carrying a fixed status code and a safe,
// user-presentable message. The wrapped cause is for logs only.
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

// StatusCode returns the HTTP status for the error's kind.
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

// Operational reports whether the error is expected and safe to surface.
func (e *Error) Operational() bool {
	return e.Kind != KindInternal
}

// Status returns the response envelope status keyword: "fail" for client
// errors, "error" for server errors.
func (e *Error) Status() string {
	if e.StatusCode() < http.StatusInternalServerError {
		return "fail"
	}
	return "error"
}

// BadRequest builds a 400 error.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Unauthenticated builds a 401 error.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Unavailable builds a 503 error.
func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

// Internal builds a 500 error. Its message is still replaced with a
// generic one in terse mode.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// Wrap attaches a kind and safe message to an underlying cause.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// ErrTokenExpired is returned for structurally valid tokens past expiry.
var ErrTokenExpired = Unauthenticated("Your token has expired. Please log in again")

// ErrTokenMalformed is returned for tokens with a bad structure or
// signature.
var ErrTokenMalformed = Unauthenticated("Invalid token. Please log in again")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNoEmptyString rejects hashing an empty credential
var ErrNoEmptyString = errors.New("password must not be empty")

// ErrMismatchedHashAndPassword is returned when a credential does not
// match its stored hash
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash")

// ErrEntropyFailure signals a failing entropy source. It is fatal for the
// operation; security is never silently degraded.
var ErrEntropyFailure = errors.New("entropy source failure")
