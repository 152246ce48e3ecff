// Package apperr defines the error taxonomy shared by the auth core.
// Every error that crosses a service boundary is one of these kinds so
// the HTTP layer can map it to a status without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers missing or malformed input.
	KindValidation
	// KindDuplicate covers email / employee-id collisions.
	KindDuplicate
	// KindInvalidCredentials is deliberately uniform: the caller cannot
	// tell "no such user" from "wrong password".
	KindInvalidCredentials
	// KindInvalidToken is likewise uniform across forged, malformed and
	// expired tokens.
	KindInvalidToken
	// KindAccountState covers inactive / suspended accounts.
	KindAccountState
	// KindAuthorization is a role mismatch: authenticated but not entitled.
	KindAuthorization
	KindNotFound
	// KindWeakPassword carries the full list of unmet policy rules.
	KindWeakPassword
	// KindDependency wraps store/hash subsystem failures. The wrapped
	// cause is logged, never returned to the client.
	KindDependency
)

// Error is the single error type the identity core raises. Fields holds
// the offending input fields (validation) or unmet rules (weak password).
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation reports missing/malformed input fields.
func Validation(message string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Duplicate reports a uniqueness collision on the named field.
func Duplicate(field string) *Error {
	return &Error{Kind: KindDuplicate, Message: field + " already registered", Fields: []string{field}}
}

// InvalidCredentials is the uniform login failure.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
}

// InvalidToken is the uniform token verification failure.
func InvalidToken(cause error) *Error {
	return &Error{Kind: KindInvalidToken, Message: "invalid or expired token", cause: cause}
}

// AccountState reports a non-active account.
func AccountState(message string) *Error {
	return &Error{Kind: KindAccountState, Message: message}
}

// Authorization reports a role mismatch.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound reports a missing record.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// WeakPassword reports every unmet strength rule, not just the first.
func WeakPassword(rules []string) *Error {
	return &Error{Kind: KindWeakPassword, Message: "password does not meet strength requirements", Fields: rules}
}

// Dependency wraps a store or hashing failure with a client-safe message.
func Dependency(message string, cause error) *Error {
	return &Error{Kind: KindDependency, Message: message, cause: cause}
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is makes errors.Is(err, apperr.New(kind, ...)) match on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// FieldsOf returns the field list carried by err, if any.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// HTTPStatus maps an error kind to the status the envelope uses.
// Duplicates stay 400 to match the behaviour existing clients rely on.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDuplicate, KindWeakPassword:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindInvalidToken, KindAccountState:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Foreign errors are
// flattened so internals never leak into a response body; Dependency
// messages are written client-safe at construction.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
