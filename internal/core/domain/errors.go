package domain

import "errors"

// Error categories. Every error the core returns to the transport layer
// unwraps to exactly one of these; the HTTP layer maps categories to codes.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnavailable     = errors.New("service unavailable")
)

// Error is a domain error carrying a client-safe message and its category.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the category so callers can use errors.Is(err, ErrNotFound).
func (e *Error) Unwrap() error { return e.kind }

// Message returns the text that may be shown to API clients.
func (e *Error) Message() string { return e.msg }

// Validation builds an ad-hoc input validation error.
func Validation(msg string) error {
	return newError(ErrValidation, msg)
}

// Authentication.
var (
	ErrMissingToken       = newError(ErrUnauthenticated, "missing bearer token")
	ErrTokenInvalid       = newError(ErrUnauthenticated, "invalid token")
	ErrTokenExpired       = newError(ErrUnauthenticated, "token expired")
	ErrSessionNotFound    = newError(ErrUnauthenticated, "invalid token or session expired")
	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid credentials")
	ErrLoginInactive      = newError(ErrUnauthenticated, "account is deactivated")
	ErrPasswordMismatch   = newError(ErrUnauthenticated, "current password is incorrect")
	ErrAccountInactive    = newError(ErrForbidden, "account is deactivated")
	ErrTooManyAttempts    = newError(ErrRateLimited, "too many failed login attempts, try again later")
)

// Authorization.
var (
	ErrAdminRequired       = newError(ErrForbidden, "admin privileges required")
	ErrGroupMemberRequired = newError(ErrForbidden, "group membership required")
	ErrGroupAdminRequired  = newError(ErrForbidden, "group admin privileges required")
	ErrNotOwner            = newError(ErrForbidden, "resource belongs to another user")
)

// Entities.
var (
	ErrEmailTaken         = newError(ErrValidation, "email already exists")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrGroupNotFound      = newError(ErrNotFound, "group not found")
	ErrMembershipNotFound = newError(ErrNotFound, "user is not a member of this group")
	ErrMembershipExists   = newError(ErrConflict, "user is already a member of this group")
	ErrLastGroupAdmin     = newError(ErrConflict, "group must keep at least one admin")
	ErrPreferenceNotFound = newError(ErrNotFound, "preference not found")
)

// Infrastructure.
var (
	ErrStoreUnavailable = newError(ErrUnavailable, "service temporarily unavailable, retry later")
)
