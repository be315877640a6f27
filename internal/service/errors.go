package service

import "errors"

// Error kinds. Every error returned by this package that is not an internal
// failure wraps exactly one of these, so transports can map them to statuses.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a client-facing failure: Message is safe to show to callers.
type Error struct {
	kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, message string) *Error {
	return &Error{kind: kind, Message: message}
}

var (
	ErrFieldsMissing         = newError(ErrInvalidInput, "email, password and name are required")
	ErrInvalidEmail          = newError(ErrInvalidInput, "invalid email format")
	ErrPasswordTooShort      = newError(ErrInvalidInput, "password must be at least 6 characters")
	ErrPasswordTooLong       = newError(ErrInvalidInput, "password must be at most 72 characters")
	ErrIdentityFieldsMissing = newError(ErrInvalidInput, "googleId, email and name are required")
	ErrNameRequired          = newError(ErrInvalidInput, "name is required")
	ErrKeyNameRequired       = newError(ErrInvalidInput, "keyName is required")
	ErrPurchaseFieldsMissing = newError(ErrInvalidInput, "userId and planId are required")

	ErrUserNotFound    = newError(ErrNotFound, "user not found")
	ErrAPIKeyNotFound  = newError(ErrNotFound, "api key not found")
	ErrPlanUnavailable = newError(ErrNotFound, "plan not found or inactive")

	ErrEmailTaken = newError(ErrConflict, "user with this email already exists")

	// ErrInvalidCredentials covers unknown email, wrong password and
	// federated-only accounts alike, so login never reveals which one it was.
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrSessionExpired     = newError(ErrUnauthorized, "invalid or expired token")
)
