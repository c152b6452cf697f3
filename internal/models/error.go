package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login flow errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownIdentity    = errors.New("identity does not resolve to an account")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrUserSuspended      = errors.New("user temporarily suspended")
	ErrIPBlocked          = errors.New("ip address is blocked")
	ErrSessionCreation    = errors.New("failed to create session")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("attempt store unavailable")
)
