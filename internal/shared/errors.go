// Package shared holds the error taxonomy used by both the client engine
// and the reference server.
package shared

import "errors"

var (

	// common errors
	ErrNotFound = errors.New("not found")

	// validation errors are caught at the pipeline boundary and never
	// reach the remote store
	ErrValidation = errors.New("validation error")

	// auth-specific errors
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidToken         = errors.New("invalid token")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrInvalidEmailPassword = errors.New("invalid email/password")

	// goal/account-specific errors
	ErrAccountInUse        = errors.New("account is referenced by a goal")
	ErrUnknownDenomination = errors.New("denomination value not configured on goal")

	// remote store errors
	ErrRemoteWrite         = errors.New("remote write failed")
	ErrSubscriptionClosed  = errors.New("change feed subscription closed")
	ErrUnknownCollection   = errors.New("unknown collection")
	ErrNotSignedIn         = errors.New("no authenticated user")
	ErrMigrationInProgress = errors.New("migration already running")
)
