package identity

import "errors"

var (
	// ErrConflict indicates the email or mobile is already claimed by another account.
	ErrConflict = errors.New("user already exists")

	// ErrNotFound indicates no account matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrUnauthorized indicates the supplied PIN does not match.
	ErrUnauthorized = errors.New("invalid PIN")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
