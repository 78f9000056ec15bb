package identity

import "errors"

// Sentinel errors for identity resolution.
var (
	ErrMissingCredentials = errors.New("identity: missing credentials")
	ErrTokenMalformed     = errors.New("identity: token malformed")
	ErrTokenExpired       = errors.New("identity: token expired")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)
