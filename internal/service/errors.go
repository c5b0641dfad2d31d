package service

import "errors"

var (
	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when a token is missing, invalid, expired,
	// or names a user that no longer exists.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when the caller never stored a config.
	ErrNotFound = errors.New("config not found")
	// ErrMalformedInput wraps every input validation failure.
	ErrMalformedInput = errors.New("malformed input")
)
