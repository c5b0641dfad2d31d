package repository

import "errors"

var (
	// ErrNotFound is returned when the requested user or config does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserAlreadyExists is returned when creating a user whose email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)
