package service

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist or belongs to another user
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when an operation needs a user and none was given
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidState is returned when a request conflicts with current state
	ErrInvalidState = errors.New("invalid state")
)
