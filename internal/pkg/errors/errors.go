package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized is returned by the admin/task auth checks.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition is returned when a video job is not in a state that allows the change.
	ErrInvalidTransition = errors.New("invalid job state transition")
)
