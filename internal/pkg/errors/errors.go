package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidTransition marks a content lifecycle move that the state
	// machine forbids. Distinct from ErrNotFound so callers can report
	// "exists but cannot move there".
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotConfigured marks a fatal configuration gap (e.g. no completion
	// API key). Retrying cannot help, so batch operations short-circuit on it.
	ErrNotConfigured = errors.New("not configured")
)
