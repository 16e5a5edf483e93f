package engine

import "errors"

var (
	// ErrInvalidStateTransition is returned when a mutator is called in a
	// state that forbids it. The session is left untouched.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrValidation is returned for rejected input, e.g. a story below the
	// minimum length. No session state is mutated.
	ErrValidation = errors.New("validation failed")
)
