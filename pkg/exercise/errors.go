package exercise

import "errors"

var (
	// ErrUnknownExercise is returned when an exercise ID is not in the registry.
	ErrUnknownExercise = errors.New("unknown exercise")

	// ErrInvalidPattern is returned when a pattern has no inhale or exhale.
	ErrInvalidPattern = errors.New("invalid breathing pattern")
)
