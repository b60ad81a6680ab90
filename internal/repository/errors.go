package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStateConflict is returned when a conditional status transition
	// matched zero rows because the trip was no longer in the expected
	// status. Callers treat this as a lost race, not a missing entity.
	ErrStateConflict = errors.New("trip not in expected status")
)
