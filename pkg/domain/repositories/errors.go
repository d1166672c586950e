package repositories

import "errors"

var (
	// ErrNotFound is returned when a deployment id is unknown.
	ErrNotFound = errors.New("deployment not found")

	// ErrDuplicateID is returned when creating a deployment with an existing id.
	ErrDuplicateID = errors.New("deployment with this id already exists")

	// ErrConflict is returned when an optimistic update kept losing the race for the same id.
	ErrConflict = errors.New("concurrent update conflict")
)
