package persistence

import "errors"

var (
	// ErrEntityNotFound is returned when an entity is not found in the repository.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNoTransaction is returned when an operation that must join the
	// caller's transaction finds none (or an already finished one) in ctx.
	ErrNoTransaction = errors.New("no active transaction in context")

	// ErrDuplicateKey is returned when an insert collides with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
)
