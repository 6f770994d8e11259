package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrUserNotFound, ErrJobNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a job with the same ID).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConcurrentUpdate is returned when an optimistic version check fails
	// because another writer updated the entity first.
	ErrConcurrentUpdate = errors.New("concurrent update")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates that the requested user does not exist in the store.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrQuizNotFound indicates that the requested quiz does not exist in the store.
	ErrQuizNotFound = fmt.Errorf("%w: quiz", ErrNotFound)

	// ErrJobNotFound indicates that the requested generation job does not exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: generation job", ErrNotFound)

	// ErrCachedFileNotFound indicates that no parsed content is cached for the key.
	ErrCachedFileNotFound = fmt.Errorf("%w: cached file", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// Entity-specific not found errors all wrap ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
