package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
)

// UserStore provides read access to users for tier lookups.
type UserStore interface {
	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
