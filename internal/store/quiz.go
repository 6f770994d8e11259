package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
)

// QuizStore defines the interface for quiz persistence used by the pipeline.
type QuizStore interface {
	// Create saves a new, empty quiz.
	Create(ctx context.Context, quiz *domain.Quiz) error

	// GetByID retrieves a quiz by its unique ID.
	// Returns ErrQuizNotFound if the quiz does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)

	// Update saves the quiz title and questions.
	// Returns ErrQuizNotFound if the quiz does not exist.
	Update(ctx context.Context, quiz *domain.Quiz) error

	// CountByUserID returns the number of quizzes owned by the user.
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)

	// CountCreatedSince returns the number of quizzes the user created at or
	// after the given instant.
	CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// WithTx returns a new QuizStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) QuizStore
}
