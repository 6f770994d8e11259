package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
)

// JobStore defines the interface for quiz generation job persistence.
type JobStore interface {
	// Create saves a new job. The job's Version is set to 1 on success.
	Create(ctx context.Context, job *domain.QuizGenerationJob) error

	// Update replaces the stored job state. The write only succeeds if the
	// stored version equals job.Version; on success job.Version is incremented.
	// Returns ErrConcurrentUpdate when another writer got there first and
	// ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, job *domain.QuizGenerationJob) error

	// GetByQuizID retrieves the job generating the given quiz.
	// Returns ErrJobNotFound if no such job exists.
	GetByQuizID(ctx context.Context, quizID uuid.UUID) (*domain.QuizGenerationJob, error)

	// FindActiveByFileIdentifier returns all non-terminal jobs referencing the
	// file identifier. Returns an empty slice when nothing matches.
	FindActiveByFileIdentifier(ctx context.Context, identifier string) ([]*domain.QuizGenerationJob, error)

	// WithTx returns a new JobStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) JobStore
}
