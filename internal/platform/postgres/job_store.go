package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/store"
)

const jobColumns = `id, user_id, quiz_id, status, files, events, version, created_at, updated_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{db: tx, logger: s.logger}
}

// Create implements store.JobStore.Create
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.QuizGenerationJob) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	files, events, err := encodeJobLists(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO quiz_generation_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.UserID, job.QuizID, string(job.Status),
		files, events, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()),
			slog.String("quiz_id", job.QuizID.String()))
		return MapError(err, nil)
	}

	job.Version = 1
	log.Info("job created",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(job.Status)),
		slog.Int("files", len(job.Files)))
	return nil
}

// Update implements store.JobStore.Update
// The row is only written when its version still matches job.Version.
func (s *PostgresJobStore) Update(ctx context.Context, job *domain.QuizGenerationJob) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	files, events, err := encodeJobLists(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE quiz_generation_jobs
		SET status = $2, files = $3, events = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		job.ID, string(job.Status), files, events, job.UpdatedAt, job.Version)
	if err != nil {
		log.Error("failed to update job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return MapError(err, store.ErrJobNotFound)
	}

	if err := CheckRowsAffected(result, store.ErrJobNotFound); err != nil {
		var exists bool
		existsErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM quiz_generation_jobs WHERE id = $1)`, job.ID).Scan(&exists)
		if existsErr != nil {
			return MapError(existsErr, store.ErrJobNotFound)
		}
		if !exists {
			return store.ErrJobNotFound
		}
		log.Warn("job version conflict",
			slog.String("job_id", job.ID.String()),
			slog.Int("version", job.Version))
		return fmt.Errorf("%w: job %s at version %d", store.ErrConcurrentUpdate, job.ID, job.Version)
	}

	job.Version++
	log.Debug("job updated",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(job.Status)),
		slog.Int("version", job.Version))
	return nil
}

// GetByQuizID implements store.JobStore.GetByQuizID
func (s *PostgresJobStore) GetByQuizID(ctx context.Context, quizID uuid.UUID) (*domain.QuizGenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM quiz_generation_jobs WHERE quiz_id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, quizID))
	if err != nil {
		return nil, MapError(err, store.ErrJobNotFound)
	}
	return job, nil
}

// FindActiveByFileIdentifier implements store.JobStore.FindActiveByFileIdentifier
func (s *PostgresJobStore) FindActiveByFileIdentifier(
	ctx context.Context,
	identifier string,
) ([]*domain.QuizGenerationJob, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	containment, err := json.Marshal([]map[string]string{{"identifier": identifier}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode identifier filter: %w", err)
	}

	query := `
		SELECT ` + jobColumns + `
		FROM quiz_generation_jobs
		WHERE files @> $1::jsonb AND status NOT IN ('completed', 'failed')
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, containment)
	if err != nil {
		log.Error("failed to query jobs by file",
			slog.String("error", err.Error()),
			slog.String("identifier", identifier))
		return nil, MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	jobs := []*domain.QuizGenerationJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, nil)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.QuizGenerationJob, error) {
	var (
		job    domain.QuizGenerationJob
		status string
		files  []byte
		events []byte
	)
	if err := row.Scan(&job.ID, &job.UserID, &job.QuizID, &status, &files, &events,
		&job.Version, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal(files, &job.Files); err != nil {
		return nil, fmt.Errorf("failed to decode job files: %w", err)
	}
	if err := json.Unmarshal(events, &job.Events); err != nil {
		return nil, fmt.Errorf("failed to decode job events: %w", err)
	}
	return &job, nil
}

func encodeJobLists(job *domain.QuizGenerationJob) ([]byte, []byte, error) {
	files, err := json.Marshal(job.Files)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode job files: %w", err)
	}
	events := job.Events
	if events == nil {
		events = []domain.JobEvent{}
	}
	encodedEvents, err := json.Marshal(events)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode job events: %w", err)
	}
	return files, encodedEvents, nil
}
