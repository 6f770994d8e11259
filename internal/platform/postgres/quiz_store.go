package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/store"
)

// PostgresQuizStore implements the store.QuizStore interface
// using a PostgreSQL database as the storage backend.
type PostgresQuizStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuizStore creates a new PostgreSQL implementation of the QuizStore interface.
func NewPostgresQuizStore(db store.DBTX, logger *slog.Logger) *PostgresQuizStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQuizStore{
		db:     db,
		logger: logger.With(slog.String("component", "quiz_store")),
	}
}

// Ensure PostgresQuizStore implements store.QuizStore interface
var _ store.QuizStore = (*PostgresQuizStore)(nil)

// WithTx implements store.QuizStore.WithTx
func (s *PostgresQuizStore) WithTx(tx *sql.Tx) store.QuizStore {
	return &PostgresQuizStore{db: tx, logger: s.logger}
}

// Create implements store.QuizStore.Create
func (s *PostgresQuizStore) Create(ctx context.Context, quiz *domain.Quiz) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := quiz.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	questions, err := encodeQuestions(quiz.Questions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO quizzes (id, user_id, title, questions, questions_numbers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		quiz.ID, quiz.UserID, quiz.Title, questions, quiz.QuestionsNumbers, quiz.CreatedAt, quiz.UpdatedAt)
	if err != nil {
		log.Error("failed to create quiz",
			slog.String("error", err.Error()),
			slog.String("quiz_id", quiz.ID.String()),
			slog.String("user_id", quiz.UserID.String()))
		return MapError(err, nil)
	}
	return nil
}

// GetByID implements store.QuizStore.GetByID
func (s *PostgresQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	query := `
		SELECT id, user_id, title, questions, questions_numbers, created_at, updated_at
		FROM quizzes
		WHERE id = $1
	`
	var (
		quiz      domain.Quiz
		questions []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&quiz.ID, &quiz.UserID, &quiz.Title, &questions,
		&quiz.QuestionsNumbers, &quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		return nil, MapError(err, store.ErrQuizNotFound)
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
	}
	return &quiz, nil
}

// Update implements store.QuizStore.Update
func (s *PostgresQuizStore) Update(ctx context.Context, quiz *domain.Quiz) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	questions, err := encodeQuestions(quiz.Questions)
	if err != nil {
		return err
	}

	query := `
		UPDATE quizzes
		SET title = $2, questions = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, quiz.ID, quiz.Title, questions, quiz.UpdatedAt)
	if err != nil {
		log.Error("failed to update quiz",
			slog.String("error", err.Error()),
			slog.String("quiz_id", quiz.ID.String()))
		return MapError(err, store.ErrQuizNotFound)
	}
	return CheckRowsAffected(result, store.ErrQuizNotFound)
}

// CountByUserID implements store.QuizStore.CountByUserID
func (s *PostgresQuizStore) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quizzes WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, MapError(err, nil)
	}
	return count, nil
}

// CountCreatedSince implements store.QuizStore.CountCreatedSince
func (s *PostgresQuizStore) CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quizzes WHERE user_id = $1 AND created_at >= $2`, userID, since).Scan(&count)
	if err != nil {
		return 0, MapError(err, nil)
	}
	return count, nil
}

func encodeQuestions(questions []domain.Question) ([]byte, error) {
	if questions == nil {
		questions = []domain.Question{}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quiz questions: %w", err)
	}
	return encoded, nil
}
