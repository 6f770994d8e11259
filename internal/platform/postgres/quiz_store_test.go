package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/postgres"
	"github.com/phrazzld/quizgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresQuizStore_CreateAndUpdate(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	quiz, err := domain.NewQuiz(uuid.New(), "Biology", 5)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quizzes")).
		WithArgs(quiz.ID, quiz.UserID, "Biology", []byte("[]"), 5, quiz.CreatedAt, quiz.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quizzes")).
		WithArgs(quiz.ID, "Cells", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := postgres.NewPostgresQuizStore(db, nil)
	require.NoError(t, s.Create(context.Background(), quiz))

	require.NoError(t, quiz.PutQuestions("Cells", []domain.Question{{
		Q:       "What is the powerhouse of the cell?",
		Answers: []domain.Answer{{A: "Mitochondria", C: true}, {A: "Nucleus"}},
	}}))
	err = s.Update(context.Background(), quiz)
	assert.ErrorIs(t, err, store.ErrQuizNotFound, "zero rows updated means the quiz is gone")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuizStore_GetByID(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM quizzes")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "title", "questions", "questions_numbers", "created_at", "updated_at",
		}).AddRow(id.String(), userID.String(), "T", []byte(`[{"q":"Q1","answers":[{"a":"x","c":true},{"a":"y","c":false}]}]`), 1, now, now))

	quiz, err := postgres.NewPostgresQuizStore(db, nil).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Q1", quiz.Questions[0].Q)
	assert.True(t, quiz.Questions[0].Answers[0].C)
}

func TestPostgresQuizStore_Counts(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	userID := uuid.New()
	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM quizzes WHERE user_id = $1")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("created_at >= $2")).
		WithArgs(userID, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	s := postgres.NewPostgresQuizStore(db, nil)
	total, err := s.CountByUserID(context.Background(), userID)
	require.NoError(t, err)
	today, err := s.CountCreatedSince(context.Background(), userID, since)
	require.NoError(t, err)

	assert.Equal(t, 7, total)
	assert.Equal(t, 2, today)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByID(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "tier", "created_at", "updated_at"}).
			AddRow(id.String(), "a@example.com", "basic", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "tier", "created_at", "updated_at"}))

	s := postgres.NewPostgresUserStore(db, nil)
	user, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.TierBasic, user.Tier)

	_, err = s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
