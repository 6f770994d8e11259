package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/store"
)

// MockQuizStore implements store.QuizStore over an in-memory map.
type MockQuizStore struct {
	CreateFn            func(ctx context.Context, quiz *domain.Quiz) error
	GetByIDFn           func(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)
	UpdateFn            func(ctx context.Context, quiz *domain.Quiz) error
	CountByUserIDFn     func(ctx context.Context, userID uuid.UUID) (int, error)
	CountCreatedSinceFn func(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	mu      sync.Mutex
	quizzes map[uuid.UUID]domain.Quiz

	// UpdateCalls counts Update invocations.
	UpdateCalls struct {
		mu    sync.Mutex
		Count int
	}
}

var _ store.QuizStore = (*MockQuizStore)(nil)

// NewMockQuizStore creates an empty MockQuizStore.
func NewMockQuizStore() *MockQuizStore {
	return &MockQuizStore{quizzes: make(map[uuid.UUID]domain.Quiz)}
}

// Create implements store.QuizStore.
func (m *MockQuizStore) Create(ctx context.Context, quiz *domain.Quiz) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, quiz)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quiz.ID]; ok {
		return store.ErrDuplicate
	}
	m.quizzes[quiz.ID] = copyQuiz(*quiz)
	return nil
}

// GetByID implements store.QuizStore.
func (m *MockQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, store.ErrQuizNotFound
	}
	found := copyQuiz(quiz)
	return &found, nil
}

// Update implements store.QuizStore.
func (m *MockQuizStore) Update(ctx context.Context, quiz *domain.Quiz) error {
	m.UpdateCalls.mu.Lock()
	m.UpdateCalls.Count++
	m.UpdateCalls.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, quiz)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quiz.ID]; !ok {
		return store.ErrQuizNotFound
	}
	m.quizzes[quiz.ID] = copyQuiz(*quiz)
	return nil
}

// CountByUserID implements store.QuizStore.
func (m *MockQuizStore) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.CountByUserIDFn != nil {
		return m.CountByUserIDFn(ctx, userID)
	}
	return m.count(userID, time.Time{}), nil
}

// CountCreatedSince implements store.QuizStore.
func (m *MockQuizStore) CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	if m.CountCreatedSinceFn != nil {
		return m.CountCreatedSinceFn(ctx, userID, since)
	}
	return m.count(userID, since), nil
}

// WithTx returns the same store; the mock has no transactions.
func (m *MockQuizStore) WithTx(*sql.Tx) store.QuizStore {
	return m
}

// Put stores a quiz as-is.
func (m *MockQuizStore) Put(quiz domain.Quiz) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[quiz.ID] = copyQuiz(quiz)
}

// Quiz returns the stored quiz, if present.
func (m *MockQuizStore) Quiz(id uuid.UUID) (domain.Quiz, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	return copyQuiz(quiz), ok
}

func (m *MockQuizStore) count(userID uuid.UUID, since time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, quiz := range m.quizzes {
		if quiz.UserID == userID && !quiz.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func copyQuiz(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)
	return quiz
}
