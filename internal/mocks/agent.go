package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/generation"
)

// MockAgent implements generation.Agent for testing
type MockAgent struct {
	// GenerateQuizFn allows test cases to mock the GenerateQuiz behavior
	GenerateQuizFn func(ctx context.Context, contents []json.RawMessage, n int) (*domain.Quiz, error)

	// SafetyContentCheckFn allows test cases to mock the SafetyContentCheck behavior
	SafetyContentCheckFn func(ctx context.Context, quiz *domain.Quiz) (*generation.SafetyReport, error)

	// Tries is returned by MaxTry
	Tries int

	// Default response values
	Quiz   *domain.Quiz
	Report *generation.SafetyReport
	Err    error

	// GenerateQuizCalls tracks GenerateQuiz invocations
	GenerateQuizCalls struct {
		mu        sync.Mutex
		Count     int
		Contents  [][]json.RawMessage
		Questions []int
	}

	// SafetyContentCheckCalls tracks SafetyContentCheck invocations
	SafetyContentCheckCalls struct {
		mu    sync.Mutex
		Count int
	}
}

var _ generation.Agent = (*MockAgent)(nil)

// GenerateQuiz implements the generation.Agent interface
func (m *MockAgent) GenerateQuiz(ctx context.Context, contents []json.RawMessage, n int) (*domain.Quiz, error) {
	m.GenerateQuizCalls.mu.Lock()
	m.GenerateQuizCalls.Count++
	m.GenerateQuizCalls.Contents = append(m.GenerateQuizCalls.Contents, contents)
	m.GenerateQuizCalls.Questions = append(m.GenerateQuizCalls.Questions, n)
	m.GenerateQuizCalls.mu.Unlock()

	if m.GenerateQuizFn != nil {
		return m.GenerateQuizFn(ctx, contents, n)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Quiz, nil
}

// SafetyContentCheck implements the generation.Agent interface
func (m *MockAgent) SafetyContentCheck(ctx context.Context, quiz *domain.Quiz) (*generation.SafetyReport, error) {
	m.SafetyContentCheckCalls.mu.Lock()
	m.SafetyContentCheckCalls.Count++
	m.SafetyContentCheckCalls.mu.Unlock()

	if m.SafetyContentCheckFn != nil {
		return m.SafetyContentCheckFn(ctx, quiz)
	}
	if m.Report == nil {
		return &generation.SafetyReport{EducationalScore: 100}, nil
	}
	return m.Report, nil
}

// MaxTry implements the generation.Agent interface
func (m *MockAgent) MaxTry() int {
	return m.Tries
}

// GenerateQuizCount returns the number of GenerateQuiz calls so far
func (m *MockAgent) GenerateQuizCount() int {
	m.GenerateQuizCalls.mu.Lock()
	defer m.GenerateQuizCalls.mu.Unlock()
	return m.GenerateQuizCalls.Count
}

// SafetyContentCheckCount returns the number of SafetyContentCheck calls so far
func (m *MockAgent) SafetyContentCheckCount() int {
	m.SafetyContentCheckCalls.mu.Lock()
	defer m.SafetyContentCheckCalls.mu.Unlock()
	return m.SafetyContentCheckCalls.Count
}

// NewMockAgentWithQuiz creates a MockAgent that always returns a copy of quiz
// and passes it through the safety check
func NewMockAgentWithQuiz(quiz *domain.Quiz, tries int) *MockAgent {
	return &MockAgent{
		Tries: tries,
		GenerateQuizFn: func(context.Context, []json.RawMessage, int) (*domain.Quiz, error) {
			q := *quiz
			q.Questions = append([]domain.Question(nil), quiz.Questions...)
			return &q, nil
		},
	}
}
