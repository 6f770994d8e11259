package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/store"
)

// MockJobStore implements store.JobStore over an in-memory map with the same
// optimistic version check as the PostgreSQL store.
type MockJobStore struct {
	CreateFn                     func(ctx context.Context, job *domain.QuizGenerationJob) error
	UpdateFn                     func(ctx context.Context, job *domain.QuizGenerationJob) error
	GetByQuizIDFn                func(ctx context.Context, quizID uuid.UUID) (*domain.QuizGenerationJob, error)
	FindActiveByFileIdentifierFn func(ctx context.Context, identifier string) ([]*domain.QuizGenerationJob, error)

	mu   sync.Mutex
	jobs map[uuid.UUID]domain.QuizGenerationJob

	// UpdateCalls records every job passed to Update, successful or not.
	UpdateCalls struct {
		mu    sync.Mutex
		Count int
		Jobs  []domain.QuizGenerationJob
	}
}

var _ store.JobStore = (*MockJobStore)(nil)

// NewMockJobStore creates an empty MockJobStore.
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[uuid.UUID]domain.QuizGenerationJob)}
}

// Create implements store.JobStore.
func (m *MockJobStore) Create(ctx context.Context, job *domain.QuizGenerationJob) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return store.ErrDuplicate
	}
	job.Version = 1
	m.jobs[job.ID] = copyJob(*job)
	return nil
}

// Update implements store.JobStore.
func (m *MockJobStore) Update(ctx context.Context, job *domain.QuizGenerationJob) error {
	m.UpdateCalls.mu.Lock()
	m.UpdateCalls.Count++
	m.UpdateCalls.Jobs = append(m.UpdateCalls.Jobs, copyJob(*job))
	m.UpdateCalls.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, job)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.jobs[job.ID]
	if !ok {
		return store.ErrJobNotFound
	}
	if stored.Version != job.Version {
		return store.ErrConcurrentUpdate
	}
	job.Version++
	m.jobs[job.ID] = copyJob(*job)
	return nil
}

// GetByQuizID implements store.JobStore.
func (m *MockJobStore) GetByQuizID(ctx context.Context, quizID uuid.UUID) (*domain.QuizGenerationJob, error) {
	if m.GetByQuizIDFn != nil {
		return m.GetByQuizIDFn(ctx, quizID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.QuizID == quizID {
			found := copyJob(job)
			return &found, nil
		}
	}
	return nil, store.ErrJobNotFound
}

// FindActiveByFileIdentifier implements store.JobStore.
func (m *MockJobStore) FindActiveByFileIdentifier(
	ctx context.Context,
	identifier string,
) ([]*domain.QuizGenerationJob, error) {
	if m.FindActiveByFileIdentifierFn != nil {
		return m.FindActiveByFileIdentifierFn(ctx, identifier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	found := []*domain.QuizGenerationJob{}
	for _, job := range m.jobs {
		if job.IsTerminal() || !job.HasFile(identifier) {
			continue
		}
		j := copyJob(job)
		found = append(found, &j)
	}
	sort.Slice(found, func(a, b int) bool {
		return found[a].CreatedAt.Before(found[b].CreatedAt)
	})
	return found, nil
}

// WithTx returns the same store; the mock has no transactions.
func (m *MockJobStore) WithTx(*sql.Tx) store.JobStore {
	return m
}

// Put stores a job as-is, bypassing the version check.
func (m *MockJobStore) Put(job domain.QuizGenerationJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = copyJob(job)
}

// Job returns the stored state of the job, if present.
func (m *MockJobStore) Job(id uuid.UUID) (domain.QuizGenerationJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return copyJob(job), ok
}

// Jobs returns every stored job.
func (m *MockJobStore) Jobs() []domain.QuizGenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.QuizGenerationJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, copyJob(job))
	}
	return out
}

func copyJob(job domain.QuizGenerationJob) domain.QuizGenerationJob {
	job.Files = append([]domain.JobFile(nil), job.Files...)
	job.Events = append([]domain.JobEvent(nil), job.Events...)
	return job
}
