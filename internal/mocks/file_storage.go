package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/quizgen/internal/orchestrator"
)

// MockFileStorage implements orchestrator.FileStorage over a fixed set of
// files.
type MockFileStorage struct {
	GetFileFn func(ctx context.Context, identifier string) (*orchestrator.StoredFile, error)

	Bucket string

	mu    sync.Mutex
	files map[string]orchestrator.StoredFile
}

var _ orchestrator.FileStorage = (*MockFileStorage)(nil)

// NewMockFileStorage creates a MockFileStorage for the "uploads" bucket.
func NewMockFileStorage(files ...orchestrator.StoredFile) *MockFileStorage {
	m := &MockFileStorage{Bucket: "uploads", files: make(map[string]orchestrator.StoredFile)}
	for _, f := range files {
		m.files[f.Identifier] = f
	}
	return m
}

// Add registers a file.
func (m *MockFileStorage) Add(f orchestrator.StoredFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[f.Identifier] = f
}

// GetFile implements orchestrator.FileStorage.
func (m *MockFileStorage) GetFile(ctx context.Context, identifier string) (*orchestrator.StoredFile, error) {
	if m.GetFileFn != nil {
		return m.GetFileFn(ctx, identifier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrFileNotFound, identifier)
	}
	return &f, nil
}

// BucketName implements orchestrator.FileStorage.
func (m *MockFileStorage) BucketName() string {
	return m.Bucket
}
