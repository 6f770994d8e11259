package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/domain"
)

// MockCache implements contentcache.Cache over in-memory maps.
type MockCache struct {
	GetByChecksumFn   func(ctx context.Context, checksum string) (*domain.CachedFileParsed, error)
	GetByIdentifierFn func(ctx context.Context, identifier string) (*domain.CachedFileParsed, error)
	PutFn             func(ctx context.Context, entry *domain.CachedFileParsed) error

	mu           sync.Mutex
	byChecksum   map[string]domain.CachedFileParsed
	byIdentifier map[string]string

	// PutCalls counts Put invocations.
	PutCalls struct {
		mu    sync.Mutex
		Count int
	}
}

var _ contentcache.Cache = (*MockCache)(nil)

// NewMockCache creates a MockCache holding the given entries.
func NewMockCache(entries ...domain.CachedFileParsed) *MockCache {
	m := &MockCache{
		byChecksum:   make(map[string]domain.CachedFileParsed),
		byIdentifier: make(map[string]string),
	}
	for _, e := range entries {
		m.store(e)
	}
	return m
}

// GetByChecksum implements contentcache.Cache.
func (m *MockCache) GetByChecksum(ctx context.Context, checksum string) (*domain.CachedFileParsed, error) {
	if m.GetByChecksumFn != nil {
		return m.GetByChecksumFn(ctx, checksum)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.byChecksum[checksum]
	if !ok {
		return nil, contentcache.ErrCacheMiss
	}
	return &entry, nil
}

// GetByIdentifier implements contentcache.Cache.
func (m *MockCache) GetByIdentifier(ctx context.Context, identifier string) (*domain.CachedFileParsed, error) {
	if m.GetByIdentifierFn != nil {
		return m.GetByIdentifierFn(ctx, identifier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	checksum, ok := m.byIdentifier[identifier]
	if !ok {
		return nil, contentcache.ErrCacheMiss
	}
	entry := m.byChecksum[checksum]
	return &entry, nil
}

// Put implements contentcache.Cache.
func (m *MockCache) Put(ctx context.Context, entry *domain.CachedFileParsed) error {
	m.PutCalls.mu.Lock()
	m.PutCalls.Count++
	m.PutCalls.mu.Unlock()

	if m.PutFn != nil {
		return m.PutFn(ctx, entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(*entry)
	return nil
}

// Len returns the number of distinct checksums cached.
func (m *MockCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byChecksum)
}

func (m *MockCache) store(entry domain.CachedFileParsed) {
	if old, ok := m.byChecksum[entry.Checksum]; ok && old.Identifier != entry.Identifier {
		delete(m.byIdentifier, old.Identifier)
	}
	m.byChecksum[entry.Checksum] = entry
	m.byIdentifier[entry.Identifier] = entry.Checksum
}
