package contentcache_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend mimics the upsert semantics of the durable stores.
type memoryBackend struct {
	mu        sync.Mutex
	entries   map[string]domain.CachedFileParsed
	gets      int
	upsertErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: map[string]domain.CachedFileParsed{}}
}

func (b *memoryBackend) GetByChecksum(_ context.Context, checksum string) (*domain.CachedFileParsed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	entry, ok := b.entries[checksum]
	if !ok {
		return nil, store.ErrCachedFileNotFound
	}
	return &entry, nil
}

func (b *memoryBackend) GetByIdentifier(_ context.Context, identifier string) (*domain.CachedFileParsed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	var latest *domain.CachedFileParsed
	for _, entry := range b.entries {
		if entry.Identifier != identifier {
			continue
		}
		if latest == nil || entry.UpdatedAt.After(latest.UpdatedAt) {
			e := entry
			latest = &e
		}
	}
	if latest == nil {
		return nil, store.ErrCachedFileNotFound
	}
	return latest, nil
}

func (b *memoryBackend) Upsert(_ context.Context, entry *domain.CachedFileParsed) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.upsertErr != nil {
		return b.upsertErr
	}
	if existing, ok := b.entries[entry.Checksum]; ok {
		existing.Identifier = entry.Identifier
		existing.FileContent = entry.FileContent
		existing.UpdatedAt = entry.UpdatedAt
		b.entries[entry.Checksum] = existing
		return nil
	}
	b.entries[entry.Checksum] = *entry
	return nil
}

func newEntry(t *testing.T, checksum, identifier, content string) *domain.CachedFileParsed {
	t.Helper()
	entry, err := domain.NewCachedFileParsed(checksum, identifier, json.RawMessage(content))
	require.NoError(t, err)
	return entry
}

func TestNewService_RequiresBackend(t *testing.T) {
	t.Parallel()

	_, err := contentcache.NewService(nil, 10, nil)
	assert.ErrorIs(t, err, contentcache.ErrNilBackend)
}

func TestService_PutIsIdempotentPerChecksum(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 16} {
		backend := newMemoryBackend()
		cache, err := contentcache.NewService(backend, size, nil)
		require.NoError(t, err)
		ctx := context.Background()

		require.NoError(t, cache.Put(ctx, newEntry(t, "sum", "a.pdf", `{"text":"first"}`)))
		require.NoError(t, cache.Put(ctx, newEntry(t, "sum", "a.pdf", `{"text":"second"}`)))
		require.NoError(t, cache.Put(ctx, newEntry(t, "sum", "a.pdf", `{"text":"second"}`)))

		assert.Len(t, backend.entries, 1, "size %d", size)
		got, err := cache.GetByChecksum(ctx, "sum")
		require.NoError(t, err)
		assert.JSONEq(t, `{"text":"second"}`, string(got.FileContent), "size %d", size)
	}
}

func TestService_ReadThrough(t *testing.T) {
	t.Parallel()

	backend := newMemoryBackend()
	backend.entries["sum"] = *newEntry(t, "sum", "a.pdf", `{"text":"x"}`)

	cache, err := contentcache.NewService(backend, 8, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.GetByChecksum(ctx, "sum")
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", got.Identifier)
	}
	assert.Equal(t, 1, backend.gets, "later lookups are served from memory")

	got, err := cache.GetByIdentifier(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sum", got.Checksum)
	assert.Equal(t, 1, backend.gets)
}

func TestService_Miss(t *testing.T) {
	t.Parallel()

	cache, err := contentcache.NewService(newMemoryBackend(), 8, nil)
	require.NoError(t, err)

	_, err = cache.GetByChecksum(context.Background(), "nope")
	assert.ErrorIs(t, err, contentcache.ErrCacheMiss)

	_, err = cache.GetByIdentifier(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, contentcache.ErrCacheMiss)
}

func TestService_PutMovesIdentifier(t *testing.T) {
	t.Parallel()

	backend := newMemoryBackend()
	cache, err := contentcache.NewService(backend, 8, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, newEntry(t, "sum", "old.pdf", `{"text":"x"}`)))
	require.NoError(t, cache.Put(ctx, newEntry(t, "sum", "new.pdf", `{"text":"x"}`)))

	_, err = cache.GetByIdentifier(ctx, "old.pdf")
	assert.ErrorIs(t, err, contentcache.ErrCacheMiss, "identifier is overwritten on upsert")

	got, err := cache.GetByIdentifier(ctx, "new.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sum", got.Checksum)
}

func TestService_PutFailure(t *testing.T) {
	t.Parallel()

	backend := newMemoryBackend()
	backend.upsertErr = errors.New("disk full")
	cache, err := contentcache.NewService(backend, 8, nil)
	require.NoError(t, err)
	ctx := context.Background()

	err = cache.Put(ctx, newEntry(t, "sum", "a.pdf", `{"text":"x"}`))
	assert.ErrorIs(t, err, contentcache.ErrCacheWrite)
	assert.ErrorContains(t, err, "disk full")

	_, err = cache.GetByChecksum(ctx, "sum")
	assert.ErrorIs(t, err, contentcache.ErrCacheMiss, "failed writes never reach memory")

	err = cache.Put(ctx, &domain.CachedFileParsed{Checksum: "sum"})
	assert.ErrorIs(t, err, contentcache.ErrCacheWrite)
}

func TestService_BackendErrorIsNotAMiss(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	cache, err := contentcache.NewService(failingBackend{err: boom}, 8, nil)
	require.NoError(t, err)

	_, err = cache.GetByChecksum(context.Background(), "sum")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, contentcache.ErrCacheMiss)
}

type failingBackend struct{ err error }

func (f failingBackend) GetByChecksum(context.Context, string) (*domain.CachedFileParsed, error) {
	return nil, f.err
}

func (f failingBackend) GetByIdentifier(context.Context, string) (*domain.CachedFileParsed, error) {
	return nil, f.err
}

func (f failingBackend) Upsert(context.Context, *domain.CachedFileParsed) error { return f.err }
