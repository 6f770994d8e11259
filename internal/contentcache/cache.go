// Package contentcache deduplicates parsing work by remembering the extracted
// content of every file checksum that has been parsed.
package contentcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrCacheMiss is returned when no content is cached for the key.
	ErrCacheMiss = errors.New("content cache miss")

	// ErrCacheWrite is returned when the durable backend rejects a write.
	ErrCacheWrite = errors.New("content cache write failed")

	// ErrNilBackend is returned when the service is constructed without a backend.
	ErrNilBackend = errors.New("content cache backend cannot be nil")
)

var lookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quizgen_content_cache_lookups_total",
		Help: "Content cache lookups by key kind and result (memory, backend, miss).",
	},
	[]string{"key", "result"},
)

// Cache is the contract the orchestrator depends on.
type Cache interface {
	GetByChecksum(ctx context.Context, checksum string) (*domain.CachedFileParsed, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.CachedFileParsed, error)
	Put(ctx context.Context, entry *domain.CachedFileParsed) error
}

// Service is a read-through cache: an in-process LRU in front of a durable
// store. The LRU only bounds memory; entries are never evicted from the backend.
type Service struct {
	backend      store.CachedFileStore
	byChecksum   *lru.Cache[string, domain.CachedFileParsed]
	byIdentifier *lru.Cache[string, string]
	logger       *slog.Logger
}

var _ Cache = (*Service)(nil)

// NewService creates a cache over backend. A size of zero disables the
// in-process front.
func NewService(backend store.CachedFileStore, size int, logger *slog.Logger) (*Service, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		backend: backend,
		logger:  logger.With("component", "content_cache"),
	}
	if size > 0 {
		var err error
		if s.byChecksum, err = lru.New[string, domain.CachedFileParsed](size); err != nil {
			return nil, fmt.Errorf("create checksum lru: %w", err)
		}
		if s.byIdentifier, err = lru.New[string, string](size); err != nil {
			return nil, fmt.Errorf("create identifier lru: %w", err)
		}
	}
	return s, nil
}

// GetByChecksum returns the cached content for checksum or ErrCacheMiss.
func (s *Service) GetByChecksum(ctx context.Context, checksum string) (*domain.CachedFileParsed, error) {
	if entry, ok := s.memoryByChecksum(checksum); ok {
		lookupsTotal.WithLabelValues("checksum", "memory").Inc()
		return entry, nil
	}

	entry, err := s.backend.GetByChecksum(ctx, checksum)
	if err != nil {
		return nil, s.lookupError("checksum", checksum, err)
	}
	lookupsTotal.WithLabelValues("checksum", "backend").Inc()
	s.remember(entry)
	return entry, nil
}

// GetByIdentifier returns the content most recently cached under the file
// identifier or ErrCacheMiss.
func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*domain.CachedFileParsed, error) {
	if s.byIdentifier != nil {
		if checksum, ok := s.byIdentifier.Get(identifier); ok {
			if entry, ok := s.memoryByChecksum(checksum); ok && entry.Identifier == identifier {
				lookupsTotal.WithLabelValues("identifier", "memory").Inc()
				return entry, nil
			}
		}
	}

	entry, err := s.backend.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, s.lookupError("identifier", identifier, err)
	}
	lookupsTotal.WithLabelValues("identifier", "backend").Inc()
	s.remember(entry)
	return entry, nil
}

// Put upserts the entry keyed by checksum. The backend is written first;
// memory is only refreshed after the write succeeded.
func (s *Service) Put(ctx context.Context, entry *domain.CachedFileParsed) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if entry == nil {
		return fmt.Errorf("%w: nil entry", ErrCacheWrite)
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if err := s.backend.Upsert(ctx, entry); err != nil {
		log.Error("content cache write failed",
			"error", err,
			"checksum", entry.Checksum,
			"identifier", entry.Identifier)
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	if s.byChecksum != nil {
		if previous, ok := s.byChecksum.Peek(entry.Checksum); ok && previous.Identifier != entry.Identifier {
			s.byIdentifier.Remove(previous.Identifier)
		}
	}
	s.remember(entry)

	log.Debug("content cached", "checksum", entry.Checksum, "identifier", entry.Identifier)
	return nil
}

func (s *Service) memoryByChecksum(checksum string) (*domain.CachedFileParsed, bool) {
	if s.byChecksum == nil {
		return nil, false
	}
	entry, ok := s.byChecksum.Get(checksum)
	if !ok {
		return nil, false
	}
	return &entry, true
}

func (s *Service) remember(entry *domain.CachedFileParsed) {
	if s.byChecksum == nil {
		return
	}
	s.byChecksum.Add(entry.Checksum, *entry)
	s.byIdentifier.Add(entry.Identifier, entry.Checksum)
}

func (s *Service) lookupError(key, value string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		lookupsTotal.WithLabelValues(key, "miss").Inc()
		return fmt.Errorf("%w: %s %s", ErrCacheMiss, key, value)
	}
	return fmt.Errorf("content cache lookup by %s: %w", key, err)
}
