// Package redis provides a Redis-backed implementation of the parsed content
// cache's durable store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	entryKeyPrefix = "quizgen:parsed:"
	indexKeyPrefix = "quizgen:parsed:id:"
)

// Hash fields of a cached entry.
const (
	fieldIdentifier = "identifier"
	fieldContent    = "file_content"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)

// CachedFileStore implements store.CachedFileStore with one hash per checksum
// and a string key mapping each identifier to its latest checksum. Keys never
// expire.
type CachedFileStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewCachedFileStore creates a store over the given client.
func NewCachedFileStore(client redis.UniversalClient, logger *slog.Logger) *CachedFileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFileStore{
		client: client,
		logger: logger.With(slog.String("component", "redis_cached_file_store")),
	}
}

var _ store.CachedFileStore = (*CachedFileStore)(nil)

func entryKey(checksum string) string   { return entryKeyPrefix + checksum }
func indexKey(identifier string) string { return indexKeyPrefix + identifier }

// GetByChecksum implements store.CachedFileStore.GetByChecksum
func (s *CachedFileStore) GetByChecksum(ctx context.Context, checksum string) (*domain.CachedFileParsed, error) {
	if checksum == "" {
		return nil, store.ErrCachedFileNotFound
	}

	fields, err := s.client.HGetAll(ctx, entryKey(checksum)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrCachedFileNotFound
	}
	return decodeEntry(checksum, fields)
}

// GetByIdentifier implements store.CachedFileStore.GetByIdentifier
func (s *CachedFileStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.CachedFileParsed, error) {
	if identifier == "" {
		return nil, store.ErrCachedFileNotFound
	}

	checksum, err := s.client.Get(ctx, indexKey(identifier)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrCachedFileNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := s.GetByChecksum(ctx, checksum)
	if err != nil {
		return nil, err
	}
	// The checksum was re-uploaded under another identifier since.
	if entry.Identifier != identifier {
		return nil, store.ErrCachedFileNotFound
	}
	return entry, nil
}

// Upsert implements store.CachedFileStore.Upsert
// created_at is only written on first insert.
func (s *CachedFileStore) Upsert(ctx context.Context, entry *domain.CachedFileParsed) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	key := entryKey(entry.Checksum)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldCreatedAt, entry.CreatedAt.UTC().Format(time.RFC3339Nano))
		pipe.HSet(ctx, key,
			fieldIdentifier, entry.Identifier,
			fieldContent, string(entry.FileContent),
			fieldUpdatedAt, entry.UpdatedAt.UTC().Format(time.RFC3339Nano))
		pipe.Set(ctx, indexKey(entry.Identifier), entry.Checksum, 0)
		return nil
	})
	if err != nil {
		log.Error("failed to upsert cached file",
			slog.String("error", err.Error()),
			slog.String("checksum", entry.Checksum))
		return fmt.Errorf("redis upsert: %w", err)
	}
	return nil
}

func decodeEntry(checksum string, fields map[string]string) (*domain.CachedFileParsed, error) {
	entry := &domain.CachedFileParsed{
		Checksum:    checksum,
		Identifier:  fields[fieldIdentifier],
		FileContent: []byte(fields[fieldContent]),
	}

	var err error
	if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldCreatedAt, err)
	}
	if entry.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldUpdatedAt, err)
	}
	return entry, nil
}
