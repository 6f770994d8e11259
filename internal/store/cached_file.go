package store

import (
	"context"

	"github.com/phrazzld/quizgen/internal/domain"
)

// CachedFileStore is the durable backend of the parsed content cache.
type CachedFileStore interface {
	// GetByChecksum returns the entry for the checksum.
	// Returns ErrCachedFileNotFound if absent.
	GetByChecksum(ctx context.Context, checksum string) (*domain.CachedFileParsed, error)

	// GetByIdentifier returns the entry most recently stored for the identifier.
	// Returns ErrCachedFileNotFound if absent.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.CachedFileParsed, error)

	// Upsert inserts the entry or, if the checksum exists, replaces its
	// identifier, content and updated_at. Calling it twice with the same
	// entry leaves a single row.
	Upsert(ctx context.Context, entry *domain.CachedFileParsed) error
}
