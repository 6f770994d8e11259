package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/store"
)

const cachedFileColumns = `checksum, identifier, file_content, created_at, updated_at`

// PostgresCachedFileStore implements store.CachedFileStore on the
// cached_files_parsed table.
type PostgresCachedFileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCachedFileStore creates a new PostgreSQL implementation of the CachedFileStore interface.
func NewPostgresCachedFileStore(db store.DBTX, logger *slog.Logger) *PostgresCachedFileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCachedFileStore{
		db:     db,
		logger: logger.With(slog.String("component", "cached_file_store")),
	}
}

var _ store.CachedFileStore = (*PostgresCachedFileStore)(nil)

// GetByChecksum implements store.CachedFileStore.GetByChecksum
func (s *PostgresCachedFileStore) GetByChecksum(ctx context.Context, checksum string) (*domain.CachedFileParsed, error) {
	query := `SELECT ` + cachedFileColumns + ` FROM cached_files_parsed WHERE checksum = $1`
	return s.getOne(ctx, query, checksum)
}

// GetByIdentifier implements store.CachedFileStore.GetByIdentifier
// The identifier is not unique over time; the most recently written entry wins.
func (s *PostgresCachedFileStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.CachedFileParsed, error) {
	query := `
		SELECT ` + cachedFileColumns + `
		FROM cached_files_parsed
		WHERE identifier = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return s.getOne(ctx, query, identifier)
}

// Upsert implements store.CachedFileStore.Upsert
func (s *PostgresCachedFileStore) Upsert(ctx context.Context, entry *domain.CachedFileParsed) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO cached_files_parsed (` + cachedFileColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (checksum) DO UPDATE
		SET identifier = EXCLUDED.identifier,
			file_content = EXCLUDED.file_content,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Checksum, entry.Identifier, []byte(entry.FileContent), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		log.Error("failed to upsert cached file",
			slog.String("error", err.Error()),
			slog.String("checksum", entry.Checksum),
			slog.String("identifier", entry.Identifier))
		return MapError(err, nil)
	}

	log.Debug("cached file upserted",
		slog.String("checksum", entry.Checksum),
		slog.String("identifier", entry.Identifier))
	return nil
}

func (s *PostgresCachedFileStore) getOne(ctx context.Context, query string, arg string) (*domain.CachedFileParsed, error) {
	var (
		entry   domain.CachedFileParsed
		content []byte
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&entry.Checksum, &entry.Identifier, &content, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, MapError(err, store.ErrCachedFileNotFound)
	}
	entry.FileContent = content
	return &entry, nil
}
