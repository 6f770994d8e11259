// Package minio resolves uploaded files held in a MinIO (S3 compatible)
// bucket to the content checksums the parsed content cache is keyed by.
package minio

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/quizgen/internal/config"
	"github.com/phrazzld/quizgen/internal/orchestrator"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"golang.org/x/crypto/blake2b"
)

// fileNameMetadataKey is the user metadata key the upload service stores the
// original file name under.
const fileNameMetadataKey = "Filename"

// FileStorage implements orchestrator.FileStorage over a MinIO bucket.
type FileStorage struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ orchestrator.FileStorage = (*FileStorage)(nil)

// InitClient creates a MinIO client from configuration.
func InitClient(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client init error: %w", err)
	}
	return client, nil
}

// NewFileStorage creates a FileStorage for the bucket.
func NewFileStorage(client *minio.Client, bucket string, logger *slog.Logger) (*FileStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client cannot be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{client: client, bucket: bucket, logger: logger.With("component", "minio_file_storage")}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *FileStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("error creating bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("created bucket", "bucket", s.bucket)
	return nil
}

// BucketName implements orchestrator.FileStorage.
func (s *FileStorage) BucketName() string {
	return s.bucket
}

// GetFile streams the object and returns its BLAKE2b-256 checksum.
// Unknown identifiers return orchestrator.ErrFileNotFound.
func (s *FileStorage) GetFile(ctx context.Context, identifier string) (*orchestrator.StoredFile, error) {
	object, err := s.client.GetObject(ctx, s.bucket, identifier, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(identifier, err)
	}
	defer func() { _ = object.Close() }()

	info, err := object.Stat()
	if err != nil {
		return nil, s.mapError(identifier, err)
	}

	checksum, size, err := checksumOf(object)
	if err != nil {
		return nil, fmt.Errorf("error reading object %s: %w", identifier, err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("computed file checksum",
		"identifier", identifier,
		"size", size,
		"checksum", checksum)

	return &orchestrator.StoredFile{
		Identifier: identifier,
		FileName:   fileNameFor(identifier, info.UserMetadata),
		Checksum:   checksum,
		Size:       size,
	}, nil
}

func (s *FileStorage) mapError(identifier string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", orchestrator.ErrFileNotFound, identifier)
	default:
		return fmt.Errorf("error getting object %s: %w", identifier, err)
	}
}

// checksumOf hashes r with BLAKE2b-256 and returns the hex digest and the
// number of bytes read.
func checksumOf(r io.Reader) (string, int64, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func fileNameFor(identifier string, metadata map[string]string) string {
	if name := metadata[fileNameMetadataKey]; name != "" {
		return name
	}
	return path.Base(identifier)
}
