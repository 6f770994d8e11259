package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Common validation errors for CachedFileParsed
var (
	ErrEmptyChecksum    = errors.New("checksum cannot be empty")
	ErrEmptyIdentifier  = errors.New("cached file identifier cannot be empty")
	ErrEmptyFileContent = errors.New("cached file content cannot be empty")
)

// CachedFileParsed holds the extracted content of a file, keyed by the
// checksum of the raw bytes so identical uploads are parsed only once.
type CachedFileParsed struct {
	Checksum    string          `json:"checksum"`
	Identifier  string          `json:"identifier"`
	FileContent json.RawMessage `json:"file_content"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewCachedFileParsed creates a cache entry stamped with the current time.
func NewCachedFileParsed(checksum, identifier string, content json.RawMessage) (*CachedFileParsed, error) {
	now := time.Now().UTC()
	entry := &CachedFileParsed{
		Checksum:    checksum,
		Identifier:  identifier,
		FileContent: content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the cache entry has valid data.
func (c *CachedFileParsed) Validate() error {
	if c.Checksum == "" {
		return ErrEmptyChecksum
	}
	if c.Identifier == "" {
		return ErrEmptyIdentifier
	}
	if len(c.FileContent) == 0 {
		return ErrEmptyFileContent
	}
	if !json.Valid(c.FileContent) {
		return ErrInvalidFormat
	}
	return nil
}
