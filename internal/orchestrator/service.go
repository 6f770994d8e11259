// Package orchestrator drives quiz generation jobs: it admits create
// requests, fans parse requests out to the parsing workers, fans their
// results back in, and finalizes jobs when the generation worker reports.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/quota"
	"github.com/phrazzld/quizgen/internal/store"
)

// StoredFile describes an uploaded file held by the file storage service.
type StoredFile struct {
	Identifier string
	FileName   string
	Checksum   string
	Size       int64
}

// FileStorage resolves uploaded files to their checksums.
type FileStorage interface {
	// GetFile returns metadata and content checksum for the identifier.
	GetFile(ctx context.Context, identifier string) (*StoredFile, error)
	// BucketName is the bucket parse requests point the parsing workers at.
	BucketName() string
}

// Queues names the outbound queues.
type Queues struct {
	ParseRequests      string
	GenerationRequests string
}

// Dependencies groups the collaborators of the Service.
type Dependencies struct {
	Files      FileStorage
	Quizzes    store.QuizStore
	Users      store.UserStore
	Jobs       store.JobStore
	Cache      contentcache.Cache
	Quota      *quota.Gate
	Publisher  events.Publisher
	Transactor store.Transactor
	Queues     Queues
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Service is the orchestrator. All entry points are safe to re-run for the
// same input: duplicate deliveries either no-op or converge on the same state.
type Service struct {
	files     FileStorage
	quizzes   store.QuizStore
	users     store.UserStore
	jobs      store.JobStore
	cache     contentcache.Cache
	quota     *quota.Gate
	publisher events.Publisher
	tx        store.Transactor
	queues    Queues
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a Service.
// It returns an error if any of the required dependencies are nil.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Files == nil:
		return nil, newServiceError("create_service", "file storage cannot be nil", errNilDependency)
	case deps.Quizzes == nil:
		return nil, newServiceError("create_service", "quiz store cannot be nil", errNilDependency)
	case deps.Users == nil:
		return nil, newServiceError("create_service", "user store cannot be nil", errNilDependency)
	case deps.Jobs == nil:
		return nil, newServiceError("create_service", "job store cannot be nil", errNilDependency)
	case deps.Cache == nil:
		return nil, newServiceError("create_service", "content cache cannot be nil", errNilDependency)
	case deps.Publisher == nil:
		return nil, newServiceError("create_service", "publisher cannot be nil", errNilDependency)
	case deps.Transactor == nil:
		return nil, newServiceError("create_service", "transactor cannot be nil", errNilDependency)
	}

	queues := deps.Queues
	if queues.ParseRequests == "" {
		queues.ParseRequests = events.QueueParseRequests
	}
	if queues.GenerationRequests == "" {
		queues.GenerationRequests = events.QueueGenerationRequests
	}

	gate := deps.Quota
	if gate == nil {
		gate = quota.NewGate(nil)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		files:     deps.Files,
		quizzes:   deps.Quizzes,
		users:     deps.Users,
		jobs:      deps.Jobs,
		cache:     deps.Cache,
		quota:     gate,
		publisher: deps.Publisher,
		tx:        deps.Transactor,
		queues:    queues,
		now:       clock,
		logger:    logger.With("component", "orchestrator"),
	}, nil
}

var errNilDependency = errors.New("nil dependency")

// startOfDay returns midnight UTC of the day containing t.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
