package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/quota"
)

// CreateJobRequest is a client request to build a quiz from uploaded files.
type CreateJobRequest struct {
	UserID           uuid.UUID
	Title            string
	QuestionsNumbers int
	FileIdentifiers  []string
}

// CreateJobResult identifies the created quiz and job.
type CreateJobResult struct {
	QuizID uuid.UUID
	JobID  uuid.UUID
	Status domain.JobStatus
}

func (r CreateJobRequest) validate() error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("%w: user ID is required", ErrInvalidRequest)
	}
	if r.QuestionsNumbers < domain.MinQuestionsNumbers || r.QuestionsNumbers > domain.MaxQuestionsNumbers {
		return fmt.Errorf("%w: questionsNumbers must be between %d and %d",
			ErrInvalidRequest, domain.MinQuestionsNumbers, domain.MaxQuestionsNumbers)
	}
	if len(r.FileIdentifiers) == 0 {
		return fmt.Errorf("%w: at least one file is required", ErrInvalidRequest)
	}
	for _, id := range r.FileIdentifiers {
		if id == "" {
			return fmt.Errorf("%w: file identifiers cannot be empty", ErrInvalidRequest)
		}
	}
	return nil
}

// resolvedFile is one input file after the cache lookup.
type resolvedFile struct {
	stored  *StoredFile
	content json.RawMessage // nil on cache miss
}

// CreateJob admits the request, creates the quiz and its job, and dispatches
// either one parse request per uncached file or, when every file is cached,
// a single generation request. The job is persisted once, after all
// transitions are applied.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*CreateJobResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", req.UserID)

	if err := req.validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, newServiceError("create_job", "failed to load user", err)
	}

	identifiers := uniqueIdentifiers(req.FileIdentifiers)
	if err := s.admit(ctx, user.Tier, req.UserID, len(identifiers)); err != nil {
		log.Info("quiz creation denied by quota", "reason", err.Error(), "tier", user.Tier)
		return nil, err
	}

	files := make([]resolvedFile, 0, len(identifiers))
	for _, id := range identifiers {
		f, err := s.resolveFile(ctx, id)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	quiz, err := domain.NewQuiz(req.UserID, req.Title, req.QuestionsNumbers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	job, err := domain.NewQuizGenerationJob(req.UserID, quiz.ID, identifiers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	next, err := job.StartParsing()
	if err != nil {
		return nil, newServiceError("create_job", "failed to start parsing", err)
	}

	var parseRequests []events.ParseRequest
	var contents []json.RawMessage
	for _, f := range files {
		if f.content == nil {
			parseRequests = append(parseRequests, events.ParseRequest{
				BucketName: s.files.BucketName(),
				ObjectKey:  f.stored.Identifier,
				FileName:   f.stored.FileName,
				Checksum:   f.stored.Checksum,
			})
			continue
		}
		if next, err = next.MarkFileAsParsed(f.stored.Identifier); err != nil {
			return nil, newServiceError("create_job", "failed to mark cached file", err)
		}
		contents = append(contents, f.content)
	}

	// Every file was cached: generation can be dispatched right away unless
	// the assembled content is over the token quota.
	var generation *events.GenerationRequest
	var tokenErr error
	if next.IsReadyForGeneration() {
		if tokenErr = s.quota.CanUseTokensForGeneration(user.Tier, quota.EstimateTokens(contents)).Err(); tokenErr == nil {
			if next, err = next.StartGenerating(); err != nil {
				return nil, newServiceError("create_job", "failed to start generating", err)
			}
			generation = &events.GenerationRequest{
				Identifier:       quiz.ID,
				QuestionsNumbers: quiz.QuestionsNumbers,
				FilesContents:    contents,
			}
		}
	}

	if err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.quizzes.WithTx(tx).Create(ctx, quiz); err != nil {
			return err
		}
		return s.jobs.WithTx(tx).Create(ctx, &next)
	}); err != nil {
		log.Error("failed to persist quiz and job", "error", err, "quiz_id", quiz.ID)
		return nil, newServiceError("create_job", "failed to persist quiz and job", err)
	}

	log = log.With("quiz_id", quiz.ID, "job_id", next.ID)

	if tokenErr != nil {
		log.Info("generation denied by token quota", "reason", tokenErr.Error())
		return nil, tokenErr
	}

	for _, pr := range parseRequests {
		if err := s.publisher.Publish(ctx, s.queues.ParseRequests, pr); err != nil {
			log.Error("failed to publish parse request", "error", err, "object_key", pr.ObjectKey)
			return nil, newServiceError("create_job", "failed to publish parse request", err)
		}
	}
	if generation != nil {
		if err := s.publisher.Publish(ctx, s.queues.GenerationRequests, generation); err != nil {
			log.Error("failed to publish generation request", "error", err)
			return nil, newServiceError("create_job", "failed to publish generation request", err)
		}
	}

	log.Info("quiz generation job created",
		"status", next.Status,
		"files", len(next.Files),
		"parse_requests", len(parseRequests),
		"generation_dispatched", generation != nil)

	return &CreateJobResult{QuizID: quiz.ID, JobID: next.ID, Status: next.Status}, nil
}

// admit runs the request-time quota checks, returning the first denial.
func (s *Service) admit(ctx context.Context, tier domain.Tier, userID uuid.UUID, fileCount int) error {
	total, err := s.quizzes.CountByUserID(ctx, userID)
	if err != nil {
		return newServiceError("create_job", "failed to count quizzes", err)
	}
	if err := s.quota.CanCreateQuiz(tier, total).Err(); err != nil {
		return err
	}

	today, err := s.quizzes.CountCreatedSince(ctx, userID, startOfDay(s.now()))
	if err != nil {
		return newServiceError("create_job", "failed to count today's quizzes", err)
	}
	if err := s.quota.CanGenerateToday(tier, today).Err(); err != nil {
		return err
	}

	return s.quota.CanUseFilesForGeneration(tier, fileCount).Err()
}

// resolveFile looks up the stored file and its cached content, if any.
func (s *Service) resolveFile(ctx context.Context, identifier string) (resolvedFile, error) {
	stored, err := s.files.GetFile(ctx, identifier)
	if errors.Is(err, ErrFileNotFound) {
		return resolvedFile{}, fmt.Errorf("%w: unknown file %s", ErrInvalidRequest, identifier)
	}
	if err != nil {
		return resolvedFile{}, newServiceError("create_job",
			fmt.Sprintf("failed to read file %s", identifier), err)
	}

	cached, err := s.cache.GetByChecksum(ctx, stored.Checksum)
	switch {
	case err == nil:
		return resolvedFile{stored: stored, content: cached.FileContent}, nil
	case errors.Is(err, contentcache.ErrCacheMiss):
		return resolvedFile{stored: stored}, nil
	default:
		return resolvedFile{}, newServiceError("create_job", "content cache lookup failed", err)
	}
}

func uniqueIdentifiers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
