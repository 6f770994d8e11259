package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/quota"
)

// OnFileParsed caches the parsed content and advances every active job that
// references the file. A failure on one job does not stop the others; all
// per-job errors are returned joined.
func (s *Service) OnFileParsed(ctx context.Context, evt events.FileParsed) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"object_key", evt.ObjectKey,
		"checksum", evt.Checksum)

	entry, err := domain.NewCachedFileParsed(evt.Checksum, evt.ObjectKey, evt.FileContent)
	if err != nil {
		return fmt.Errorf("%w: %v", events.ErrMalformedMessage, err)
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		return newServiceError("file_parsed", "failed to cache parsed content", err)
	}

	jobs, err := s.jobs.FindActiveByFileIdentifier(ctx, evt.ObjectKey)
	if err != nil {
		return newServiceError("file_parsed", "failed to find jobs for file", err)
	}
	if len(jobs) == 0 {
		log.Debug("no active job references parsed file")
		return nil
	}

	var errs []error
	for _, job := range jobs {
		if err := s.advanceJob(ctx, log.With("job_id", job.ID, "quiz_id", job.QuizID), *job, evt.ObjectKey); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
		}
	}
	return errors.Join(errs...)
}

// advanceJob marks the file parsed on one job and, if that completes the
// job's inputs, dispatches generation.
func (s *Service) advanceJob(ctx context.Context, log *slog.Logger, job domain.QuizGenerationJob, identifier string) error {
	if job.IsTerminal() {
		log.Debug("skipping terminal job", "status", job.Status)
		return nil
	}
	// Duplicate delivery: the first one already did everything below.
	if job.IsFileParsed(identifier) {
		log.Debug("file already parsed for job")
		return nil
	}

	next, err := job.MarkFileAsParsed(identifier)
	if err != nil {
		return err
	}

	if !next.IsReadyForGeneration() {
		if err := s.jobs.Update(ctx, &next); err != nil {
			return newServiceError("file_parsed", "failed to persist job", err)
		}
		progress := next.Progress()
		log.Info("file parsed", "progress", progress.String())
		return nil
	}

	if next, err = next.StartGenerating(); err != nil {
		return err
	}

	request, tier, err := s.assembleGeneration(ctx, next)
	if err != nil {
		return err
	}

	if err := s.quota.CanUseTokensForGeneration(tier, quota.EstimateTokens(request.FilesContents)).Err(); err != nil {
		// The job stays in generating without a dispatched request.
		if updateErr := s.jobs.Update(ctx, &next); updateErr != nil {
			return errors.Join(err, newServiceError("file_parsed", "failed to persist job", updateErr))
		}
		log.Warn("generation denied by token quota", "reason", err.Error())
		return err
	}

	// Publish before persisting: if the write loses a version race the
	// redelivered event publishes again, and the duplicate completion is a
	// no-op on the then terminal job. The reverse order could strand the job.
	if err := s.publisher.Publish(ctx, s.queues.GenerationRequests, request); err != nil {
		return newServiceError("file_parsed", "failed to publish generation request", err)
	}
	if err := s.jobs.Update(ctx, &next); err != nil {
		return newServiceError("file_parsed", "failed to persist job", err)
	}

	log.Info("all files parsed, generation dispatched", "files", len(next.Files))
	return nil
}

// assembleGeneration builds the generation request for a ready job, with the
// file contents in submission order, and returns the owner's tier.
func (s *Service) assembleGeneration(
	ctx context.Context,
	job domain.QuizGenerationJob,
) (*events.GenerationRequest, domain.Tier, error) {
	quiz, err := s.quizzes.GetByID(ctx, job.QuizID)
	if err != nil {
		return nil, "", newServiceError("file_parsed", "failed to load quiz", err)
	}
	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, "", newServiceError("file_parsed", "failed to load user", err)
	}

	contents := make([]json.RawMessage, 0, len(job.Files))
	for _, id := range job.FileIdentifiers() {
		content, err := s.contentFor(ctx, id)
		if err != nil {
			return nil, "", err
		}
		contents = append(contents, content)
	}

	return &events.GenerationRequest{
		Identifier:       quiz.ID,
		QuestionsNumbers: quiz.QuestionsNumbers,
		FilesContents:    contents,
	}, user.Tier, nil
}

// contentFor returns the cached content of a job file. A file satisfied from
// the cache at create time may be cached under another identifier, so a miss
// by identifier falls back to the file's checksum.
func (s *Service) contentFor(ctx context.Context, identifier string) (json.RawMessage, error) {
	entry, err := s.cache.GetByIdentifier(ctx, identifier)
	if err == nil {
		return entry.FileContent, nil
	}
	if !errors.Is(err, contentcache.ErrCacheMiss) {
		return nil, newServiceError("file_parsed", "content cache lookup failed", err)
	}

	stored, err := s.files.GetFile(ctx, identifier)
	if err != nil {
		return nil, newServiceError("file_parsed", fmt.Sprintf("failed to read file %s", identifier), err)
	}
	entry, err = s.cache.GetByChecksum(ctx, stored.Checksum)
	if err != nil {
		return nil, newServiceError("file_parsed", fmt.Sprintf("no cached content for %s", identifier), err)
	}
	return entry.FileContent, nil
}
