package orchestrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/store"
)

// OnGenerationCompleted finalizes the job of the quiz named in the event.
// Success stores the questions and completes the job; failure fails the job
// and returns a *GenerationFailedError. Jobs already completed or failed are
// left untouched, so redelivered completions are no-ops.
func (s *Service) OnGenerationCompleted(ctx context.Context, evt events.GenerationCompleted) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"quiz_id", evt.Identifier,
		"success", evt.Success)

	quiz, err := s.quizzes.GetByID(ctx, evt.Identifier)
	if err != nil {
		return newServiceError("generation_completed", "failed to load quiz", err)
	}
	job, err := s.jobs.GetByQuizID(ctx, evt.Identifier)
	if err != nil {
		return newServiceError("generation_completed", "failed to load job", err)
	}
	log = log.With("job_id", job.ID)

	if job.IsTerminal() {
		log.Info("ignoring completion for finished job", "status", job.Status)
		return nil
	}

	if !evt.Success {
		return s.failJob(ctx, *job, evt.Error)
	}

	if err := quiz.PutQuestions(evt.Title, evt.Questions); err != nil {
		log.Warn("rejecting invalid generation result", "error", err)
		return s.failJob(ctx, *job, fmt.Sprintf("invalid generation result: %v", err))
	}

	next, err := job.Complete()
	if err != nil {
		return newServiceError("generation_completed", "failed to complete job", err)
	}

	if err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.quizzes.WithTx(tx).Update(ctx, quiz); err != nil {
			return err
		}
		return s.jobs.WithTx(tx).Update(ctx, &next)
	}); err != nil {
		return newServiceError("generation_completed", "failed to persist completion", err)
	}

	log.Info("quiz generation completed", "questions", len(quiz.Questions))
	return nil
}

func (s *Service) failJob(ctx context.Context, job domain.QuizGenerationJob, reason string) error {
	if reason == "" {
		reason = "quiz generation failed"
	}
	next, err := job.Fail(reason)
	if err != nil {
		return newServiceError("generation_completed", "failed to fail job", err)
	}
	if err := s.jobs.Update(ctx, &next); err != nil {
		return newServiceError("generation_completed", "failed to persist job failure", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Warn("quiz generation failed",
		"job_id", job.ID,
		"quiz_id", job.QuizID,
		"reason", reason)
	return &GenerationFailedError{QuizID: job.QuizID, Reason: reason}
}

// Progress reports the parsing progress and status of the quiz's job.
func (s *Service) Progress(ctx context.Context, quizID uuid.UUID) (domain.JobProgress, error) {
	job, err := s.jobs.GetByQuizID(ctx, quizID)
	if err != nil {
		return domain.JobProgress{}, newServiceError("progress", "failed to load job", err)
	}
	return job.Progress(), nil
}

// UserProgress is Progress restricted to the quiz owner. Jobs belonging to
// other users are reported as not found.
func (s *Service) UserProgress(ctx context.Context, userID, quizID uuid.UUID) (domain.JobProgress, error) {
	job, err := s.jobs.GetByQuizID(ctx, quizID)
	if err != nil {
		return domain.JobProgress{}, newServiceError("progress", "failed to load job", err)
	}
	if job.UserID != userID {
		return domain.JobProgress{}, newServiceError("progress", "failed to load job", store.ErrJobNotFound)
	}
	return job.Progress(), nil
}
