package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/generation"
	"github.com/phrazzld/quizgen/internal/platform/logger"
)

// Generator produces a quiz for a request. *generation.Runner implements it.
type Generator interface {
	Run(ctx context.Context, req generation.Request) (*domain.Quiz, error)
}

// QuizGenerationTask consumes generation requests and publishes their
// outcome, success or failure, to the completion queue.
type QuizGenerationTask struct {
	generator       Generator
	publisher       events.Publisher
	completionQueue string
	logger          *slog.Logger
}

var _ events.Handler = (*QuizGenerationTask)(nil)

// NewQuizGenerationTask creates a QuizGenerationTask. An empty queue name
// selects events.QueueGenerationCompleted.
func NewQuizGenerationTask(
	generator Generator,
	publisher events.Publisher,
	completionQueue string,
	logger *slog.Logger,
) (*QuizGenerationTask, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}
	if completionQueue == "" {
		completionQueue = events.QueueGenerationCompleted
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizGenerationTask{
		generator:       generator,
		publisher:       publisher,
		completionQueue: completionQueue,
		logger:          logger.With("component", "quiz_generation_task"),
	}, nil
}

// HandleMessage implements events.Handler. Generation failures are reported
// as failure events and acknowledged; only publish errors and shutdown cause
// redelivery.
func (t *QuizGenerationTask) HandleMessage(ctx context.Context, msg *events.Message) error {
	var req events.GenerationRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		return fmt.Errorf("%w: %s: %v", events.ErrMalformedMessage, msg.Queue, err)
	}
	if req.Identifier == uuid.Nil {
		return fmt.Errorf("%w: %s: identifier is required", events.ErrMalformedMessage, msg.Queue)
	}

	log := logger.FromContextOrDefault(ctx, t.logger).With("quiz_id", req.Identifier)
	ctx = logger.WithLogger(ctx, log)

	// The quiz is known, so a request that can never succeed fails the job
	// instead of disappearing.
	if err := req.Validate(); err != nil {
		log.Warn("rejecting invalid generation request", "error", err)
		return t.publish(ctx, events.NewGenerationFailed(req.Identifier,
			fmt.Sprintf("invalid generation request: %v", err)))
	}

	quiz, err := t.generator.Run(ctx, generation.Request{
		FileContents:     req.FilesContents,
		QuestionsNumbers: req.QuestionsNumbers,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down: leave the request for another worker.
			return fmt.Errorf("generation interrupted: %w", ctx.Err())
		}
		log.Error("quiz generation failed", "error", err, "error_kind", generation.ErrorKind(err))
		return t.publish(ctx, events.NewGenerationFailed(req.Identifier, err.Error()))
	}

	log.Info("publishing generated quiz", "questions", len(quiz.Questions))
	return t.publish(ctx, events.NewGenerationSucceeded(req.Identifier, quiz.Title, quiz.Questions))
}

func (t *QuizGenerationTask) publish(ctx context.Context, evt events.GenerationCompleted) error {
	if err := t.publisher.Publish(ctx, t.completionQueue, evt); err != nil {
		return fmt.Errorf("failed to publish generation result: %w", err)
	}
	return nil
}
