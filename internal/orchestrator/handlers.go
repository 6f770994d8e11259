package orchestrator

import (
	"context"
	"errors"

	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/quota"
	"github.com/phrazzld/quizgen/internal/store"
)

// FileParsedHandler adapts OnFileParsed to a queue consumer.
func (s *Service) FileParsedHandler() events.Handler {
	return events.HandlerFunc(func(ctx context.Context, msg *events.Message) error {
		var evt events.FileParsed
		if err := msg.Decode(&evt); err != nil {
			return err
		}
		return s.settle(ctx, msg, s.OnFileParsed(ctx, evt))
	})
}

// GenerationCompletedHandler adapts OnGenerationCompleted to a queue consumer.
func (s *Service) GenerationCompletedHandler() events.Handler {
	return events.HandlerFunc(func(ctx context.Context, msg *events.Message) error {
		var evt events.GenerationCompleted
		if err := msg.Decode(&evt); err != nil {
			return err
		}
		return s.settle(ctx, msg, s.OnGenerationCompleted(ctx, evt))
	})
}

// settle decides whether a handler error should cause redelivery. Outcomes
// that redelivery cannot change are logged and acknowledged.
func (s *Service) settle(ctx context.Context, msg *events.Message, err error) error {
	if err == nil {
		return nil
	}

	log := logger.FromContextOrDefault(ctx, s.logger).With("queue", msg.Queue, "message_id", msg.ID)
	switch {
	case errors.Is(err, store.ErrConcurrentUpdate):
		log.Info("job changed concurrently, requeueing", "error", err)
		return err
	case errors.Is(err, ErrGenerationFailed):
		log.Info("generation failure recorded", "error", err)
		return nil
	case errors.Is(err, quota.ErrQuotaExceeded):
		log.Warn("generation blocked by quota", "error", err)
		return nil
	case store.IsNotFoundError(err):
		log.Error("referenced entity not found, dropping message", "error", err)
		return nil
	default:
		return err
	}
}
