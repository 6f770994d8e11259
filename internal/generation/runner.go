package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/platform/logger"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAttemptTimeout bounds each attempt, both stages included. Zero
// disables the per-attempt deadline.
func WithAttemptTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.attemptTimeout = d }
}

// WithRand sets the source used to shuffle answers.
func WithRand(rng *rand.Rand) RunnerOption {
	return func(r *Runner) { r.rng = rng }
}

// WithObserver sets the attempt observer.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// WithLogger sets the fallback logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// Runner drives an Agent through at most MaxTry attempts per request.
// It is safe for concurrent use.
type Runner struct {
	agent          Agent
	attemptTimeout time.Duration
	observer       Observer
	logger         *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRunner creates a Runner around the agent.
func NewRunner(agent Agent, opts ...RunnerOption) (*Runner, error) {
	if agent == nil {
		return nil, fmt.Errorf("%w: agent cannot be nil", ErrInvalidConfig)
	}

	r := &Runner{
		agent:    agent,
		observer: NopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.observer == nil {
		r.observer = NopObserver{}
	}
	r.logger = r.logger.With("component", "generation_runner")
	return r, nil
}

// Run produces a quiz for the request. Failed drafts and drafts rejected by
// the safety check are retried until the agent's MaxTry is spent; the error
// of the last attempt is returned on exhaustion. Cancelling ctx stops the
// loop between attempts and aborts the attempt in flight.
func (r *Runner) Run(ctx context.Context, req Request) (*domain.Quiz, error) {
	log := logger.FromContextOrDefault(ctx, r.logger).With("questions_numbers", req.QuestionsNumbers)
	maxTry := r.agent.MaxTry()

	var lastErr error
	attempts := 0
	for attempts < maxTry {
		if err := ctx.Err(); err != nil {
			r.observer.Finished(attempts, err)
			return nil, fmt.Errorf("quiz generation aborted after %d attempts: %w", attempts, err)
		}

		attempts++
		if attempts > 1 {
			r.observer.Retried(attempts)
		}
		r.observer.AttemptStarted(attempts)

		quiz, err := r.attempt(ctx, req)
		if err == nil {
			quiz.Questions = r.shuffle(quiz.Questions)
			r.observer.Finished(attempts, nil)
			log.Info("quiz generated", "attempts", attempts, "questions", len(quiz.Questions))
			return quiz, nil
		}

		lastErr = err
		log.Warn("generation attempt failed",
			"attempt", attempts,
			"max_try", maxTry,
			"error_kind", ErrorKind(err),
			"error", err)
	}

	if lastErr == nil {
		lastErr = ErrMaxGenerationAttempts
	}
	r.observer.Finished(attempts, lastErr)
	return nil, fmt.Errorf("quiz generation failed after %d attempts: %w", attempts, lastErr)
}

// attempt runs one generate + safety check round under the attempt deadline.
func (r *Runner) attempt(ctx context.Context, req Request) (*domain.Quiz, error) {
	if r.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()
	}

	start := time.Now()
	quiz, err := r.agent.GenerateQuiz(ctx, req.FileContents, req.QuestionsNumbers)
	if err == nil && quiz == nil {
		err = fmt.Errorf("%w: agent returned no quiz", ErrInvalidResponse)
	}
	r.observer.StageFinished(StageGenerate, time.Since(start), err)
	if err != nil {
		if !errors.Is(err, ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		return nil, err
	}

	start = time.Now()
	report, err := r.agent.SafetyContentCheck(ctx, quiz)
	if err == nil && report == nil {
		err = fmt.Errorf("%w: agent returned no safety report", ErrInvalidResponse)
	}
	if err == nil && !report.Passed() {
		err = &SafetyCheckError{IsOffensive: report.IsOffensive, EducationalScore: report.EducationalScore}
	}
	r.observer.StageFinished(StageSafetyCheck, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return quiz, nil
}

func (r *Runner) shuffle(questions []domain.Question) []domain.Question {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return ShuffleAnswers(questions, r.rng)
}
