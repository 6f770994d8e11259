package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/generation"
	"github.com/phrazzld/quizgen/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftQuiz() *domain.Quiz {
	return &domain.Quiz{
		Title: "Photosynthesis",
		Questions: []domain.Question{
			{Q: "What do plants absorb?", Answers: []domain.Answer{{A: "CO2", C: true}, {A: "Helium"}, {A: "Neon"}}},
		},
	}
}

func request() generation.Request {
	return generation.Request{
		FileContents:     []json.RawMessage{json.RawMessage(`{"text":"leaves"}`)},
		QuestionsNumbers: 1,
	}
}

func newRunner(t *testing.T, agent generation.Agent, opts ...generation.RunnerOption) *generation.Runner {
	t.Helper()
	opts = append([]generation.RunnerOption{generation.WithRand(rand.New(rand.NewSource(1)))}, opts...)
	r, err := generation.NewRunner(agent, opts...)
	require.NoError(t, err)
	return r
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	retried  []int
	stages   []generation.Stage
	finished []error
	attempts int
}

func (o *recordingObserver) AttemptStarted(attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, attempt)
}

func (o *recordingObserver) StageFinished(stage generation.Stage, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) Retried(attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retried = append(o.retried, attempt)
}

func (o *recordingObserver) Finished(attempts int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = attempts
	o.finished = append(o.finished, err)
}

func TestNewRunner_NilAgent(t *testing.T) {
	t.Parallel()
	_, err := generation.NewRunner(nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestRun_GenerationAlwaysFails(t *testing.T) {
	t.Parallel()
	agentErr := errors.New("unparsable model output")
	agent := &mocks.MockAgent{Tries: 3, Err: agentErr}

	quiz, err := newRunner(t, agent).Run(context.Background(), request())
	require.Error(t, err)
	assert.Nil(t, quiz)
	assert.ErrorIs(t, err, agentErr)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)

	assert.Equal(t, 3, agent.GenerateQuizCount())
	assert.Equal(t, 0, agent.SafetyContentCheckCount())
}

func TestRun_SafetyCheckAlwaysRejects(t *testing.T) {
	t.Parallel()
	agent := mocks.NewMockAgentWithQuiz(draftQuiz(), 3)
	agent.Report = &generation.SafetyReport{IsOffensive: true, EducationalScore: 10}

	_, err := newRunner(t, agent).Run(context.Background(), request())
	require.ErrorIs(t, err, generation.ErrSafetyCheckFailed)

	var safetyErr *generation.SafetyCheckError
	require.ErrorAs(t, err, &safetyErr)
	assert.True(t, safetyErr.IsOffensive)
	assert.Equal(t, 10, safetyErr.EducationalScore)

	assert.Equal(t, 3, agent.GenerateQuizCount())
	assert.Equal(t, 3, agent.SafetyContentCheckCount())
}

func TestRun_EducationalScoreThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score  int
		wantOK bool
	}{
		{score: 49, wantOK: false},
		{score: 50, wantOK: true},
		{score: 95, wantOK: true},
	}
	for _, tc := range tests {
		agent := mocks.NewMockAgentWithQuiz(draftQuiz(), 1)
		agent.Report = &generation.SafetyReport{EducationalScore: tc.score}

		quiz, err := newRunner(t, agent).Run(context.Background(), request())
		if tc.wantOK {
			assert.NoError(t, err, "score %d", tc.score)
			assert.NotNil(t, quiz)
		} else {
			assert.ErrorIs(t, err, generation.ErrSafetyCheckFailed, "score %d", tc.score)
		}
	}
}

func TestRun_SafetyCheckErrorIsRetried(t *testing.T) {
	t.Parallel()
	calls := 0
	agent := mocks.NewMockAgentWithQuiz(draftQuiz(), 2)
	agent.SafetyContentCheckFn = func(context.Context, *domain.Quiz) (*generation.SafetyReport, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("safety model unavailable")
		}
		return &generation.SafetyReport{EducationalScore: 80}, nil
	}

	quiz, err := newRunner(t, agent).Run(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis", quiz.Title)
	assert.Equal(t, 2, agent.GenerateQuizCount())
}

func TestRun_SucceedsAfterRetry(t *testing.T) {
	t.Parallel()
	agent := &mocks.MockAgent{Tries: 3}
	agent.GenerateQuizFn = func(context.Context, []json.RawMessage, int) (*domain.Quiz, error) {
		if agent.GenerateQuizCount() < 2 {
			return nil, generation.ErrInvalidResponse
		}
		return draftQuiz(), nil
	}
	observer := &recordingObserver{}

	quiz, err := newRunner(t, agent, generation.WithObserver(observer)).Run(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.ElementsMatch(t, draftQuiz().Questions[0].Answers, quiz.Questions[0].Answers)

	assert.Equal(t, []int{1, 2}, observer.started)
	assert.Equal(t, []int{2}, observer.retried)
	assert.Equal(t, []generation.Stage{
		generation.StageGenerate,
		generation.StageGenerate,
		generation.StageSafetyCheck,
	}, observer.stages)
	assert.Equal(t, 2, observer.attempts)
	assert.Equal(t, []error{nil}, observer.finished)
}

func TestRun_NilQuizIsRetried(t *testing.T) {
	t.Parallel()
	agent := &mocks.MockAgent{Tries: 2}

	_, err := newRunner(t, agent).Run(context.Background(), request())
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	assert.Equal(t, 2, agent.GenerateQuizCount())
	assert.Equal(t, 0, agent.SafetyContentCheckCount())
}

func TestRun_NoAttempts(t *testing.T) {
	t.Parallel()
	agent := &mocks.MockAgent{Tries: 0}

	_, err := newRunner(t, agent).Run(context.Background(), request())
	assert.ErrorIs(t, err, generation.ErrMaxGenerationAttempts)
	assert.Equal(t, 0, agent.GenerateQuizCount())
}

func TestRun_AttemptTimeout(t *testing.T) {
	t.Parallel()
	agent := &mocks.MockAgent{Tries: 2}
	agent.GenerateQuizFn = func(ctx context.Context, _ []json.RawMessage, _ int) (*domain.Quiz, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, err := newRunner(t, agent, generation.WithAttemptTimeout(20*time.Millisecond)).
		Run(context.Background(), request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, agent.GenerateQuizCount())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_ParentCancellationStopsLoop(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	agent := &mocks.MockAgent{Tries: 5}
	agent.GenerateQuizFn = func(context.Context, []json.RawMessage, int) (*domain.Quiz, error) {
		cancel()
		return nil, errors.New("interrupted")
	}

	_, err := newRunner(t, agent).Run(ctx, request())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, agent.GenerateQuizCount())
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", generation.ErrorKind(nil))
	assert.Equal(t, "safety_check", generation.ErrorKind(&generation.SafetyCheckError{EducationalScore: 1}))
	assert.Equal(t, "invalid_response", generation.ErrorKind(generation.ErrInvalidResponse))
	assert.Equal(t, "timeout", generation.ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "canceled", generation.ErrorKind(context.Canceled))
	assert.Equal(t, "max_attempts", generation.ErrorKind(generation.ErrMaxGenerationAttempts))
	assert.Equal(t, "generation", generation.ErrorKind(errors.New("boom")))
}
