package orchestrator_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/mocks"
	"github.com/phrazzld/quizgen/internal/orchestrator"
	"github.com/phrazzld/quizgen/internal/quota"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *orchestrator.Service
	files   *mocks.MockFileStorage
	quizzes *mocks.MockQuizStore
	users   *mocks.MockUserStore
	jobs    *mocks.MockJobStore
	cache   *mocks.MockCache
	tx      *mocks.MockTransactor
	pub     *events.InMemoryPublisher
	user    domain.User
}

type fixtureOption func(*orchestrator.Dependencies)

func withGate(g *quota.Gate) fixtureOption {
	return func(d *orchestrator.Dependencies) { d.Quota = g }
}

func newFixture(t *testing.T, tier domain.Tier, opts ...fixtureOption) *fixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	f := &fixture{
		files:   mocks.NewMockFileStorage(),
		quizzes: mocks.NewMockQuizStore(),
		jobs:    mocks.NewMockJobStore(),
		cache:   mocks.NewMockCache(),
		tx:      &mocks.MockTransactor{},
		pub:     events.NewInMemoryPublisher(logger),
		user:    domain.User{ID: uuid.New(), Email: "owner@example.com", Tier: tier},
	}
	f.users = mocks.NewMockUserStore(f.user)

	deps := orchestrator.Dependencies{
		Files:      f.files,
		Quizzes:    f.quizzes,
		Users:      f.users,
		Jobs:       f.jobs,
		Cache:      f.cache,
		Publisher:  f.pub,
		Transactor: f.tx,
		Clock:      func() time.Time { return testNow },
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	svc, err := orchestrator.NewService(deps)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// addFile registers an uploaded file whose checksum is derived from its name.
func (f *fixture) addFile(identifier string) orchestrator.StoredFile {
	file := orchestrator.StoredFile{
		Identifier: identifier,
		FileName:   identifier + ".pdf",
		Checksum:   "sum-" + identifier,
		Size:       1024,
	}
	f.files.Add(file)
	return file
}

// addCachedFile registers an uploaded file whose parsed content is cached.
func (f *fixture) addCachedFile(t *testing.T, identifier, content string) orchestrator.StoredFile {
	t.Helper()
	file := f.addFile(identifier)
	entry, err := domain.NewCachedFileParsed(file.Checksum, identifier, json.RawMessage(content))
	require.NoError(t, err)
	require.NoError(t, f.cache.Put(context.Background(), entry))
	return file
}

func (f *fixture) job(t *testing.T, quizID uuid.UUID) domain.QuizGenerationJob {
	t.Helper()
	job, err := f.jobs.GetByQuizID(context.Background(), quizID)
	require.NoError(t, err)
	return *job
}

func parsedEvent(file orchestrator.StoredFile, content string) events.FileParsed {
	return events.FileParsed{
		Checksum:    file.Checksum,
		FileName:    file.FileName,
		ObjectKey:   file.Identifier,
		FileContent: json.RawMessage(content),
	}
}

func decodeGenerationRequests(t *testing.T, msgs []*events.Message) []events.GenerationRequest {
	t.Helper()
	out := make([]events.GenerationRequest, 0, len(msgs))
	for _, msg := range msgs {
		var req events.GenerationRequest
		require.NoError(t, msg.Decode(&req))
		out = append(out, req)
	}
	return out
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Q: "What is 2+2?", Answers: []domain.Answer{{A: "4", C: true}, {A: "5"}}},
		{Q: "Capital of France?", Answers: []domain.Answer{{A: "Paris", C: true}, {A: "Rome"}, {A: "Oslo"}}},
	}
}

func limitPolicy(maxTokens int) quota.PolicyFunc {
	return func(domain.Tier) domain.SubscriptionPolicy {
		return domain.SubscriptionPolicy{MaxInputTokens: &maxTokens}
	}
}
