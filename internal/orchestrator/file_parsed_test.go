package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/orchestrator"
	"github.com/phrazzld/quizgen/internal/quota"
	"github.com/phrazzld/quizgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createParsingJob creates a job over fresh uncached files and clears the
// recorded parse requests.
func createParsingJob(t *testing.T, f *fixture, ids ...string) (*orchestrator.CreateJobResult, []orchestrator.StoredFile) {
	t.Helper()
	files := make([]orchestrator.StoredFile, 0, len(ids))
	for _, id := range ids {
		files = append(files, f.addFile(id))
	}

	res, err := f.svc.CreateJob(context.Background(), orchestrator.CreateJobRequest{
		UserID:           f.user.ID,
		Title:            "Chemistry",
		QuestionsNumbers: 4,
		FileIdentifiers:  ids,
	})
	require.NoError(t, err)
	f.pub.Reset()
	return res, files
}

func TestOnFileParsed_PartialProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	res, files := createParsingJob(t, f, "file-a", "file-b")

	require.NoError(t, f.svc.OnFileParsed(context.Background(), parsedEvent(files[0], `{"text":"a"}`)))

	job := f.job(t, res.QuizID)
	assert.Equal(t, domain.JobStatusParsingFiles, job.Status)
	assert.Equal(t, "1/2", job.Progress().String())
	require.NotEmpty(t, job.Events)
	last := job.Events[len(job.Events)-1]
	assert.False(t, last.Error)
	assert.Equal(t, "File file-a parsed successfully", last.Message)

	entry, err := f.cache.GetByChecksum(context.Background(), files[0].Checksum)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"a"}`, string(entry.FileContent))
	assert.Empty(t, f.pub.Messages(events.QueueGenerationRequests))
}

func TestOnFileParsed_LastFileDispatchesGenerationOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	res, files := createParsingJob(t, f, "file-a", "file-b")

	ctx := context.Background()
	require.NoError(t, f.svc.OnFileParsed(ctx, parsedEvent(files[0], `{"text":"a"}`)))
	require.NoError(t, f.svc.OnFileParsed(ctx, parsedEvent(files[1], `{"text":"b"}`)))

	job := f.job(t, res.QuizID)
	assert.Equal(t, domain.JobStatusGenerating, job.Status)

	reqs := decodeGenerationRequests(t, f.pub.Messages(events.QueueGenerationRequests))
	require.Len(t, reqs, 1)
	assert.Equal(t, res.QuizID, reqs[0].Identifier)
	assert.Equal(t, 4, reqs[0].QuestionsNumbers)
	require.Len(t, reqs[0].FilesContents, 2)
	assert.JSONEq(t, `{"text":"a"}`, string(reqs[0].FilesContents[0]))
	assert.JSONEq(t, `{"text":"b"}`, string(reqs[0].FilesContents[1]))

	// Redelivery of the same event changes nothing.
	updates := f.jobs.UpdateCalls.Count
	require.NoError(t, f.svc.OnFileParsed(ctx, parsedEvent(files[1], `{"text":"b"}`)))
	assert.Len(t, f.pub.Messages(events.QueueGenerationRequests), 1)
	assert.Equal(t, updates, f.jobs.UpdateCalls.Count)
	assert.Equal(t, job.Version, f.job(t, res.QuizID).Version)
}

func TestOnFileParsed_NoMatchingJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	file := f.addFile("orphan")

	require.NoError(t, f.svc.OnFileParsed(context.Background(), parsedEvent(file, `{"text":"x"}`)))
	assert.Equal(t, 1, f.cache.Len(), "content is cached even without a job")
}

func TestOnFileParsed_AdvancesEveryJobReferencingFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	shared := f.addFile("shared")
	other := f.addFile("other")

	ctx := context.Background()
	first, err := f.svc.CreateJob(ctx, orchestrator.CreateJobRequest{
		UserID: f.user.ID, QuestionsNumbers: 2, FileIdentifiers: []string{shared.Identifier},
	})
	require.NoError(t, err)
	second, err := f.svc.CreateJob(ctx, orchestrator.CreateJobRequest{
		UserID: f.user.ID, QuestionsNumbers: 2, FileIdentifiers: []string{shared.Identifier, other.Identifier},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.OnFileParsed(ctx, parsedEvent(shared, `{"text":"s"}`)))

	assert.Equal(t, domain.JobStatusGenerating, f.job(t, first.QuizID).Status)
	assert.Equal(t, domain.JobStatusParsingFiles, f.job(t, second.QuizID).Status)
	assert.True(t, f.job(t, second.QuizID).IsFileParsed(shared.Identifier))
	assert.Len(t, f.pub.Messages(events.QueueGenerationRequests), 1)
}

func TestOnFileParsed_ContentCachedUnderAnotherIdentifier(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)

	// file-a has the same bytes as an earlier upload, so it is a cache hit
	// at create time although the entry is keyed by the earlier identifier.
	earlier := f.addFile("earlier")
	entry, err := domain.NewCachedFileParsed(earlier.Checksum, earlier.Identifier, json.RawMessage(`{"text":"dup"}`))
	require.NoError(t, err)
	require.NoError(t, f.cache.Put(context.Background(), entry))
	f.files.Add(orchestrator.StoredFile{Identifier: "file-a", FileName: "a.pdf", Checksum: earlier.Checksum})
	b := f.addFile("file-b")

	res, err := f.svc.CreateJob(context.Background(), orchestrator.CreateJobRequest{
		UserID: f.user.ID, QuestionsNumbers: 2, FileIdentifiers: []string{"file-a", b.Identifier},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.OnFileParsed(context.Background(), parsedEvent(b, `{"text":"b"}`)))

	reqs := decodeGenerationRequests(t, f.pub.Messages(events.QueueGenerationRequests))
	require.Len(t, reqs, 1)
	assert.Equal(t, res.QuizID, reqs[0].Identifier)
	require.Len(t, reqs[0].FilesContents, 2)
	assert.JSONEq(t, `{"text":"dup"}`, string(reqs[0].FilesContents[0]))
}

func TestOnFileParsed_CacheWriteFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	res, files := createParsingJob(t, f, "file-a")
	f.cache.PutFn = func(context.Context, *domain.CachedFileParsed) error { return contentcache.ErrCacheWrite }

	err := f.svc.OnFileParsed(context.Background(), parsedEvent(files[0], `{"text":"a"}`))
	require.ErrorIs(t, err, contentcache.ErrCacheWrite)

	assert.False(t, f.job(t, res.QuizID).IsFileParsed("file-a"))
	assert.Equal(t, 0, f.jobs.UpdateCalls.Count)
}

func TestOnFileParsed_TokenQuotaDenied(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro, withGate(quota.NewGate(limitPolicy(16))))
	res, files := createParsingJob(t, f, "file-a", "file-b")
	evt := parsedEvent(files[1], `{"text":"way past the token limit"}`)

	require.NoError(t, f.svc.OnFileParsed(context.Background(), parsedEvent(files[0], `{"t":1}`)))
	err := f.svc.OnFileParsed(context.Background(), evt)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)

	job := f.job(t, res.QuizID)
	assert.Equal(t, domain.JobStatusGenerating, job.Status)
	assert.Empty(t, f.pub.Messages(events.QueueGenerationRequests))
}

func TestFileParsedHandler_AcknowledgesQuotaDenial(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro, withGate(quota.NewGate(limitPolicy(16))))
	res, files := createParsingJob(t, f, "file-a")

	msg, err := events.NewMessage(events.QueueFileParsed, parsedEvent(files[0], `{"text":"way past the token limit"}`))
	require.NoError(t, err)
	assert.NoError(t, f.svc.FileParsedHandler().HandleMessage(context.Background(), msg))

	assert.Equal(t, domain.JobStatusGenerating, f.job(t, res.QuizID).Status)
	assert.Empty(t, f.pub.Messages(events.QueueGenerationRequests))
}

func TestOnFileParsed_ConcurrentUpdateIsRetried(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	_, files := createParsingJob(t, f, "file-a", "file-b")
	f.jobs.UpdateFn = func(context.Context, *domain.QuizGenerationJob) error { return store.ErrConcurrentUpdate }

	evt := parsedEvent(files[0], `{"text":"a"}`)
	err := f.svc.OnFileParsed(context.Background(), evt)
	require.ErrorIs(t, err, store.ErrConcurrentUpdate)

	msg, err := events.NewMessage(events.QueueFileParsed, evt)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.FileParsedHandler().HandleMessage(context.Background(), msg), store.ErrConcurrentUpdate)
}

func TestOnFileParsed_StaleVersionLeavesStoredJobIntact(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)
	res, files := createParsingJob(t, f, "file-a", "file-b")

	// Another writer bumps the version between read and write.
	stale := f.job(t, res.QuizID)
	bumped := stale
	require.NoError(t, f.jobs.Update(context.Background(), &bumped))
	f.jobs.FindActiveByFileIdentifierFn = func(context.Context, string) ([]*domain.QuizGenerationJob, error) {
		j := stale
		return []*domain.QuizGenerationJob{&j}, nil
	}

	err := f.svc.OnFileParsed(context.Background(), parsedEvent(files[0], `{"text":"a"}`))
	require.ErrorIs(t, err, store.ErrConcurrentUpdate)
	assert.False(t, f.job(t, res.QuizID).IsFileParsed("file-a"))
}

func TestOnFileParsed_MalformedEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.TierPro)

	err := f.svc.OnFileParsed(context.Background(), events.FileParsed{ObjectKey: "x", FileContent: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, events.ErrMalformedMessage)

	msg := &events.Message{Queue: events.QueueFileParsed, Body: json.RawMessage(`not json`)}
	err = f.svc.FileParsedHandler().HandleMessage(context.Background(), msg)
	assert.True(t, errors.Is(err, events.ErrMalformedMessage))
}
