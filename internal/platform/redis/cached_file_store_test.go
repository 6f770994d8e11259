package redis_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
	quizredis "github.com/phrazzld/quizgen/internal/platform/redis"
	"github.com/phrazzld/quizgen/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis returns a client for QUIZGEN_TEST_REDIS_ADDR.
// Tests are skipped when Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := os.Getenv("QUIZGEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUIZGEN_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedFileStore_UpsertIsIdempotent(t *testing.T) {
	client := setupTestRedis(t)
	s := quizredis.NewCachedFileStore(client, nil)
	ctx := context.Background()

	checksum := "sum-" + uuid.NewString()
	identifier := "uploads/" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(ctx, "quizgen:parsed:"+checksum, "quizgen:parsed:id:"+identifier)
	})

	first, err := domain.NewCachedFileParsed(checksum, identifier, json.RawMessage(`{"text":"v1"}`))
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, first))

	second, err := domain.NewCachedFileParsed(checksum, identifier, json.RawMessage(`{"text":"v2"}`))
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, second))
	require.NoError(t, s.Upsert(ctx, second))

	got, err := s.GetByChecksum(ctx, checksum)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"v2"}`, string(got.FileContent))
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt), "created_at is kept from the first insert")

	byID, err := s.GetByIdentifier(ctx, identifier)
	require.NoError(t, err)
	assert.Equal(t, checksum, byID.Checksum)

	keys, err := client.Keys(ctx, "quizgen:parsed:"+checksum+"*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1, "exactly one entry per checksum")
}

func TestCachedFileStore_Miss(t *testing.T) {
	client := setupTestRedis(t)
	s := quizredis.NewCachedFileStore(client, nil)

	_, err := s.GetByChecksum(context.Background(), "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, store.ErrCachedFileNotFound)

	_, err = s.GetByIdentifier(context.Background(), "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, store.ErrCachedFileNotFound)
}

func TestCachedFileStore_RejectsInvalidEntry(t *testing.T) {
	t.Parallel()

	s := quizredis.NewCachedFileStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), nil)
	err := s.Upsert(context.Background(), &domain.CachedFileParsed{Identifier: "a.pdf"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}
