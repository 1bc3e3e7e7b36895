package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nizami/nizami-backend/internal/llm/llmtest"
)

func TestMemoryStoreTTL(t *testing.T) {
	ms := NewMemoryStore(0)
	defer ms.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ms.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, ms.Set(ctx, "k", []float32{1, 2}, time.Minute))

	v, ok, err := ms.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)

	now = now.Add(2 * time.Minute)
	_, ok, err = ms.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ms.sweep()
	assert.Equal(t, 0, ms.Len())
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("m", "a"), Key("m", "a"))
	assert.NotEqual(t, Key("m", "a"), Key("m", "b"))
	assert.NotEqual(t, Key("m1", "a"), Key("m2", "a"))
}

func TestEmbedderCachesResults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	inner := llmtest.NewEmbedder(3)
	inner.Vectors["article 74"] = []float32{1, 0, 0}

	store := NewMemoryStore(0)
	defer store.Close()
	e := NewEmbedder(inner, store, "text-embedding-3-small", time.Hour, logger)

	for i := 0; i < 3; i++ {
		v, err := e.Embed(context.Background(), "article 74")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, v)
	}
	assert.Equal(t, 1, inner.Calls())
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	return nil, false, errors.New("down")
}

func (failingStore) Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	return errors.New("down")
}

func TestEmbedderSurvivesStoreFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	inner := llmtest.NewEmbedder(2)
	e := NewEmbedder(inner, failingStore{}, "m", 0, logger)

	v, err := e.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, v, 2)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestEmbedderPropagatesEmbedError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	inner := llmtest.NewEmbedder(2)
	inner.Err = errors.New("quota")
	store := NewMemoryStore(0)
	e := NewEmbedder(inner, store, "m", 0, logger)

	_, err := e.Embed(context.Background(), "q")
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}
