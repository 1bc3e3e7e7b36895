package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nizami/nizami-backend/internal/llm/llmtest"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository/memory"
	"github.com/nizami/nizami-backend/internal/vectorstore"
)

const query = "what does article 74 say"

type spyStore struct {
	*vectorstore.MemoryStore
	globalK []int
}

func (s *spyStore) SearchGlobal(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	s.globalK = append(s.globalK, k)
	return s.MemoryStore.SearchGlobal(ctx, embedding, k)
}

// seed indexes distractors of document 99 close to the query and the
// chunks of documents 1 and 2 far from it
func seed(distractors int) *spyStore {
	store := &spyStore{MemoryStore: vectorstore.NewMemoryStore()}
	for i := 0; i < distractors; i++ {
		store.Add(models.Chunk{ID: fmt.Sprintf("noise-%d", i), DocumentID: 99, Language: "en"}, []float32{1, 0.001 * float32(i)})
	}
	store.Add(models.Chunk{ID: "a-1", DocumentID: 1, Language: "ar", Text: "المادة 74"}, []float32{0.1, 1})
	store.Add(models.Chunk{ID: "a-2", DocumentID: 1, Language: "ar"}, []float32{0, 1})
	store.Add(models.Chunk{ID: "b-1", DocumentID: 2, Language: "en", Text: "Article 74"}, []float32{0.05, 1})
	return store
}

func newRetriever(store ChunkStore) (*Retriever, *llmtest.Embedder) {
	logger, _ := test.NewNullLogger()
	embedder := llmtest.NewEmbedder(2)
	embedder.Vectors[query] = []float32{1, 0}
	return NewRetriever(embedder, store, DefaultConfig(), logger), embedder
}

func ids(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func TestRetrieveNoCandidates(t *testing.T) {
	store := seed(5)
	r, embedder := newRetriever(store)

	chunks, err := r.Retrieve(context.Background(), query, nil, 8)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = r.Retrieve(context.Background(), query, []int64{}, 8)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.Zero(t, embedder.Calls())
	filtered, global := store.Searches()
	assert.Zero(t, filtered)
	assert.Zero(t, global)
}

func TestFilterFirstFindsBuriedDocuments(t *testing.T) {
	store := seed(150)
	r, _ := newRetriever(store)

	chunks, err := r.Retrieve(context.Background(), query, []int64{1, 2}, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "b-1", "a-2"}, ids(chunks))

	top, err := store.MemoryStore.SearchGlobal(context.Background(), []float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Empty(t, FilterByDocuments(top, []int64{1, 2}, 8))
}

func TestFallbackWhenFilterFails(t *testing.T) {
	store := seed(10)
	store.FilterErr = vectorstore.ErrFilterUnsupported
	r, _ := newRetriever(store)

	chunks, err := r.Retrieve(context.Background(), query, []int64{1, 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "b-1"}, ids(chunks))
	assert.Equal(t, []int{100}, store.globalK)
}

func TestFallbackWindowScalesWithK(t *testing.T) {
	store := seed(0)
	store.FilterErr = errors.New("no prefilter")
	r, _ := newRetriever(store)

	_, err := r.Retrieve(context.Background(), query, []int64{1}, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{160}, store.globalK)
}

func TestFallbackMayReturnNothing(t *testing.T) {
	store := seed(150)
	store.FilterErr = vectorstore.ErrFilterUnsupported
	r, _ := newRetriever(store)

	chunks, err := r.Retrieve(context.Background(), query, []int64{1, 2}, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveEmbedError(t *testing.T) {
	r, embedder := newRetriever(seed(1))
	embedder.Err = errors.New("quota")

	_, err := r.Retrieve(context.Background(), query, []int64{1}, 8)
	assert.Error(t, err)
}

func TestFilterByDocuments(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "1", DocumentID: 1},
		{ID: "2", DocumentID: 3},
		{ID: "3", DocumentID: 2},
		{ID: "4", DocumentID: 1},
	}
	assert.Equal(t, []string{"1", "3"}, ids(FilterByDocuments(chunks, []int64{1, 2}, 2)))
	assert.Empty(t, FilterByDocuments(chunks, []int64{7}, 2))
}

func TestCandidateResolver(t *testing.T) {
	store := memory.NewStore()
	near := store.AddDocument(models.ReferenceDocument{Name: "Labor Law"}, []float32{1, 0})
	far := store.AddDocument(models.ReferenceDocument{Name: "Traffic Law"}, []float32{0, 1})
	store.AddDocument(models.ReferenceDocument{Name: "Pending"}, nil)

	embedder := llmtest.NewEmbedder(2)
	embedder.Vectors[query] = []float32{1, 0.1}

	got, err := NewCandidateResolver(embedder, store.Documents(), 0).Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []int64{near, far}, got)

	got, err = NewCandidateResolver(embedder, store.Documents(), 1).Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []int64{near}, got)
}
