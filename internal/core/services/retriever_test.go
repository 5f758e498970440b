package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// seedCorpus stores three chunks with hand-picked vectors so inner
// product ranking against the fallback query vector (1,0,0) is fixed.
func seedCorpus(t *testing.T, store *mockChunkStore, index *mockVectorIndex) []domain.Chunk {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Path: "/docs/one.md"}))
	inserted, _, err := store.ReplaceChunks(ctx, "doc-1", []domain.Chunk{
		{Content: "deploying the server with new code", Categories: []string{"technology"}},
		{Content: "quarterly meeting notes and deadlines", Categories: []string{"work"}},
		{Content: "an unrelated passage about gardening", Categories: nil},
	})
	require.NoError(t, err)

	vectors := [][]float32{{0.9, 0, 0}, {0.8, 0, 0}, {0.5, 0, 0}}
	ids := make([]int64, len(inserted))
	for i, chunk := range inserted {
		ids[i] = chunk.ID
	}
	require.NoError(t, index.Add(ctx, ids, vectors))
	return inserted
}

func TestRetriever_Retrieve_RanksByScore(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	r := NewRetriever(store, index, newMockEmbedder(), classifier.New(), nil)

	chunks := seedCorpus(t, store, index)

	results, err := r.Retrieve(context.Background(), "anything", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, chunks[0].ID, results[0].Chunk.ID)
	assert.Equal(t, chunks[1].ID, results[1].Chunk.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, "/docs/one.md", results[0].Source)
}

func TestRetriever_Retrieve_TopKLimits(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	r := NewRetriever(store, index, newMockEmbedder(), classifier.New(), nil)

	seedCorpus(t, store, index)

	results, err := r.Retrieve(context.Background(), "anything", domain.SearchOptions{TopK: 1})

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetriever_Retrieve_ScoreThreshold(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	r := NewRetriever(store, index, newMockEmbedder(), classifier.New(), nil,
		WithScoreThreshold(0.7))

	seedCorpus(t, store, index)

	results, err := r.Retrieve(context.Background(), "anything", domain.SearchOptions{})

	require.NoError(t, err)
	// Only the 0.9 and 0.8 vectors clear the 0.7 threshold.
	assert.Len(t, results, 2)
}

func TestRetriever_Retrieve_CategoryBoostReorders(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	// A large boost lets the category match overtake raw similarity.
	r := NewRetriever(store, index, newMockEmbedder(), classifier.New(), nil,
		WithCategoryBoost(0.5))

	chunks := seedCorpus(t, store, index)

	// "meeting" classifies as work, matching the second chunk.
	results, err := r.Retrieve(context.Background(), "meeting", domain.SearchOptions{})

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunks[1].ID, results[0].Chunk.ID)
}

func TestRetriever_Retrieve_CategoryScopedFilters(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	r := NewRetriever(store, index, newMockEmbedder(), classifier.New(), nil)

	chunks := seedCorpus(t, store, index)

	results, err := r.Retrieve(context.Background(), "anything", domain.SearchOptions{
		Categories:     []string{"work"},
		CategoryScoped: true,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chunks[1].ID, results[0].Chunk.ID)
}

func TestRetriever_Retrieve_EmptyQuery(t *testing.T) {
	r := NewRetriever(newMockChunkStore(), newMockIndex(), newMockEmbedder(), classifier.New(), nil)

	_, err := r.Retrieve(context.Background(), "   ", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetriever_Retrieve_EmbeddingUnavailable(t *testing.T) {
	embedder := newMockEmbedder()
	embedder.embedErr = errors.New("connection refused")
	r := NewRetriever(newMockChunkStore(), newMockIndex(), embedder, classifier.New(), nil)

	_, err := r.Retrieve(context.Background(), "query", domain.SearchOptions{})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetriever_Retrieve_EmptyIndex(t *testing.T) {
	r := NewRetriever(newMockChunkStore(), newMockIndex(), newMockEmbedder(), classifier.New(), nil)

	results, err := r.Retrieve(context.Background(), "query", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
}
