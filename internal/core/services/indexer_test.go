package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JIWOOK23/LocalMind/internal/chunker"
	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

func newTestIndexer(store *mockChunkStore, index *mockVectorIndex, embedder *mockEmbeddingService) *IndexService {
	return NewIndexService(
		store,
		index,
		embedder,
		chunker.New(chunker.WithMaxChars(100), chunker.WithOverlap(20)),
		classifier.New(),
	)
}

func TestIndexService_Ingest_Success(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())

	doc := &domain.Document{
		ID:      "doc-1",
		Path:    "/docs/doc-1.txt",
		Content: strings.Repeat("A sentence about servers and code. ", 10),
	}

	result, err := svc.Ingest(context.Background(), doc)

	require.NoError(t, err)
	assert.Positive(t, result.ChunksAdded)
	assert.Zero(t, result.ChunksRemoved)

	storeIDs, err := store.IDs(context.Background())
	require.NoError(t, err)
	indexIDs, err := index.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storeIDs, indexIDs)
}

func TestIndexService_Ingest_ReplacesPriorChunks(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())
	ctx := context.Background()

	doc := &domain.Document{
		ID:      "doc-1",
		Content: strings.Repeat("First version of the document text. ", 10),
	}
	first, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)

	doc.Content = "Second version, much shorter."
	second, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, first.ChunksAdded, second.ChunksRemoved)

	// Index and store stay in lockstep after the replacement.
	require.NoError(t, svc.VerifyConsistency(ctx))
	assert.Equal(t, second.ChunksAdded, index.Len())
}

func TestIndexService_Ingest_EmptyContent(t *testing.T) {
	svc := newTestIndexer(newMockChunkStore(), newMockIndex(), newMockEmbedder())

	_, err := svc.Ingest(context.Background(), &domain.Document{ID: "doc-1", Content: "   \n  "})

	assert.ErrorIs(t, err, domain.ErrContent)
}

func TestIndexService_Ingest_MissingID(t *testing.T) {
	svc := newTestIndexer(newMockChunkStore(), newMockIndex(), newMockEmbedder())

	_, err := svc.Ingest(context.Background(), &domain.Document{Content: "text"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexService_Ingest_EmbeddingFailureLeavesStateIntact(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	embedder := newMockEmbedder()
	svc := newTestIndexer(store, index, embedder)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, &domain.Document{ID: "doc-1", Content: "Good first document."})
	require.NoError(t, err)
	before, err := store.ConsistencyVersion(ctx)
	require.NoError(t, err)

	embedder.embedErr = errors.New("connection refused")
	_, err = svc.Ingest(ctx, &domain.Document{ID: "doc-2", Content: "This one fails."})
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	// Nothing was mutated and future ingestion still works.
	after, err := store.ConsistencyVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	require.NoError(t, svc.VerifyConsistency(ctx))

	embedder.embedErr = nil
	_, err = svc.Ingest(ctx, &domain.Document{ID: "doc-2", Content: "This one works."})
	assert.NoError(t, err)
}

func TestIndexService_Ingest_IndexFailurePoisonsService(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())
	ctx := context.Background()

	index.addErr = errors.New("disk full")
	_, err := svc.Ingest(ctx, &domain.Document{ID: "doc-1", Content: "Some document text."})
	require.ErrorIs(t, err, domain.ErrIndexInconsistency)

	// All further mutation is refused.
	index.addErr = nil
	_, err = svc.Ingest(ctx, &domain.Document{ID: "doc-2", Content: "More text."})
	assert.ErrorIs(t, err, domain.ErrIndexInconsistency)
	assert.ErrorIs(t, svc.Remove(ctx, "doc-1"), domain.ErrIndexInconsistency)
}

func TestIndexService_Remove(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())
	ctx := context.Background()

	_, err := svc.Ingest(ctx, &domain.Document{ID: "doc-1", Content: "Document to remove later."})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "doc-1"))

	assert.Zero(t, index.Len())
	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexService_Remove_UnknownDocument(t *testing.T) {
	svc := newTestIndexer(newMockChunkStore(), newMockIndex(), newMockEmbedder())

	err := svc.Remove(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexService_VerifyConsistency_DetectsDrift(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())
	ctx := context.Background()

	_, err := svc.Ingest(ctx, &domain.Document{ID: "doc-1", Content: "Some document text."})
	require.NoError(t, err)
	require.NoError(t, svc.VerifyConsistency(ctx))

	// Tamper with the index behind the service's back.
	ids, err := index.IDs(ctx)
	require.NoError(t, err)
	require.NoError(t, index.Remove(ctx, ids[:1]))

	assert.ErrorIs(t, svc.VerifyConsistency(ctx), domain.ErrIndexInconsistency)
}

func TestIndexService_Restore_VersionMismatch(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())
	ctx := context.Background()

	// Restore against a store that has advanced past the snapshot.
	_, err := svc.Ingest(ctx, &domain.Document{ID: "doc-1", Content: "Advances the version."})
	require.NoError(t, err)

	// The mock index loads snapshots as version 0.
	err = svc.Restore("unused-path")
	assert.ErrorIs(t, err, domain.ErrSnapshotMismatch)
}

func TestIndexService_Restore_MatchingVersion(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())

	// Fresh store at version 0 matches the mock snapshot's version 0.
	assert.NoError(t, svc.Restore("unused-path"))
}

func TestIndexService_Rebuild_RecoversFromRejectedSnapshot(t *testing.T) {
	store := newMockChunkStore()
	index := newMockIndex()
	svc := newTestIndexer(store, index, newMockEmbedder())
	ctx := context.Background()

	_, err := svc.Ingest(ctx, &domain.Document{ID: "doc-1", Content: "Some document text to index."})
	require.NoError(t, err)

	// A rejected snapshot poisons the service and replaces the index
	// contents with the stale snapshot.
	require.ErrorIs(t, svc.Restore("unused-path"), domain.ErrSnapshotMismatch)
	_, err = svc.Ingest(ctx, &domain.Document{ID: "doc-2", Content: "Refused while poisoned."})
	require.ErrorIs(t, err, domain.ErrIndexInconsistency)

	require.NoError(t, svc.Rebuild(ctx))

	storeIDs, err := store.IDs(ctx)
	require.NoError(t, err)
	indexIDs, err := index.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, storeIDs, indexIDs)
	require.NoError(t, svc.VerifyConsistency(ctx))

	// Mutation is accepted again.
	_, err = svc.Ingest(ctx, &domain.Document{ID: "doc-2", Content: "Accepted after rebuild."})
	assert.NoError(t, err)
}
