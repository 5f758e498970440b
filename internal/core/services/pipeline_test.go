package services

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JIWOOK23/LocalMind/internal/adapters/driven/vector/flat"
	"github.com/JIWOOK23/LocalMind/internal/chunker"
	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// bagEmbedder is a deterministic bag-of-words embedding over hashed
// word buckets, normalized to unit length. Identical text embeds to
// an identical vector, so verbatim queries score 1.0 against their
// own chunk.
type bagEmbedder struct {
	dims int
}

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,!?")))
		vec[int(h.Sum32()%uint32(e.dims))]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (e *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *bagEmbedder) Dimensions() int { return e.dims }

func (e *bagEmbedder) ModelName() string { return "bag-of-words" }

func (e *bagEmbedder) Ping(context.Context) error { return nil }

func (e *bagEmbedder) Close() error { return nil }

const (
	bakeryParagraph = "The bakery starts proofing sourdough before sunrise. " +
		"Flour, water and a rye starter ferment overnight in the cool cellar. " +
		"Each loaf bakes on a stone hearth until the crust crackles."

	telescopeParagraph = "The observatory telescope tracks the Orion nebula through winter. " +
		"Its primary mirror collects faint starlight for hours at a time. " +
		"Astronomers calibrate the mount against known stars before imaging."

	harborParagraph = "Sailboats return to the harbor ahead of the evening tide. " +
		"Crews coil the rigging and winch the mainsail down to the boom. " +
		"The harbormaster logs every berth before the fog rolls in."
)

// The full pipeline over real components: chunker with a 200 rune
// budget and 20 rune overlap, the exact flat index, and deterministic
// embeddings. A verbatim query must return its own paragraph first.
func TestPipeline_VerbatimQueryFindsItsParagraph(t *testing.T) {
	ctx := context.Background()

	store := newMockChunkStore()
	index := flat.New(0)
	embedder := &bagEmbedder{dims: 64}
	classify := classifier.New()

	indexer := NewIndexService(
		store,
		index,
		embedder,
		chunker.New(chunker.WithMaxChars(200), chunker.WithOverlap(20)),
		classify,
	)

	content := bakeryParagraph + "\n\n" + telescopeParagraph + "\n\n" + harborParagraph
	result, err := indexer.Ingest(ctx, &domain.Document{
		ID:      "journal.txt",
		Path:    "/docs/journal.txt",
		Content: content,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ChunksAdded, 3)

	retriever := NewRetriever(store, index, embedder, classify, indexer.Guard())

	results, err := retriever.Retrieve(ctx, telescopeParagraph, domain.SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Contains(t, top.Chunk.Content, "nebula")
	assert.Equal(t, "/docs/journal.txt", top.Source)

	// Determinism: the same query returns the identical ranking.
	again, err := retriever.Retrieve(ctx, telescopeParagraph, domain.SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, again, len(results))
	for i := range results {
		assert.Equal(t, results[i].Chunk.ID, again[i].Chunk.ID)
		assert.InDelta(t, results[i].Score, again[i].Score, 1e-9)
	}
}

// Consecutive chunks carry the previous chunk's suffix as a prefix so
// sentences cut at a boundary stay searchable.
func TestPipeline_ChunkOverlapCarriesSuffix(t *testing.T) {
	content := bakeryParagraph + "\n\n" + telescopeParagraph + "\n\n" + harborParagraph
	chunks := chunker.New(chunker.WithMaxChars(200), chunker.WithOverlap(20)).
		Split(&domain.Document{ID: "journal.txt", Content: content})

	require.GreaterOrEqual(t, len(chunks), 3)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		overlap := 20
		if len(prev) < overlap {
			overlap = len(prev)
		}
		suffix := string(prev[len(prev)-overlap:])
		assert.True(t, strings.HasPrefix(chunks[i].Content, suffix),
			"chunk %d should start with the previous chunk's suffix", i)
	}
}

// Re-ingesting the same document must not grow the corpus and the
// store and index id sets stay identical.
func TestPipeline_ReingestKeepsConsistency(t *testing.T) {
	ctx := context.Background()

	store := newMockChunkStore()
	index := flat.New(0)
	embedder := &bagEmbedder{dims: 64}

	indexer := NewIndexService(
		store,
		index,
		embedder,
		chunker.New(chunker.WithMaxChars(200), chunker.WithOverlap(20)),
		classifier.New(),
	)

	doc := &domain.Document{ID: "journal.txt", Content: bakeryParagraph + "\n\n" + harborParagraph}

	first, err := indexer.Ingest(ctx, doc)
	require.NoError(t, err)
	second, err := indexer.Ingest(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first.ChunksAdded, second.ChunksAdded)
	assert.Equal(t, first.ChunksAdded, second.ChunksRemoved)

	storeIDs, err := store.IDs(ctx)
	require.NoError(t, err)
	indexIDs, err := index.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, storeIDs, indexIDs)
	require.NoError(t, indexer.VerifyConsistency(ctx))
}
