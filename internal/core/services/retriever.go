package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
	"github.com/JIWOOK23/LocalMind/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retrieval defaults.
const (
	// DefaultTopK is the result count when the query does not ask
	// for one.
	DefaultTopK = 5

	// DefaultScoreThreshold drops near-zero similarity hits.
	DefaultScoreThreshold = 0.1

	// DefaultCategoryBoost is added to the score once per category
	// shared between the query and a chunk.
	DefaultCategoryBoost = 0.05
)

// Retriever answers similarity queries against the indexed corpus.
type Retriever struct {
	chunkStore driven.ChunkStore
	index      driven.VectorIndex
	embedder   driven.EmbeddingService
	classifier *classifier.Classifier

	// guard is shared with the index service so hydration never races
	// an ingestion between Search and GetMany.
	guard *sync.RWMutex

	scoreThreshold float64
	categoryBoost  float64
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithScoreThreshold sets the minimum similarity score.
func WithScoreThreshold(threshold float64) RetrieverOption {
	return func(r *Retriever) {
		r.scoreThreshold = threshold
	}
}

// WithCategoryBoost sets the per-category score bonus.
func WithCategoryBoost(boost float64) RetrieverOption {
	return func(r *Retriever) {
		r.categoryBoost = boost
	}
}

// NewRetriever creates a retrieval service. The guard must be the one
// exposed by the index service; nil means no shared writer exists.
func NewRetriever(
	chunkStore driven.ChunkStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	classify *classifier.Classifier,
	guard *sync.RWMutex,
	opts ...RetrieverOption,
) *Retriever {
	r := &Retriever{
		chunkStore:     chunkStore,
		index:          index,
		embedder:       embedder,
		classifier:     classify,
		guard:          guard,
		scoreThreshold: DefaultScoreThreshold,
		categoryBoost:  DefaultCategoryBoost,
	}
	if r.guard == nil {
		r.guard = &sync.RWMutex{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query, searches the vector index, hydrates the
// hits and re-ranks them by category overlap with the classified query.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	categories := opts.Categories
	if len(categories) == 0 {
		categories = r.classifier.Classify(query)
	}
	logger.Debug("Retrieve %q (topK=%d, categories=%v, scoped=%t)",
		query, topK, categories, opts.CategoryScoped)

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	// Overfetch so threshold and category filtering still leave topK
	// candidates.
	fetchK := topK * 3

	r.guard.RLock()
	hits, err := r.index.Search(ctx, queryVec, fetchK)
	if err != nil {
		r.guard.RUnlock()
		return nil, fmt.Errorf("index search: %w", err)
	}
	chunks, err := r.chunkStore.GetMany(ctx, hits.ChunkIDs())
	r.guard.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	sources := make(map[string]string)
	for i, hit := range hits {
		if hit.Score < r.scoreThreshold {
			continue
		}
		chunk := chunks[i]

		overlap := categoryOverlap(categories, chunk.Categories)
		if opts.CategoryScoped && len(categories) > 0 && overlap == 0 {
			continue
		}

		source, ok := sources[chunk.DocumentID]
		if !ok {
			doc, err := r.chunkStore.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				return nil, fmt.Errorf("load document %s: %w", chunk.DocumentID, err)
			}
			source = doc.Path
			sources[chunk.DocumentID] = source
		}

		results = append(results, domain.SearchResult{
			Chunk:  chunk,
			Score:  hit.Score + r.categoryBoost*float64(overlap),
			Source: source,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	logger.Debug("Retrieved %d results", len(results))
	return results, nil
}

// categoryOverlap counts categories present in both sets.
func categoryOverlap(query, chunk []string) int {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(query))
	for _, c := range query {
		set[c] = struct{}{}
	}
	overlap := 0
	for _, c := range chunk {
		if _, ok := set[c]; ok {
			overlap++
		}
	}
	return overlap
}
