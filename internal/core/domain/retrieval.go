package domain

// RetrievedChunk is one (chunk id, similarity score) pair.
type RetrievedChunk struct {
	// ChunkID is the matched chunk.
	ChunkID int64

	// Score is a monotonic similarity measure; higher is more
	// relevant. Ties are broken by chunk id ascending.
	Score float64
}

// RetrievalResult is the ordered result of one vector index query,
// most similar first.
type RetrievalResult []RetrievedChunk

// ChunkIDs returns the chunk ids in result order.
func (r RetrievalResult) ChunkIDs() []int64 {
	ids := make([]int64, len(r))
	for i, hit := range r {
		ids[i] = hit.ChunkID
	}
	return ids
}

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of chunks to retrieve.
	TopK int

	// Categories filters or boosts results by classifier labels.
	// When empty, the query's own classified categories are used.
	Categories []string

	// CategoryScoped turns category overlap from a soft re-ranking
	// signal into a hard filter.
	CategoryScoped bool
}

// SearchResult is a hydrated retrieval hit.
type SearchResult struct {
	// Chunk is the matched chunk with its text.
	Chunk Chunk

	// Score is the similarity score, possibly category-boosted.
	Score float64

	// Source is the path of the document the chunk came from.
	Source string
}
