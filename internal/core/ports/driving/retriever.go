package driving

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// Retriever answers similarity queries against the indexed corpus.
type Retriever interface {
	// Retrieve embeds the query, searches the vector index, hydrates
	// the hits from the chunk store, and re-ranks by category overlap
	// with the classified query.
	Retrieve(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
