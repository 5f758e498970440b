package driven

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// VectorIndex provides nearest-neighbour search over chunk embeddings,
// addressed by dense integer chunk ids.
//
// Implementations must be deterministic: repeated queries against an
// unchanged index return identical ordered results, with ties broken
// by chunk id ascending. Removed ids must never surface from Search.
type VectorIndex interface {
	// Add inserts vectors for the given chunk ids, aligned by index.
	Add(ctx context.Context, ids []int64, vectors [][]float32) error

	// Remove deletes the given ids from the index. Unknown ids are
	// ignored.
	Remove(ctx context.Context, ids []int64) error

	// Search finds the k nearest neighbours to the query vector,
	// most similar first.
	Search(ctx context.Context, query []float32, k int) (domain.RetrievalResult, error)

	// IDs returns the set of live ids, ascending. Used for
	// consistency verification against the chunk store.
	IDs(ctx context.Context) ([]int64, error)

	// Len returns the number of live vectors.
	Len() int

	// Save persists a snapshot tagged with the given consistency
	// version. A restored index answers Search identically.
	Save(path string, version uint64) error

	// Load restores a snapshot, replacing the index contents, and
	// returns the consistency version the snapshot was tagged with.
	Load(path string) (uint64, error)

	// Close releases resources.
	Close() error
}
