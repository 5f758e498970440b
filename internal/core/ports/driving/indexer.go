package driving

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// Indexer is the transactional entry point for all index mutation.
// Nothing outside the indexing pipeline mutates the vector index or
// the chunk store.
type Indexer interface {
	// Ingest chunks, classifies, embeds, and indexes one document,
	// replacing any prior chunks for the same document id. On any
	// failure mid-batch the prior consistent state is left intact.
	Ingest(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error)

	// Remove deletes a document and its chunks from store and index.
	Remove(ctx context.Context, documentID string) error

	// VerifyConsistency compares the index and store id sets and
	// returns domain.ErrIndexInconsistency on mismatch.
	VerifyConsistency(ctx context.Context) error

	// Rebuild replaces the index contents with the vectors persisted
	// in the chunk store and clears any inconsistent state.
	Rebuild(ctx context.Context) error

	// Snapshot persists the vector index tagged with the store's
	// current consistency version.
	Snapshot(path string) error

	// Restore loads a vector index snapshot, rejecting it with
	// domain.ErrSnapshotMismatch when its version tag does not match
	// the chunk store's.
	Restore(path string) error
}
