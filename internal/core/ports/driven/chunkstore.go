package driven

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// ChunkStore persists documents and their chunks.
// Backed by SQLite. The set of chunk ids in the store must equal the
// set of ids in the vector index after every completed operation: the
// indexing pipeline enforces this jointly with its transactional
// ingestion.
type ChunkStore interface {
	// SaveDocument stores or updates document metadata.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all ingested documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes document metadata. Its chunks must have
	// been replaced away first.
	DeleteDocument(ctx context.Context, id string) error

	// ReplaceChunks atomically deletes the document's prior chunks,
	// inserts the new ones with freshly allocated dense ids, and bumps
	// the consistency version. It returns the inserted chunks (ids
	// assigned) and the ids that were removed. On error the prior
	// state is left intact.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) (inserted []domain.Chunk, removed []int64, err error)

	// Get retrieves a single chunk by id.
	Get(ctx context.Context, id int64) (*domain.Chunk, error)

	// GetMany retrieves chunks by id, aligned to input order.
	// A missing id yields domain.ErrNotFound.
	GetMany(ctx context.Context, ids []int64) ([]domain.Chunk, error)

	// Delete removes chunks by id.
	Delete(ctx context.Context, ids []int64) error

	// IDs returns all chunk ids, ascending.
	IDs(ctx context.Context) ([]int64, error)

	// Counts returns document, chunk, and per-category chunk counts.
	Counts(ctx context.Context) (*domain.Statistics, error)

	// ConsistencyVersion returns the version tag bumped on every
	// chunk mutation, shared with index snapshots.
	ConsistencyVersion(ctx context.Context) (uint64, error)
}
