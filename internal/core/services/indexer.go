package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/JIWOOK23/LocalMind/internal/chunker"
	"github.com/JIWOOK23/LocalMind/internal/classifier"
	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
	"github.com/JIWOOK23/LocalMind/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.Indexer = (*IndexService)(nil)

// DefaultEmbedBatchSize bounds one embedding request batch.
const DefaultEmbedBatchSize = 32

// IndexService is the only writer of the vector index and chunk store.
// All mutation runs under the write half of the guard; the retriever
// reads under the read half, so a search never observes a half-applied
// ingestion.
type IndexService struct {
	chunkStore driven.ChunkStore
	index      driven.VectorIndex
	embedder   driven.EmbeddingService
	chunker    *chunker.Chunker
	classifier *classifier.Classifier

	guard     sync.RWMutex
	poisoned  atomic.Bool
	batchSize int
}

// IndexOption configures an IndexService.
type IndexOption func(*IndexService)

// WithEmbedBatchSize sets the embedding batch size.
func WithEmbedBatchSize(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewIndexService creates the indexing pipeline.
func NewIndexService(
	chunkStore driven.ChunkStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunk *chunker.Chunker,
	classify *classifier.Classifier,
	opts ...IndexOption,
) *IndexService {
	s := &IndexService{
		chunkStore: chunkStore,
		index:      index,
		embedder:   embedder,
		chunker:    chunk,
		classifier: classify,
		batchSize:  DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Guard exposes the read/write guard so the retriever can serialize
// searches against index mutation.
func (s *IndexService) Guard() *sync.RWMutex {
	return &s.guard
}

// Ingest chunks, classifies, embeds, and indexes one document,
// replacing any prior chunks for the same document id.
func (s *IndexService) Ingest(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	if s.poisoned.Load() {
		return nil, domain.ErrIndexInconsistency
	}
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrContent, doc.ID)
	}

	logger.Section("Ingest")
	logger.Info("Ingesting %s (%d bytes)", doc.ID, len(doc.Content))

	chunks := s.chunker.Split(doc)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrContent, doc.ID)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	for i := range chunks {
		chunks[i].Categories = s.classifier.Classify(chunks[i].Content)
	}

	// Embedding happens before any mutation so a provider outage
	// leaves the prior state untouched.
	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	s.guard.Lock()
	defer s.guard.Unlock()

	if err := s.chunkStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	inserted, removed, err := s.chunkStore.ReplaceChunks(ctx, doc.ID, chunks)
	if err != nil {
		return nil, fmt.Errorf("replace chunks: %w", err)
	}

	// The store transaction committed. An index failure past this
	// point means the two id sets diverged: refuse further mutation.
	if len(removed) > 0 {
		if err := s.index.Remove(ctx, removed); err != nil {
			s.poisoned.Store(true)
			return nil, fmt.Errorf("%w: remove stale vectors: %v", domain.ErrIndexInconsistency, err)
		}
	}

	ids := make([]int64, len(inserted))
	for i, chunk := range inserted {
		ids[i] = chunk.ID
	}
	if err := s.index.Add(ctx, ids, vectors); err != nil {
		s.poisoned.Store(true)
		return nil, fmt.Errorf("%w: add vectors: %v", domain.ErrIndexInconsistency, err)
	}

	logger.Info("Indexed %s: %d added, %d removed", doc.ID, len(inserted), len(removed))
	return &domain.IngestResult{
		ChunksAdded:   len(inserted),
		ChunksRemoved: len(removed),
	}, nil
}

// Remove deletes a document and its chunks from store and index.
func (s *IndexService) Remove(ctx context.Context, documentID string) error {
	if s.poisoned.Load() {
		return domain.ErrIndexInconsistency
	}
	if documentID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}

	s.guard.Lock()
	defer s.guard.Unlock()

	if _, err := s.chunkStore.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	_, removed, err := s.chunkStore.ReplaceChunks(ctx, documentID, nil)
	if err != nil {
		return fmt.Errorf("remove chunks: %w", err)
	}
	if err := s.chunkStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if len(removed) > 0 {
		if err := s.index.Remove(ctx, removed); err != nil {
			s.poisoned.Store(true)
			return fmt.Errorf("%w: remove vectors: %v", domain.ErrIndexInconsistency, err)
		}
	}

	logger.Info("Removed %s: %d chunks", documentID, len(removed))
	return nil
}

// VerifyConsistency compares the index and store id sets.
func (s *IndexService) VerifyConsistency(ctx context.Context) error {
	s.guard.RLock()
	defer s.guard.RUnlock()

	storeIDs, err := s.chunkStore.IDs(ctx)
	if err != nil {
		return fmt.Errorf("store ids: %w", err)
	}
	indexIDs, err := s.index.IDs(ctx)
	if err != nil {
		return fmt.Errorf("index ids: %w", err)
	}

	if !equalIDSets(storeIDs, indexIDs) {
		s.poisoned.Store(true)
		return fmt.Errorf("%w: store has %d ids, index has %d",
			domain.ErrIndexInconsistency, len(storeIDs), len(indexIDs))
	}
	return nil
}

// Rebuild replaces the index contents with the vectors persisted in
// the chunk store and clears any inconsistent state. Used to recover
// from a rejected snapshot without re-embedding.
func (s *IndexService) Rebuild(ctx context.Context) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	indexIDs, err := s.index.IDs(ctx)
	if err != nil {
		return fmt.Errorf("index ids: %w", err)
	}
	if len(indexIDs) > 0 {
		if err := s.index.Remove(ctx, indexIDs); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}

	ids, err := s.chunkStore.IDs(ctx)
	if err != nil {
		return fmt.Errorf("store ids: %w", err)
	}
	if len(ids) > 0 {
		chunks, err := s.chunkStore.GetMany(ctx, ids)
		if err != nil {
			return fmt.Errorf("load chunks: %w", err)
		}
		vectors := make([][]float32, len(chunks))
		for i := range chunks {
			vectors[i] = chunks[i].Embedding
		}
		if err := s.index.Add(ctx, ids, vectors); err != nil {
			return fmt.Errorf("add vectors: %w", err)
		}
	}

	s.poisoned.Store(false)
	logger.Info("Rebuilt index with %d vectors", len(ids))
	return nil
}

// Snapshot persists the vector index tagged with the store's current
// consistency version.
func (s *IndexService) Snapshot(path string) error {
	s.guard.RLock()
	defer s.guard.RUnlock()

	version, err := s.chunkStore.ConsistencyVersion(context.Background())
	if err != nil {
		return fmt.Errorf("consistency version: %w", err)
	}
	if err := s.index.Save(path, version); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	logger.Debug("Snapshot saved to %s (version %d)", path, version)
	return nil
}

// Restore loads a vector index snapshot. A snapshot whose version tag
// does not match the chunk store is rejected and the service refuses
// further mutation until re-indexed.
func (s *IndexService) Restore(path string) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	ctx := context.Background()
	storeVersion, err := s.chunkStore.ConsistencyVersion(ctx)
	if err != nil {
		return fmt.Errorf("consistency version: %w", err)
	}

	snapshotVersion, err := s.index.Load(path)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if snapshotVersion != storeVersion {
		s.poisoned.Store(true)
		return fmt.Errorf("%w: snapshot version %d, store version %d",
			domain.ErrSnapshotMismatch, snapshotVersion, storeVersion)
	}

	logger.Info("Restored index snapshot from %s (version %d, %d vectors)",
		path, snapshotVersion, s.index.Len())
	return nil
}

// embedAll embeds chunk contents in bounded batches.
func (s *IndexService) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Content
		}

		batch, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// equalIDSets compares two id slices as sets.
func equalIDSets(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int64(nil), a...)
	bs := append([]int64(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
