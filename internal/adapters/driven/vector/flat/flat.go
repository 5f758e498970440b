// Package flat provides an exact (brute-force) in-memory vector index
// with inner-product scoring. For the corpus sizes LocalMind targets,
// exact search is both fast enough and exactly reproducible, which the
// retrieval tests rely on.
package flat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// compactionThreshold triggers compaction once tombstones outnumber
// live entries.
const compactionThreshold = 0.5

// Index is an exact inner-product similarity index over dense int64
// chunk ids. Removal tombstones entries; compaction reclaims space
// once tombstones dominate. All operations are safe for concurrent
// use; readers are never blocked by other readers.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []int64
	vectors   [][]float32
	dead      map[int64]struct{}
	closed    bool
}

// New creates an index for vectors of the given dimension.
// A dimension of 0 adopts the dimension of the first added vector.
func New(dimension int) *Index {
	return &Index{
		dimension: dimension,
		dead:      make(map[int64]struct{}),
	}
}

// Add inserts vectors for the given chunk ids, aligned by index.
// Re-adding a live id is an error. Re-adding a tombstoned id purges
// the stale entry first so the old vector can never resurface.
func (idx *Index) Add(_ context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return errors.New("flat: ids and vectors length mismatch")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errors.New("flat: index is closed")
	}

	for i, vec := range vectors {
		if idx.dimension == 0 {
			idx.dimension = len(vec)
		}
		if len(vec) != idx.dimension || idx.dimension == 0 {
			return errors.New("flat: vector dimension mismatch")
		}
		if idx.liveLocked(ids[i]) {
			return errors.New("flat: id already present")
		}
	}

	for i, id := range ids {
		if _, gone := idx.dead[id]; gone {
			idx.purgeLocked(id)
		}
		idx.ids = append(idx.ids, id)
		idx.vectors = append(idx.vectors, vectors[i])
	}

	return nil
}

// Remove tombstones the given ids. Unknown ids are ignored. Removed
// ids are never returned from Search.
func (idx *Index) Remove(_ context.Context, ids []int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errors.New("flat: index is closed")
	}

	for _, id := range ids {
		if !idx.containsLocked(id) {
			continue
		}
		idx.dead[id] = struct{}{}
	}

	if len(idx.ids) > 0 && float64(len(idx.dead)) > compactionThreshold*float64(len(idx.ids)) {
		idx.compactLocked()
	}

	return nil
}

// Search returns the k most similar live entries by inner product,
// sorted by score descending, chunk id ascending on ties. Repeated
// queries against an unchanged index return identical results.
func (idx *Index) Search(_ context.Context, query []float32, k int) (domain.RetrievalResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, errors.New("flat: index is closed")
	}
	if k <= 0 {
		return nil, nil
	}
	if idx.dimension > 0 && len(query) != idx.dimension {
		return nil, errors.New("flat: query dimension mismatch")
	}

	hits := make(domain.RetrievalResult, 0, len(idx.ids))
	for i, id := range idx.ids {
		if _, gone := idx.dead[id]; gone {
			continue
		}
		hits = append(hits, domain.RetrievedChunk{
			ChunkID: id,
			Score:   float64(innerProduct(query, idx.vectors[i])),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// IDs returns the live ids, ascending.
func (idx *Index) IDs(_ context.Context) ([]int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, errors.New("flat: index is closed")
	}

	out := make([]int64, 0, len(idx.ids))
	for _, id := range idx.ids {
		if _, gone := idx.dead[id]; !gone {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Len returns the number of live vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids) - len(idx.dead)
}

// Dimension returns the vector dimension, 0 before the first Add.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Close releases resources. Subsequent operations fail.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.closed = true
	idx.ids = nil
	idx.vectors = nil
	idx.dead = nil
	return nil
}

// containsLocked reports whether id has an entry, live or tombstoned.
// Callers must hold the lock.
func (idx *Index) containsLocked(id int64) bool {
	for _, existing := range idx.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// liveLocked reports whether id is present and not tombstoned.
// Callers must hold the lock.
func (idx *Index) liveLocked(id int64) bool {
	if _, gone := idx.dead[id]; gone {
		return false
	}
	return idx.containsLocked(id)
}

// purgeLocked drops a tombstoned entry so its id can be added again
// without the stale vector resurfacing. Callers must hold the lock.
func (idx *Index) purgeLocked(id int64) {
	delete(idx.dead, id)
	for i, existing := range idx.ids {
		if existing == id {
			idx.ids = append(idx.ids[:i], idx.ids[i+1:]...)
			idx.vectors = append(idx.vectors[:i], idx.vectors[i+1:]...)
			return
		}
	}
}

// compactLocked drops tombstoned entries. Callers must hold the lock.
func (idx *Index) compactLocked() {
	liveIDs := idx.ids[:0]
	liveVecs := idx.vectors[:0]
	for i, id := range idx.ids {
		if _, gone := idx.dead[id]; gone {
			continue
		}
		liveIDs = append(liveIDs, id)
		liveVecs = append(liveVecs, idx.vectors[i])
	}
	idx.ids = liveIDs
	idx.vectors = liveVecs
	idx.dead = make(map[int64]struct{})
}

func innerProduct(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
