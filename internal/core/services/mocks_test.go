package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors are looked up by text; unknown texts get the fallback vector.
type mockEmbeddingService struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	calls    int
}

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0, 0},
	}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallback, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 3 }

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockVectorIndex implements driven.VectorIndex with brute-force inner
// product search over stored vectors.
type mockVectorIndex struct {
	mu      sync.Mutex
	vectors map[int64][]float32
	addErr  error
	remErr  error
}

func newMockIndex() *mockVectorIndex {
	return &mockVectorIndex{vectors: make(map[int64][]float32)}
}

func (m *mockVectorIndex) Add(_ context.Context, ids []int64, vectors [][]float32) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		m.vectors[id] = vectors[i]
	}
	return nil
}

func (m *mockVectorIndex) Remove(_ context.Context, ids []int64) error {
	if m.remErr != nil {
		return m.remErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.vectors, id)
	}
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, query []float32, k int) (domain.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hits := make(domain.RetrievalResult, 0, len(m.vectors))
	for id, vec := range m.vectors {
		var score float64
		for i := range query {
			if i < len(vec) {
				score += float64(query[i]) * float64(vec[i])
			}
		}
		hits = append(hits, domain.RetrievedChunk{ChunkID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockVectorIndex) IDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.vectors))
	for id := range m.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockVectorIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vectors)
}

func (m *mockVectorIndex) Save(_ string, _ uint64) error { return nil }

func (m *mockVectorIndex) Load(_ string) (uint64, error) { return 0, nil }

func (m *mockVectorIndex) Close() error { return nil }

// mockChunkStore implements driven.ChunkStore in memory.
type mockChunkStore struct {
	mu       sync.Mutex
	docs     map[string]domain.Document
	chunks   map[int64]domain.Chunk
	nextID   int64
	version  uint64
	replErr  error
	countErr error
}

func newMockChunkStore() *mockChunkStore {
	return &mockChunkStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[int64]domain.Chunk),
	}
}

func (m *mockChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]domain.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *mockChunkStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *mockChunkStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, []int64, error) {
	if m.replErr != nil {
		return nil, nil, m.replErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []int64
	for id, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, id := range removed {
		delete(m.chunks, id)
	}

	inserted := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		m.nextID++
		chunk.ID = m.nextID
		chunk.DocumentID = documentID
		m.chunks[chunk.ID] = chunk
		inserted = append(inserted, chunk)
	}
	m.version++
	return inserted, removed, nil
}

func (m *mockChunkStore) Get(_ context.Context, id int64) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

func (m *mockChunkStore) GetMany(ctx context.Context, ids []int64) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := m.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get chunk %d: %w", id, err)
		}
		out = append(out, *chunk)
	}
	return out, nil
}

func (m *mockChunkStore) Delete(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.chunks, id)
	}
	m.version++
	return nil
}

func (m *mockChunkStore) IDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.chunks))
	for id := range m.chunks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockChunkStore) Counts(_ context.Context) (*domain.Statistics, error) {
	if m.countErr != nil {
		return nil, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &domain.Statistics{
		DocumentCount:  len(m.docs),
		ChunkCount:     len(m.chunks),
		CategoryCounts: make(map[string]int),
	}
	for _, chunk := range m.chunks {
		for _, c := range chunk.Categories {
			stats.CategoryCounts[c]++
		}
	}
	return stats, nil
}

func (m *mockChunkStore) ConsistencyVersion(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

// mockConversationStore implements driven.ConversationStore in memory.
type mockConversationStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	turns    []domain.ConversationTurn
	nextID   int
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{sessions: make(map[string]domain.Session)}
}

func (m *mockConversationStore) CreateSession(_ context.Context, title, category string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	session := domain.Session{
		ID:       fmt.Sprintf("session-%d", m.nextID),
		Title:    title,
		Category: category,
	}
	m.sessions[session.ID] = session
	return &session, nil
}

func (m *mockConversationStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

func (m *mockConversationStore) ListSessions(_ context.Context, limit int) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]domain.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	if limit < len(sessions) {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (m *mockConversationStore) AppendTurn(_ context.Context, turn *domain.ConversationTurn) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	turn.ID = fmt.Sprintf("turn-%d", m.nextID)
	m.turns = append(m.turns, *turn)
	return turn.ID, nil
}

func (m *mockConversationStore) GetRecent(_ context.Context, sessionID string, n int) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var turns []domain.ConversationTurn
	for _, turn := range m.turns {
		if turn.SessionID == sessionID {
			turns = append(turns, turn)
		}
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

func (m *mockConversationStore) GetTurns(_ context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var turns []domain.ConversationTurn
	for _, turn := range m.turns {
		if turn.SessionID == sessionID {
			turns = append(turns, turn)
		}
	}
	return turns, nil
}

func (m *mockConversationStore) SearchTurns(_ context.Context, query string, limit int) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var turns []domain.ConversationTurn
	for _, turn := range m.turns {
		if strings.Contains(turn.Query, query) || strings.Contains(turn.Response, query) {
			turns = append(turns, turn)
		}
		if len(turns) == limit {
			break
		}
	}
	return turns, nil
}

func (m *mockConversationStore) Counts(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), len(m.turns), nil
}

// mockGenerationService implements driven.GenerationService with a
// scripted sequence of results.
type mockGenerationService struct {
	mu      sync.Mutex
	script  []scriptedResult
	calls   []driven.GenerationRequest
	callErr error
}

type scriptedResult struct {
	text     string
	toolCall *domain.ToolCallRequest
}

func (m *mockGenerationService) Generate(_ context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.callErr != nil {
		return nil, m.callErr
	}
	if len(m.script) == 0 {
		return &driven.GenerationResult{Text: "default answer"}, nil
	}
	next := m.script[0]
	m.script = m.script[1:]
	return &driven.GenerationResult{Text: next.text, ToolCall: next.toolCall}, nil
}

func (m *mockGenerationService) ModelName() string { return "mock-gen" }

func (m *mockGenerationService) Ping(_ context.Context) error { return nil }

func (m *mockGenerationService) Close() error { return nil }

// mockTool implements driven.Tool with a fixed result or error.
type mockTool struct {
	name     string
	required bool
	result   string
	err      error
	calls    int
	lastArgs map[string]any
}

func (m *mockTool) Name() string { return m.name }

func (m *mockTool) Description() string { return "mock tool " + m.name }

func (m *mockTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (m *mockTool) Required() bool { return m.required }

func (m *mockTool) Call(_ context.Context, args map[string]any) (string, error) {
	m.calls++
	m.lastArgs = args
	return m.result, m.err
}
