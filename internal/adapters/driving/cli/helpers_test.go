package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// setupTestServices installs mock services and returns a cleanup
// function restoring the previous ones.
func setupTestServices() func() {
	oldIndex := indexService
	oldRetrieve := retrieveService
	oldChat := chatService
	oldChunks := chunkStore
	oldConversations := conversationStore
	oldConfig := configStore

	indexService = &mockIndexer{}
	retrieveService = &mockRetriever{results: []domain.SearchResult{
		{
			Chunk:  domain.Chunk{ID: 1, DocumentID: "doc-1", Content: "mock chunk content", Categories: []string{"technology"}},
			Score:  0.92,
			Source: "/docs/mock.txt",
		},
	}}
	chatService = &mockChat{answer: &domain.Answer{
		Text:      "mock answer",
		SessionID: "session-1",
		State:     domain.StateCompleted,
		ChunkIDs:  []int64{1},
	}}
	chunkStore = &mockChunkStore{}
	conversationStore = &mockConversationStore{}
	configStore = newMockConfigStore()

	return func() {
		indexService = oldIndex
		retrieveService = oldRetrieve
		chatService = oldChat
		chunkStore = oldChunks
		conversationStore = oldConversations
		configStore = oldConfig
	}
}

type mockIndexer struct {
	ingested []string
	removed  []string
}

func (m *mockIndexer) Ingest(_ context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	m.ingested = append(m.ingested, doc.ID)
	return &domain.IngestResult{ChunksAdded: 3}, nil
}

func (m *mockIndexer) Remove(_ context.Context, documentID string) error {
	m.removed = append(m.removed, documentID)
	return nil
}

func (m *mockIndexer) VerifyConsistency(context.Context) error { return nil }

func (m *mockIndexer) Rebuild(context.Context) error { return nil }

func (m *mockIndexer) Snapshot(string) error { return nil }

func (m *mockIndexer) Restore(string) error { return nil }

type mockRetriever struct {
	results []domain.SearchResult
	lastK   int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastK = opts.TopK
	return m.results, nil
}

type mockChat struct {
	answer *domain.Answer
}

func (m *mockChat) Ask(context.Context, string, string) (*domain.Answer, error) {
	return m.answer, nil
}

func (m *mockChat) MimicStyle(context.Context, string, string) (*domain.Answer, error) {
	return m.answer, nil
}

type mockChunkStore struct {
	docs []domain.Document
}

func (m *mockChunkStore) SaveDocument(context.Context, *domain.Document) error { return nil }

func (m *mockChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return &domain.Document{ID: id, Path: "/docs/mock.txt", Title: "mock.txt", Format: "txt", IngestedAt: time.Now()}, nil
}

func (m *mockChunkStore) ListDocuments(context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockChunkStore) DeleteDocument(context.Context, string) error { return nil }

func (m *mockChunkStore) ReplaceChunks(context.Context, string, []domain.Chunk) ([]domain.Chunk, []int64, error) {
	return nil, nil, nil
}

func (m *mockChunkStore) Get(_ context.Context, id int64) (*domain.Chunk, error) {
	return &domain.Chunk{ID: id, DocumentID: "doc-1"}, nil
}

func (m *mockChunkStore) GetMany(_ context.Context, ids []int64) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = domain.Chunk{ID: id, DocumentID: "doc-1"}
	}
	return chunks, nil
}

func (m *mockChunkStore) Delete(context.Context, []int64) error { return nil }

func (m *mockChunkStore) IDs(context.Context) ([]int64, error) { return nil, nil }

func (m *mockChunkStore) Counts(context.Context) (*domain.Statistics, error) {
	return &domain.Statistics{
		DocumentCount:  2,
		ChunkCount:     7,
		CategoryCounts: map[string]int{"technology": 4, "work": 3},
	}, nil
}

func (m *mockChunkStore) ConsistencyVersion(context.Context) (uint64, error) { return 0, nil }

type mockConversationStore struct {
	sessions []domain.Session
}

func (m *mockConversationStore) CreateSession(_ context.Context, title, category string) (*domain.Session, error) {
	session := domain.Session{ID: fmt.Sprintf("session-%d", len(m.sessions)+1), Title: title, Category: category}
	m.sessions = append(m.sessions, session)
	return &session, nil
}

func (m *mockConversationStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	return &domain.Session{ID: id, Title: "mock session"}, nil
}

func (m *mockConversationStore) ListSessions(context.Context, int) ([]domain.Session, error) {
	return m.sessions, nil
}

func (m *mockConversationStore) AppendTurn(context.Context, *domain.ConversationTurn) (string, error) {
	return "turn-1", nil
}

func (m *mockConversationStore) GetRecent(context.Context, string, int) ([]domain.ConversationTurn, error) {
	return nil, nil
}

func (m *mockConversationStore) GetTurns(context.Context, string) ([]domain.ConversationTurn, error) {
	return nil, nil
}

func (m *mockConversationStore) SearchTurns(context.Context, string, int) ([]domain.ConversationTurn, error) {
	return nil, nil
}

func (m *mockConversationStore) Counts(context.Context) (int, int, error) { return 1, 3, nil }

type mockConfigStore struct {
	values map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if v, ok := m.values[key].(string); ok {
		return v
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	if v, ok := m.values[key].(bool); ok {
		return v
	}
	return false
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	if v, ok := m.values[key].([]string); ok {
		return v
	}
	return nil
}

func (m *mockConfigStore) GetStringMapSlice(string) map[string][]string { return nil }

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Delete(key string) error {
	delete(m.values, key)
	return nil
}
