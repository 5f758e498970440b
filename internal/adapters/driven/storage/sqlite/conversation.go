package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
)

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
	mu    sync.Mutex
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// CreateSession opens a new conversation session.
func (s *conversationStore) CreateSession(ctx context.Context, title, category string) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Title:     title,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, category, keywords, created_at, updated_at)
		VALUES (?, ?, ?, '[]', ?, ?)
	`, session.ID, session.Title, session.Category, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by id.
func (s *conversationStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, category, keywords, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// ListSessions returns sessions, most recently updated first.
func (s *conversationStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, category, keywords, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session //nolint:prealloc // size unknown from query
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// AppendTurn records a completed turn and touches the session.
// The mutex keeps writes for a session from interleaving.
func (s *conversationStore) AppendTurn(ctx context.Context, turn *domain.ConversationTurn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	categoriesJSON, err := json.Marshal(orEmpty(turn.Categories))
	if err != nil {
		return "", fmt.Errorf("marshalling categories: %w", err)
	}
	chunkIDsJSON, err := json.Marshal(orEmptyIDs(turn.ChunkIDs))
	if err != nil {
		return "", fmt.Errorf("marshalling chunk ids: %w", err)
	}
	toolCalls := turn.ToolCalls
	if toolCalls == nil {
		toolCalls = []domain.ToolCall{}
	}
	toolCallsJSON, err := json.Marshal(toolCalls)
	if err != nil {
		return "", fmt.Errorf("marshalling tool calls: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, query, response, categories, chunk_ids, tool_calls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Query, turn.Response,
		string(categoriesJSON), string(chunkIDsJSON), string(toolCallsJSON), turn.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("inserting turn: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", turn.CreatedAt, turn.SessionID)
	if err != nil {
		return "", fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}
	return turn.ID, nil
}

// GetRecent returns the last n turns of the session in chronological
// order.
func (s *conversationStore) GetRecent(ctx context.Context, sessionID string, n int) ([]domain.ConversationTurn, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, query, response, categories, chunk_ids, tool_calls, created_at
		FROM turns WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Query returned newest first, callers want oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// GetTurns returns every turn of the session in chronological order.
func (s *conversationStore) GetTurns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, query, response, categories, chunk_ids, tool_calls, created_at
		FROM turns WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// SearchTurns finds turns whose query or response contains the text.
func (s *conversationStore) SearchTurns(ctx context.Context, query string, limit int) ([]domain.ConversationTurn, error) {
	pattern := "%" + query + "%"
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, query, response, categories, chunk_ids, tool_calls, created_at
		FROM turns WHERE query LIKE ? OR response LIKE ?
		ORDER BY created_at DESC LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// Counts returns session and turn totals.
func (s *conversationStore) Counts(ctx context.Context) (sessions, turns int, err error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions")
	if err := row.Scan(&sessions); err != nil {
		return 0, 0, fmt.Errorf("counting sessions: %w", err)
	}
	row = s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns")
	if err := row.Scan(&turns); err != nil {
		return 0, 0, fmt.Errorf("counting turns: %w", err)
	}
	return sessions, turns, nil
}

func scanSession(row scanner) (*domain.Session, error) {
	var session domain.Session
	var category sql.NullString
	var keywordsJSON string

	if err := row.Scan(&session.ID, &session.Title, &category, &keywordsJSON,
		&session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	session.Category = category.String
	if err := json.Unmarshal([]byte(keywordsJSON), &session.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshaling keywords: %w", err)
	}
	return &session, nil
}

func scanTurns(rows *sql.Rows) ([]domain.ConversationTurn, error) {
	var turns []domain.ConversationTurn //nolint:prealloc // size unknown from query
	for rows.Next() {
		var turn domain.ConversationTurn
		var categoriesJSON, chunkIDsJSON, toolCallsJSON string

		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Query, &turn.Response,
			&categoriesJSON, &chunkIDsJSON, &toolCallsJSON, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}

		if err := json.Unmarshal([]byte(categoriesJSON), &turn.Categories); err != nil {
			return nil, fmt.Errorf("unmarshaling categories: %w", err)
		}
		if err := json.Unmarshal([]byte(chunkIDsJSON), &turn.ChunkIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk ids: %w", err)
		}
		if err := json.Unmarshal([]byte(toolCallsJSON), &turn.ToolCalls); err != nil {
			return nil, fmt.Errorf("unmarshaling tool calls: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func orEmptyIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
