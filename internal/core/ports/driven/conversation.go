package driven

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// ConversationStore records conversation sessions and turns.
// Turns are append-only: the core writes each turn exactly once and
// never mutates it afterwards.
type ConversationStore interface {
	// CreateSession opens a new session and returns it with its id
	// assigned.
	CreateSession(ctx context.Context, title, category string) (*domain.Session, error)

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// ListSessions returns sessions, most recently updated first.
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)

	// AppendTurn records a completed turn and returns its id.
	// Writes for the same session never interleave.
	AppendTurn(ctx context.Context, turn *domain.ConversationTurn) (string, error)

	// GetRecent returns the most recent n turns of a session in
	// chronological order.
	GetRecent(ctx context.Context, sessionID string, n int) ([]domain.ConversationTurn, error)

	// GetTurns returns all turns of a session in chronological order.
	GetTurns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)

	// SearchTurns finds turns whose query or response matches the
	// given text, most recent first.
	SearchTurns(ctx context.Context, query string, limit int) ([]domain.ConversationTurn, error)

	// Counts returns session and turn counts.
	Counts(ctx context.Context) (sessions, turns int, err error)
}
