package driving

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// Chat runs orchestration turns against the indexed corpus.
type Chat interface {
	// Ask answers a question grounded in retrieved chunks and tool
	// results, records the turn, and returns the answer with its
	// provenance.
	Ask(ctx context.Context, sessionID, query string) (*domain.Answer, error)

	// MimicStyle rewrites content in the style of the indexed
	// exemplars. Retrieval is optional in this mode; the grounded
	// context is replaced with a style profile.
	MimicStyle(ctx context.Context, sessionID, content string) (*domain.Answer, error)
}
