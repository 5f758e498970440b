package mcp

import (
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP
// server. This provides a single injection point.
type Ports struct {
	// Retriever answers similarity queries.
	Retriever driving.Retriever

	// Chat runs grounded question answering turns.
	Chat driving.Chat
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	if p.Chat == nil {
		return ErrMissingChat
	}
	return nil
}
