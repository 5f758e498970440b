package domain

import "time"

// Session groups conversation turns under one conversation id.
type Session struct {
	// ID is the unique identifier for the session.
	ID string

	// Title is a short human-readable label.
	Title string

	// Category is the classifier label assigned to the conversation.
	Category string

	// Keywords are the top extracted keywords across the conversation.
	Keywords []string

	// CreatedAt is when the session was opened.
	CreatedAt time.Time

	// UpdatedAt is when the last turn was appended.
	UpdatedAt time.Time
}

// ConversationTurn is one user query and its assistant response.
// Turns are append-only; the core writes each turn exactly once.
type ConversationTurn struct {
	// ID is the unique identifier for the turn.
	ID string

	// SessionID links to the parent Session.
	SessionID string

	// Query is the user's input.
	Query string

	// Response is the assistant's final answer.
	Response string

	// Categories are the classifier labels for the query.
	Categories []string

	// ChunkIDs records which chunks grounded the response.
	ChunkIDs []int64

	// ToolCalls records the tools invoked while answering.
	ToolCalls []ToolCall

	// CreatedAt is when the turn completed.
	CreatedAt time.Time
}

// ToolCallRequest is a request to invoke a registered tool.
type ToolCallRequest struct {
	// Name is the registered tool name.
	Name string

	// Args is the argument mapping passed to the tool.
	Args map[string]any
}

// ToolCall is a resolved tool invocation kept for provenance.
// A failed call carries Error instead of Result.
type ToolCall struct {
	// Name is the tool that was invoked.
	Name string

	// Args is the argument mapping the tool was invoked with.
	Args map[string]any

	// Result is a summary of the tool output.
	Result string

	// Error is the failure message, empty on success.
	Error string
}

// Failed reports whether the call resolved to an error.
func (c ToolCall) Failed() bool {
	return c.Error != ""
}
