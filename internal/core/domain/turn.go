package domain

// TurnState is the orchestrator state for one query turn.
type TurnState int

// Turn states, in the order a successful turn traverses them.
// Failed is terminal and reachable from any non-terminal state.
const (
	StateReceived TurnState = iota
	StatePlanning
	StateRetrieving
	StateToolDispatch
	StateGrounding
	StateGenerating
	StateCompleted
	StateFailed
)

// String returns the state name for logging.
func (s TurnState) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StatePlanning:
		return "planning"
	case StateRetrieving:
		return "retrieving"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateGrounding:
		return "grounding"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a turn.
func (s TurnState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Plan is the outcome of the planning step: whether to retrieve and
// which tools to invoke before generating.
type Plan struct {
	// Retrieve enables document retrieval for this turn.
	Retrieve bool

	// ToolCalls are the tool invocations requested up front.
	ToolCalls []ToolCallRequest
}

// Answer is the final product of one orchestration turn, with the
// provenance needed to persist and display it.
type Answer struct {
	// Text is the generated response.
	Text string

	// SessionID is the session the turn belongs to, useful when the
	// turn opened a new session.
	SessionID string

	// State is the terminal state the turn reached.
	State TurnState

	// ChunkIDs are the retrieved chunks that grounded the answer.
	ChunkIDs []int64

	// ToolCalls are the tool invocations made during the turn.
	ToolCalls []ToolCall
}
