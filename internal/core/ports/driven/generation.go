package driven

import (
	"context"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// GenerationService produces text from a grounded prompt.
// The model is a black box; it may answer directly or request a tool
// call mid-generation, in which case the orchestrator dispatches the
// tool and loops back with the result.
type GenerationService interface {
	// Generate produces a completion for the request. A returned
	// ToolCall (non-nil) means the model wants a tool invoked before
	// it can answer; Text is empty in that case.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerationRequest is a structured prompt for the generation service.
type GenerationRequest struct {
	// System is the system instruction, empty for model default.
	System string

	// Prompt is the grounded user prompt.
	Prompt string

	// Tools describes the callable tools the model may request,
	// empty to disable tool calling for this request.
	Tools []ToolSpec

	// Constraints tune the generation.
	Constraints GenerateConstraints
}

// GenerateConstraints configures generation behaviour.
type GenerateConstraints struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// Style, when non-empty, constrains the output to mimic the
	// profiled exemplar style rather than ground in facts.
	Style *domain.StyleProfile
}

// GenerationResult is the model's reply: either final text or a
// request for a further tool call.
type GenerationResult struct {
	// Text is the generated answer.
	Text string

	// ToolCall is the model's tool request, nil when Text is final.
	ToolCall *domain.ToolCallRequest
}

// ToolSpec describes one callable tool to the generation model.
type ToolSpec struct {
	// Name is the registered tool name.
	Name string

	// Description tells the model what the tool does.
	Description string

	// Parameters is a JSON-schema-shaped description of the
	// argument object.
	Parameters map[string]any
}
