package driven

import "context"

// Tool is one callable capability exposed to the orchestrator.
// Implementations validate their own arguments and return a
// human-readable result summary for grounding and provenance.
type Tool interface {
	// Name is the registration key looked up by the dispatcher.
	Name() string

	// Description tells the planner and the model what the tool does.
	Description() string

	// Parameters is a JSON-schema-shaped description of the argument
	// object, surfaced to the generation model.
	Parameters() map[string]any

	// Required marks tools whose failure fails the whole turn rather
	// than being captured as a result-with-error.
	Required() bool

	// Call invokes the tool with validated arguments.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ToolRegistry maps tool names to callable contracts.
type ToolRegistry interface {
	// Register adds a tool. Registering an existing name replaces it.
	Register(tool Tool)

	// Lookup finds a tool by name, domain.ErrUnknownTool if absent.
	Lookup(name string) (Tool, error)

	// List returns all registered tools sorted by name.
	List() []Tool
}
