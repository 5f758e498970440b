package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
)

// Ensure ToolRegistry implements the interface.
var _ driven.ToolRegistry = (*ToolRegistry)(nil)

// ToolRegistry is the in-memory tool registry used by the orchestrator.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]driven.Tool
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]driven.Tool),
	}
}

// Register adds a tool. Registering an existing name replaces it.
func (r *ToolRegistry) Register(tool driven.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name()] = tool
}

// Lookup finds a tool by name.
func (r *ToolRegistry) Lookup(name string) (driven.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	return tool, nil
}

// List returns all registered tools sorted by name.
func (r *ToolRegistry) List() []driven.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]driven.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}
