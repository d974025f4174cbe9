package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"topovibe/pkg/api"
	"topovibe/pkg/llm"
)

// Re-export types from api package via aliases to keep tool code short.
type Tool = api.Tool
type ToolResult = api.ToolResult
type ContentBlock = api.ContentBlock

var (
	// ErrNotFound is returned by Execute when no tool has the requested name.
	ErrNotFound = errors.New("tool not found")
	// ErrMissingArgument marks a call that omits a required argument.
	ErrMissingArgument = errors.New("missing required argument")
)

// ToolRegistry acts as a central inventory for all tools available to the Agent.
type ToolRegistry struct {
	mu    sync.RWMutex    // Protects concurrent access to the tools map
	tools map[string]Tool // Internal map of tool name to implementation
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry, replacing any tool with the same name.
func (tr *ToolRegistry) Register(tool Tool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tools[tool.Name()] = tool
}

// Unregister removes a tool from the registry
func (tr *ToolRegistry) Unregister(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.tools, name)
}

// Get retrieves a tool by name
func (tr *ToolRegistry) Get(name string) (Tool, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tool, ok := tr.tools[name]
	return tool, ok
}

// GetAll returns all registered tools sorted by name, so the declaration
// order sent to the model is stable between turns.
func (tr *ToolRegistry) GetAll() []Tool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tools := make([]Tool, 0, len(tr.tools))
	for _, tool := range tr.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Definitions returns the catalogue in the form the LLM clients declare.
func (tr *ToolRegistry) Definitions() []llm.Tool {
	all := tr.GetAll()
	defs := make([]llm.Tool, len(all))
	for i, t := range all {
		defs[i] = t
	}
	return defs
}

// Execute runs the named tool.
func (tr *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	tool, ok := tr.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return tool.Execute(ctx, args)
}
