package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/termfx/aliyun-mcp/mcp/types"
)

// ErrToolNotFound is returned by Execute for unregistered names.
var ErrToolNotFound = errors.New("tool not found")

// Registry holds the tools exposed by the server in registration order.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]types.Tool
	ordered []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]types.Tool),
		ordered: make([]string, 0),
	}
}

// NewDefaultRegistry returns a registry holding every built-in tool.
func NewDefaultRegistry(querier LogQuerier, opts ...SLSQueryOption) *Registry {
	r := NewRegistry()
	r.Register(NewSLSQueryTool(querier, opts...))
	return r
}

// Register adds a tool to the registry, replacing any tool with the same name
func (r *Registry) Register(tool types.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.ordered = append(r.ordered, name)
	}
	r.tools[name] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (types.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all tools in registration order
func (r *Registry) List() []types.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]types.Tool, 0, len(r.ordered))
	for _, name := range r.ordered {
		result = append(result, r.tools[name])
	}
	return result
}

// Execute runs a tool by name with the given parameters
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (any, error) {
	tool, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Handler()(ctx, params)
}

// Definitions returns all tool definitions
func (r *Registry) Definitions() []types.ToolDefinition {
	tools := r.List()
	definitions := make([]types.ToolDefinition, 0, len(tools))

	for _, tool := range tools {
		definitions = append(definitions, types.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	return definitions
}
