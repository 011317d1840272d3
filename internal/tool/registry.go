package tool

import (
	"context"
	"fmt"
	"sync"

	"coursechat/internal/ai"
)

var (
	ErrToolRegistered = fmt.Errorf("tool already registered")
	ErrUnknownTool    = fmt.Errorf("unknown tool")
)

// Registry maps tool names to tool instances and dispatches execution by name.
// Sources flow back through Execute's return value and are scoped to the call,
// so a registry shared across concurrent requests never leaks one query's
// provenance into another.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its schema name.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrToolRegistered, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Definitions returns all registered schemas in registration order, for
// inclusion in a model round.
func (r *Registry) Definitions() []ai.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ai.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches to the named tool. An unknown name is a broken contract
// between orchestrator and registry and is returned as an error, unlike tool
// output failures which are text.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, []Source, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	output, sources := t.Execute(ctx, args)
	return output, sources, nil
}
