package tool

import (
	"fmt"
	"sort"

	"github.com/ordo-ai/agentgraph/model"
)

// Registry is a static mapping from tool name to implementation. It is
// populated at construction and read-only afterwards, so lookups are safe
// from concurrent runs.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a Registry. Duplicate or empty names are rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}

	for _, t := range tools {
		if t == nil {
			continue
		}

		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}

		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}

		r.tools[name] = t
		r.order = append(r.order, name)
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for
// package-level toolkits and tests.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}

	return r
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}

	t, ok := r.tools[name]

	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.order)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	names := append([]string(nil), r.order...)
	sort.Strings(names)

	return names
}

// Definitions returns the tool specs in registration order, ready to bind
// to a model request.
func (r *Registry) Definitions() []model.ToolDefinition {
	if r == nil || len(r.order) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]

		params := t.Parameters()
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		defs = append(defs, model.NewToolDefinition(name, t.Description(), params))
	}

	return defs
}
