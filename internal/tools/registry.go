package tools

import (
	"fmt"
	"sort"
	"sync"
)

// MaxToolNameLength bounds registered tool names.
const MaxToolNameLength = 256

// Registry is a thread-safe, name-indexed collection of tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its definition name. Duplicate names error;
// replacing a live tool under the model's feet is never what a caller
// wants.
func (r *Registry) Register(tool Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return NewError(KindInvalidInput, "", "tool name is required")
	}
	if len(name) > MaxToolNameLength {
		return NewError(KindInvalidInput, name,
			fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return NewError(KindAlreadyRegistered, name, "tool already registered")
	}
	r.tools[name] = tool
	return nil
}

// Unregister removes a tool by name. Removing a missing name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Contains reports whether a tool with the given name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Definition().Name < out[j].Definition().Name
	})
	return out
}

// Definitions returns all tool definitions sorted by name, the form
// attached to completion requests.
func (r *Registry) Definitions() []Definition {
	tools := r.List()
	defs := make([]Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// DangerousTools returns the names of tools marked dangerous, sorted.
func (r *Registry) DangerousTools() []string {
	return r.filterNames(true)
}

// SafeTools returns the names of tools not marked dangerous, sorted.
func (r *Registry) SafeTools() []string {
	return r.filterNames(false)
}

func (r *Registry) filterNames(dangerous bool) []string {
	var names []string
	for _, t := range r.List() {
		if t.Definition().Dangerous == dangerous {
			names = append(names, t.Definition().Name)
		}
	}
	return names
}
