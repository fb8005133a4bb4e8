package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/cracklens/pkg/domain"
)

// ToolFunc defines the signature for a tool implementation.
// It receives a context and a map of named arguments and returns the shared result shape.
type ToolFunc func(ctx context.Context, args map[string]any) (domain.ToolResult, error)

type entry struct {
	fn          ToolFunc
	description string
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register binds a tool to a name.
// If a tool with the same name exists it is replaced, and ErrToolAlreadyRegistered is
// returned so the caller can report the collision as a configuration error.
func (r *Registry) Register(name string, fn ToolFunc) error {
	return r.RegisterWithDescription(name, "", fn)
}

// RegisterWithDescription is Register with a human readable description for listings.
func (r *Registry) RegisterWithDescription(name, description string, fn ToolFunc) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("tool %s: nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.tools[name]
	r.tools[name] = entry{fn: fn, description: description}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrToolAlreadyRegistered, name)
	}
	return nil
}

// Lookup returns the tool bound to name. A miss is not an error.
func (r *Registry) Lookup(name string) (ToolFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Execute looks up a tool by name and executes it.
// Returns ErrToolNotRegistered if the tool is not found.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (domain.ToolResult, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("%w: %s", domain.ErrToolNotRegistered, name)
	}
	return fn(ctx, args)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe lists the registered tools with their descriptions.
func (r *Registry) Describe() []domain.ToolInfo {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.ToolInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, domain.ToolInfo{Name: name, Description: r.tools[name].description})
	}
	return infos
}
