package handler

import (
	"sync"

	"github.com/mcpcore/mcpcore-go/internal/port"
	"github.com/mcpcore/mcpcore-go/internal/registry"
)

// ToolSet pairs a ToolRegistry (metadata, for listing) with the executable
// port.Tool implementations behind each name, since registry.ToolRegistry
// cannot hold port.Tool directly -- port imports registry for Schema, so
// the reverse import would cycle.
type ToolSet struct {
	registry *registry.ToolRegistry

	mu        sync.RWMutex
	executors map[string]port.Tool
}

// NewToolSet creates an empty ToolSet backed by reg.
func NewToolSet(reg *registry.ToolRegistry) *ToolSet {
	return &ToolSet{registry: reg, executors: make(map[string]port.Tool)}
}

// Register adds tool to both the metadata registry and the executor map.
// Returns *registry.ErrDuplicateTool if the name is already registered.
func (s *ToolSet) Register(tool port.Tool) error {
	meta := registry.Tool{
		Name:        tool.Name(),
		Description: tool.Description(),
		Schema:      tool.Schema(),
	}
	if err := s.registry.Register(meta); err != nil {
		return err
	}
	s.mu.Lock()
	s.executors[tool.Name()] = tool
	s.mu.Unlock()
	return nil
}

// Unregister removes tool by name from both collections.
func (s *ToolSet) Unregister(name string) {
	s.registry.Unregister(name)
	s.mu.Lock()
	delete(s.executors, name)
	s.mu.Unlock()
}

// Registry exposes the underlying metadata registry, e.g. for tools/list.
func (s *ToolSet) Registry() *registry.ToolRegistry { return s.registry }

// Executor returns the executable Tool for name, if registered.
func (s *ToolSet) Executor(name string) (port.Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.executors[name]
	return t, ok
}
