package bot

import (
	"fmt"
	"sort"
	"sync"
)

// Command is a prefixed text command handled by a module.
type Command struct {
	Name        string
	Description string
	Handler     HandlerFunc
}

// Module is a bot feature. Adding a feature only requires implementing Module
// and registering it.
type Module interface {
	// Name returns the module's identifier (e.g. "party").
	Name() string

	// Description returns a short human-readable summary shown by help.
	Description() string

	// Commands returns the text commands the module answers.
	Commands() []Command
}

// ComponentModule is a Module that also handles message component
// interactions, keyed by custom id.
type ComponentModule interface {
	Module

	// Components maps button custom ids to their handlers.
	Components() map[string]HandlerFunc
}

// Registry manages module registration and command lookup.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	modules    map[string]Module
	commands   map[string]HandlerFunc
	components map[string]HandlerFunc
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:    make(map[string]Module),
		commands:   make(map[string]HandlerFunc),
		components: make(map[string]HandlerFunc),
	}
}

// Register adds a module and its commands. Command names must be unique
// across modules.
func (r *Registry) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("cannot register nil module")
	}
	if m.Name() == "" {
		return fmt.Errorf("module name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[m.Name()]; ok {
		return fmt.Errorf("module %q already registered", m.Name())
	}
	for _, c := range m.Commands() {
		if c.Name == "" || c.Handler == nil {
			return fmt.Errorf("module %q has an invalid command", m.Name())
		}
		if _, ok := r.commands[c.Name]; ok {
			return fmt.Errorf("command %q already registered", c.Name)
		}
	}

	var components map[string]HandlerFunc
	if cm, ok := m.(ComponentModule); ok {
		components = cm.Components()
		for id := range components {
			if _, ok := r.components[id]; ok {
				return fmt.Errorf("component %q already registered", id)
			}
		}
	}

	r.modules[m.Name()] = m
	for _, c := range m.Commands() {
		r.commands[c.Name] = c.Handler
	}
	for id, h := range components {
		r.components[id] = h
	}
	return nil
}

// Command returns the handler of a command name without prefix.
func (r *Registry) Command(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[name]
	return h, ok
}

// Component returns the handler of a component custom id.
func (r *Registry) Component(customID string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.components[customID]
	return h, ok
}

// List returns all registered modules ordered by name.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Name() < modules[j].Name() })
	return modules
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
