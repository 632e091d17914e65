package plugin

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/settings"
)

// ErrDuplicatePlugin is returned when a name is registered twice.
var ErrDuplicatePlugin = errors.New("plugin already registered")

// Func mutates settings from the environment.
type Func func(env environ.Environment, s settings.Settings) error

// Plugin is a named transform.
type Plugin struct {
	Name  string
	Apply Func
}

// Registry runs plugins in registration order.
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default registers the stock plugins using the given naming convention.
func Default(naming environ.Naming) *Registry {
	r := NewRegistry()
	r.MustRegister("database", Database)
	r.MustRegister("framework", Framework(naming))
	r.MustRegister("memcached", Memcached)
	r.MustRegister("redis", Redis)
	return r
}

// Register appends a plugin.
func (r *Registry) Register(name string, fn Func) error {
	for _, p := range r.plugins {
		if p.Name == name {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}
	}
	r.plugins = append(r.plugins, Plugin{Name: name, Apply: fn})
	return nil
}

// MustRegister is Register for static wiring.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Names lists registered plugins in invocation order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name
	}
	return names
}

// Apply runs every plugin and stops at the first failure.
func (r *Registry) Apply(env environ.Environment, s settings.Settings) error {
	for _, p := range r.plugins {
		if err := p.Apply(env, s); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name, err)
		}
	}
	return nil
}
