// Package registry loads plugin modules and exposes the plugin types they
// declare. A Registry is assembled once by a Builder and is read-only
// afterwards, so lookups are safe from concurrent readers.
package registry

import (
	"slices"
	"strings"

	"homecore/pkg/plugin"
)

// Module is one loaded unit bundling plugin types. A module stays referenced
// by every Plugin it produced, so its library is kept resident while any of
// them is reachable.
type Module struct {
	name    string
	version string
	path    string
	lib     Library
	plugins []*Plugin
}

// Name returns the kebab-case module name.
func (m *Module) Name() string { return m.name }

// Version returns the module's own semantic version.
func (m *Module) Version() string { return m.version }

// Path returns the file the module was loaded from, empty for built-in modules.
func (m *Module) Path() string { return m.path }

// Plugins returns the plugin types of the module sorted by id.
func (m *Module) Plugins() []*Plugin { return slices.Clone(m.plugins) }

// Plugin is a registered plugin type.
type Plugin struct {
	id      string
	runtime plugin.Runtime
	module  *Module
}

// ID returns the qualified id "<module>.<plugin-name>".
func (p *Plugin) ID() string { return p.id }

func (p *Plugin) Module() *Module { return p.module }

func (p *Plugin) Version() string { return p.module.version }

func (p *Plugin) Metadata() *plugin.Metadata { return p.runtime.Metadata() }

// CreateComponent instantiates a component of the plugin type.
func (p *Plugin) CreateComponent(id string, opts ...plugin.ComponentOption) plugin.Component {
	return p.runtime.Create(id, opts...)
}

// Registry maps qualified ids to plugin types and names to modules.
type Registry struct {
	plugins map[string]*Plugin
	modules map[string]*Module
}

// Plugin returns the plugin type with the given qualified id.
func (r *Registry) Plugin(id string) (*Plugin, bool) {
	p, ok := r.plugins[id]
	return p, ok
}

// Plugins returns every plugin type sorted by id.
func (r *Registry) Plugins() []*Plugin {
	result := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b *Plugin) int { return strings.Compare(a.id, b.id) })
	return result
}

// Module returns the module with the given name.
func (r *Registry) Module(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Modules returns every module sorted by name.
func (r *Registry) Modules() []*Module {
	result := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		result = append(result, m)
	}
	slices.SortFunc(result, func(a, b *Module) int { return strings.Compare(a.name, b.name) })
	return result
}

// Names returns the ids of every plugin type, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		names = append(names, id)
	}
	slices.Sort(names)
	return names
}
