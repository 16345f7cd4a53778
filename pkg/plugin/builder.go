package plugin

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/multierr"
)

// Builder assembles the Metadata and Access table of the native plugin type T.
//
// Declarations may come in any order. Invalid declarations are collected and
// reported together by Build. Declaring a member name twice keeps the last
// declaration.
type Builder[T any] struct {
	factory func(id string) *T
	meta    Metadata
	access  *Access[T]
	errs    error
}

// NewBuilder starts the declaration of a plugin type whose components are
// created by factory.
func NewBuilder[T any](factory func(id string) *T) *Builder[T] {
	return &Builder[T]{
		factory: factory,
		meta: Metadata{
			members: make(map[string]Member),
			config:  make(map[string]ConfigItem),
		},
		access: newAccess[T](),
	}
}

// SetPlugin sets the name, description and usage of the plugin type.
func (b *Builder[T]) SetPlugin(name, description string, usage Usage) *Builder[T] {
	b.meta.name = name
	b.meta.description = description
	b.meta.usage = usage
	return b
}

// SetModule records the module bundling the plugin type. The name is
// normalized to kebab case without a leading "plugin-".
func (b *Builder[T]) SetModule(name, version string) *Builder[T] {
	b.meta.module = ModuleName(name)
	b.meta.version = version
	return b
}

// ModuleName normalizes a module name: "plugin_logic_base" becomes "logic-base".
func ModuleName(name string) string {
	return strings.TrimPrefix(strcase.ToKebab(name), "plugin-")
}

func (b *Builder[T]) AddConfig(name, description string, t ConfigType, setter ConfigSetter[T]) *Builder[T] {
	if setter == nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("config '%s': setter is nil", name))
		return b
	}
	if t < ConfigString || t > ConfigFloat {
		b.errs = multierr.Append(b.errs, fmt.Errorf("config '%s': %w: %s", name, ErrInvalidType, t))
		return b
	}
	b.meta.config[name] = ConfigItem{Description: description, Type: t}
	b.access.config[name] = setter
	return b
}

func (b *Builder[T]) AddState(name, description string, t Type, accessor StateAccessor[T]) *Builder[T] {
	if !b.checkMember("state", name, t, accessor.Register != nil && accessor.Get != nil) {
		return b
	}
	b.meta.members[name] = Member{Description: description, Kind: MemberState, Type: t}
	b.access.states[name] = accessor
	return b
}

func (b *Builder[T]) AddAction(name, description string, t Type, exec ActionExecutor[T]) *Builder[T] {
	if !b.checkMember("action", name, t, exec != nil) {
		return b
	}
	b.meta.members[name] = Member{Description: description, Kind: MemberAction, Type: t}
	b.access.actions[name] = exec
	return b
}

func (b *Builder[T]) checkMember(kind, name string, t Type, hasAccessor bool) bool {
	if err := t.Validate(); err != nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("%s '%s': %w", kind, name, err))
		return false
	}
	if !hasAccessor {
		b.errs = multierr.Append(b.errs, fmt.Errorf("%s '%s': accessor is nil", kind, name))
		return false
	}
	return true
}

// Build validates the declarations and returns the runtime of the plugin type.
func (b *Builder[T]) Build() (Runtime, error) {
	errs := b.errs
	if b.meta.name == "" {
		errs = multierr.Append(errs, ErrNameNotSet)
	}
	if b.meta.usage == 0 {
		errs = multierr.Append(errs, ErrUsageNotSet)
	}
	if b.factory == nil {
		errs = multierr.Append(errs, ErrFactoryNotSet)
	}
	if errs != nil {
		return nil, fmt.Errorf("building plugin '%s': %w", b.meta.name, errs)
	}

	meta := b.meta
	meta.members = cloneMap(b.meta.members)
	meta.config = cloneMap(b.meta.config)

	access := &Access[T]{
		config:  cloneMap(b.access.config),
		states:  cloneMap(b.access.states),
		actions: cloneMap(b.access.actions),
	}

	return &pluginRuntime[T]{meta: &meta, access: access, factory: b.factory}, nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// pluginRuntime is the Runtime of the native plugin type T.
type pluginRuntime[T any] struct {
	meta    *Metadata
	access  *Access[T]
	factory func(id string) *T
}

func (r *pluginRuntime[T]) Metadata() *Metadata { return r.meta }

func (r *pluginRuntime[T]) Create(id string, opts ...ComponentOption) Component {
	return newComponent(r, id, opts...)
}
