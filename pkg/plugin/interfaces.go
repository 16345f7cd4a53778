// Package plugin provides the typed plugin runtime of the home automation
// core. Plugin types declare their configuration, observable states and
// actions through a Builder; the resulting Runtime creates Components that the
// host drives without knowing their native representation. Plugin types are
// bundled into modules, either compiled into the host or loaded at runtime
// through a ModuleDeclaration.
package plugin

// Runtime is the capability surface of one plugin type.
type Runtime interface {
	// Metadata returns the immutable descriptor shared by every component
	// of this type.
	Metadata() *Metadata

	// Create instantiates a new component.
	// - Calls the native constructor with id
	// - Binds every declared state to the component before returning
	// - id uniqueness is the caller's responsibility
	Create(id string, opts ...ComponentOption) Component
}

// Component is one instance of a plugin type. Components have no internal
// synchronization; callers serialize access per instance.
type Component interface {
	// ID returns the caller-supplied identifier.
	ID() string

	// Metadata returns the descriptor of the component's plugin type.
	Metadata() *Metadata

	// Phase returns the lifecycle position of the component.
	Phase() Phase

	// SetOnState replaces the state-change handler. Changes raised while
	// no handler is attached are dropped.
	SetOnState(handler StateHandler)

	// Configure applies every declared config item.
	// - Returns ErrConfigNotSet if a declared key is missing
	// - Stops at the first failing setter without rolling back
	// - Accepted once, before Init
	Configure(config Config) error

	// Init runs the native post-configuration hook exactly once.
	Init() error

	// GetState returns the current value of a declared state.
	GetState(name string) (Value, error)

	// ExecuteAction converts value to the action's native argument and
	// invokes the native handler. Conversion and handler failures share the
	// returned error.
	ExecuteAction(name string, value Value) error
}

// Initializer is implemented by native plugin types that need a
// post-configuration hook.
type Initializer interface {
	Init() error
}

// Registrar collects the plugin types of one module during registration.
type Registrar interface {
	Register(runtime Runtime)
}

// NativeOf returns the native plugin value behind a component created by a
// Runtime of T.
func NativeOf[T any](c Component) (*T, bool) {
	n, ok := c.(interface{ Native() *T })
	if !ok {
		return nil, false
	}
	return n.Native(), true
}
