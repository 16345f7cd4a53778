package plugin

// Accessors bound to one member of the native plugin type T. They are produced
// per field by the plugin author (or by ConfigField, StateField and
// ActionMethod) and recorded by the Builder.
type (
	ConfigSetter[T any]   func(p *T, value ConfigValue) error
	StateRegister[T any]  func(p *T, listener StateListener)
	StateGetter[T any]    func(p *T) Value
	ActionExecutor[T any] func(p *T, value Value) error
)

// StateAccessor pairs the registrar and getter of one state field.
type StateAccessor[T any] struct {
	Register StateRegister[T]
	Get      StateGetter[T]
}

// Access is the per-type dispatch table, keyed by member name.
type Access[T any] struct {
	config  map[string]ConfigSetter[T]
	states  map[string]StateAccessor[T]
	actions map[string]ActionExecutor[T]
}

func newAccess[T any]() *Access[T] {
	return &Access[T]{
		config:  make(map[string]ConfigSetter[T]),
		states:  make(map[string]StateAccessor[T]),
		actions: make(map[string]ActionExecutor[T]),
	}
}

func (a *Access[T]) ConfigSetter(name string) (ConfigSetter[T], bool) {
	setter, ok := a.config[name]
	return setter, ok
}

func (a *Access[T]) State(name string) (StateAccessor[T], bool) {
	accessor, ok := a.states[name]
	return accessor, ok
}

func (a *Access[T]) Action(name string) (ActionExecutor[T], bool) {
	exec, ok := a.actions[name]
	return exec, ok
}

// ConfigField returns a setter storing a config value into a native field.
func ConfigField[T any, N Native](field func(p *T) *N) ConfigSetter[T] {
	return func(p *T, value ConfigValue) error {
		native, err := ConfigInto[N](value)
		if err != nil {
			return err
		}
		*field(p) = native
		return nil
	}
}

// StateField returns the accessors of a State field holding values of the
// declared type.
func StateField[T any, N Native](field func(p *T) *State[N], declared Type) StateAccessor[T] {
	return StateAccessor[T]{
		Register: func(p *T, listener StateListener) {
			field(p).bind(declared, listener)
		},
		Get: func(p *T) Value {
			s := field(p)
			return TypedFrom(s.value, declared)
		},
	}
}

// ActionMethod returns an executor converting the action argument to N before
// calling method.
func ActionMethod[T any, N Native](method func(p *T, arg N) error, declared Type) ActionExecutor[T] {
	return func(p *T, value Value) error {
		arg, err := TypedTryInto[N](value, declared)
		if err != nil {
			return err
		}
		return method(p, arg)
	}
}

// accepts reports whether values of the declared type can be held by N.
func accepts[N Native](declared Type) bool {
	var zero N
	switch any(zero).(type) {
	case int64:
		return declared.kind == KindRange
	case string:
		return declared.kind == KindText || declared.kind == KindEnum
	case float64:
		return declared.kind == KindFloat
	default:
		return declared.kind == KindBool
	}
}

func mustAccept[N Native](member string, declared Type) {
	// Invalid types are reported by Build.
	if declared.Validate() == nil && !accepts[N](declared) {
		panic(contractViolation("member '%s' declared as %s cannot hold %s", member, declared, nativeName[N]()))
	}
}

// DeclareConfig records a config item stored in a native field.
func DeclareConfig[T any, N Native](b *Builder[T], name, description string, field func(p *T) *N) *Builder[T] {
	return b.AddConfig(name, description, ConfigTypeOf[N](), ConfigField(field))
}

// DeclareState records a state backed by a State field. A declared type that
// cannot hold N is a contract violation.
func DeclareState[T any, N Native](b *Builder[T], name, description string, declared Type, field func(p *T) *State[N]) *Builder[T] {
	mustAccept[N](name, declared)
	return b.AddState(name, description, declared, StateField(field, declared))
}

// DeclareAction records an action implemented by a method of T. A declared
// type that cannot hold N is a contract violation.
func DeclareAction[T any, N Native](b *Builder[T], name, description string, declared Type, method func(p *T, arg N) error) *Builder[T] {
	mustAccept[N](name, declared)
	return b.AddAction(name, description, declared, ActionMethod(method, declared))
}
