package plugin

// StateListener receives every change of one state field.
type StateListener func(Value)

// State is a native state field. It holds the current value and notifies the
// listener bound by its component on every Set.
//
// A State must be bound before it is set; StateField does this when the
// component is created.
type State[N Native] struct {
	value    N
	declared Type
	listener StateListener
}

// NewState returns a state holding an initial value.
func NewState[N Native](initial N) State[N] {
	return State[N]{value: initial}
}

func (s *State[N]) bind(declared Type, listener StateListener) {
	s.declared = declared
	s.listener = listener
}

// Get returns the current native value.
func (s *State[N]) Get() N { return s.value }

// Set stores v and notifies the bound listener.
func (s *State[N]) Set(v N) {
	if s.listener == nil {
		panic(contractViolation("state set before its component was created"))
	}
	s.value = v
	s.listener(TypedFrom(v, s.declared))
}

// Value returns the current value converted to the declared type.
func (s *State[N]) Value() Value {
	return TypedFrom(s.value, s.declared)
}
