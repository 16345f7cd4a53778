package plugin

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Phase is the lifecycle position of a component.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseConfigured
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseConfigured:
		return "configured"
	case PhaseRunning:
		return "running"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// StateHandler observes the state changes of one component.
type StateHandler func(state string, value Value)

// ComponentOption customizes a component at creation.
type ComponentOption func(*componentOptions)

type componentOptions struct {
	logger  *zap.Logger
	onState StateHandler
}

// WithLogger sets the logger used to trace the component.
func WithLogger(logger *zap.Logger) ComponentOption {
	return func(o *componentOptions) { o.logger = logger }
}

// WithStateHandler attaches the initial state handler.
func WithStateHandler(handler StateHandler) ComponentOption {
	return func(o *componentOptions) { o.onState = handler }
}

// component drives one instance of the native plugin type T. It is not safe
// for concurrent use.
type component[T any] struct {
	id      string
	runtime *pluginRuntime[T]
	native  *T
	phase   Phase
	onState StateHandler
	logger  *zap.Logger
}

func newComponent[T any](r *pluginRuntime[T], id string, opts ...ComponentOption) *component[T] {
	o := componentOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &component[T]{
		id:      id,
		runtime: r,
		native:  r.factory(id),
		onState: o.onState,
		logger:  o.logger.With(zap.String("component", id), zap.String("plugin", r.meta.ID())),
	}

	for name, accessor := range r.access.states {
		name := name
		accessor.Register(c.native, func(value Value) {
			c.notify(name, value)
		})
	}

	c.logger.Debug("Component created")
	return c
}

func (c *component[T]) notify(name string, value Value) {
	handler := c.onState
	if handler == nil {
		c.logger.Debug("State change dropped, no handler attached",
			zap.String("state", name),
			zap.Stringer("value", value))
		return
	}
	c.logger.Debug("State changed",
		zap.String("state", name),
		zap.Stringer("value", value))
	handler(name, value)
}

func (c *component[T]) ID() string          { return c.id }
func (c *component[T]) Metadata() *Metadata { return c.runtime.meta }
func (c *component[T]) Phase() Phase        { return c.phase }

// Native returns the native plugin value.
func (c *component[T]) Native() *T { return c.native }

func (c *component[T]) SetOnState(handler StateHandler) {
	c.onState = handler
}

func (c *component[T]) Configure(config Config) error {
	if c.phase != PhaseCreated {
		return fmt.Errorf("configure '%s': %w", c.id, ErrAlreadyConfigured)
	}

	names := make([]string, 0, len(c.runtime.access.config))
	for name := range c.runtime.access.config {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value, ok := config[name]
		if !ok {
			return fmt.Errorf("%w: '%s'", ErrConfigNotSet, name)
		}
		c.logger.Debug("Configuring",
			zap.String("config", name),
			zap.Stringer("value", value))
		if err := c.runtime.access.config[name](c.native, value); err != nil {
			return fmt.Errorf("config '%s': %w", name, err)
		}
	}

	c.phase = PhaseConfigured
	return nil
}

func (c *component[T]) Init() error {
	switch c.phase {
	case PhaseCreated:
		return fmt.Errorf("init '%s': %w", c.id, ErrNotConfigured)
	case PhaseRunning:
		return fmt.Errorf("init '%s': %w", c.id, ErrAlreadyInitialized)
	}

	if initializer, ok := any(c.native).(Initializer); ok {
		if err := initializer.Init(); err != nil {
			return fmt.Errorf("init '%s': %w", c.id, err)
		}
	}

	c.phase = PhaseRunning
	c.logger.Debug("Component initialized")
	return nil
}

func (c *component[T]) GetState(name string) (Value, error) {
	accessor, ok := c.runtime.access.states[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: '%s'", ErrNoSuchState, name)
	}
	return accessor.Get(c.native), nil
}

func (c *component[T]) ExecuteAction(name string, value Value) error {
	exec, ok := c.runtime.access.actions[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrNoSuchAction, name)
	}
	c.logger.Debug("Executing action",
		zap.String("action", name),
		zap.Stringer("value", value))
	if err := exec(c.native, value); err != nil {
		return fmt.Errorf("action '%s': %w", name, err)
	}
	return nil
}
