// Package host drives the components of a running process: it creates them
// from their definitions, serializes calls per component, caches the latest
// value of every state and fans state changes out to subscribers.
package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"homecore/internal/clock"
	"homecore/internal/config"
	"homecore/internal/registry"
	"homecore/pkg/plugin"
)

var (
	ErrUnknownPlugin    = errors.New("unknown plugin")
	ErrUnknownComponent = errors.New("unknown component")
	ErrComponentExists  = errors.New("component already exists")
)

// StateChangeHandler is called when a component state changes
type StateChangeHandler func(componentID, state string, oldValue, newValue plugin.Value)

// Subscription represents an active state change subscription
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	key     stateRef
	id      uint64
	manager *Manager
}

func (s *subscription) Unsubscribe() {
	s.manager.unsubscribe(s.key, s.id)
}

type subscriber struct {
	id      uint64
	handler StateChangeHandler
}

type cachedState struct {
	value     plugin.Value
	changedAt time.Time
}

// managed guards one component: components are not safe for concurrent use.
type managed struct {
	mu        sync.Mutex
	component plugin.Component
	plugin    *registry.Plugin
}

// Manager owns the components of the process
type Manager struct {
	registry    *registry.Registry
	logger      *zap.Logger
	clock       clock.Clock
	components  map[string]*managed
	compMu      sync.RWMutex
	cache       map[string]map[string]cachedState
	cacheMu     sync.RWMutex
	subscribers map[stateRef][]subscriber
	subsMu      sync.RWMutex
	nextSubID   uint64
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the time source used to stamp state changes
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a new component manager
func NewManager(reg *registry.Registry, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		registry:    reg,
		logger:      logger.Named("host"),
		clock:       clock.NewRealClock(),
		components:  make(map[string]*managed),
		cache:       make(map[string]map[string]cachedState),
		subscribers: make(map[stateRef][]subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stateRef identifies one state of one component. Ids may contain dots, so
// the pair is never joined into a single string.
type stateRef struct {
	component string
	state     string
}

// Create instantiates, configures and initializes a component. The component
// is only kept if every step succeeds.
func (m *Manager) Create(id, pluginID string, cfg plugin.Config) (plugin.Component, error) {
	p, ok := m.registry.Plugin(pluginID)
	if !ok {
		return nil, fmt.Errorf("component %s: %w '%s'", id, ErrUnknownPlugin, pluginID)
	}

	m.compMu.Lock()
	defer m.compMu.Unlock()

	if _, exists := m.components[id]; exists {
		return nil, fmt.Errorf("component %s: %w", id, ErrComponentExists)
	}

	component := p.CreateComponent(id,
		plugin.WithLogger(m.logger),
		plugin.WithStateHandler(func(state string, value plugin.Value) {
			m.handleStateChange(id, state, value)
		}))

	if err := component.Configure(cfg); err != nil {
		m.dropCache(id)
		return nil, fmt.Errorf("failed to configure component %s: %w", id, err)
	}
	if err := component.Init(); err != nil {
		m.dropCache(id)
		return nil, fmt.Errorf("failed to init component %s: %w", id, err)
	}

	m.components[id] = &managed{component: component, plugin: p}

	m.logger.Info("Component created",
		zap.String("component", id),
		zap.String("plugin", pluginID),
		zap.String("version", p.Version()))
	return component, nil
}

// CreateAll creates every defined component, continuing past failures.
func (m *Manager) CreateAll(defs []config.ComponentDefinition) error {
	var errs error
	for _, def := range defs {
		if _, err := m.Create(def.ID, def.Plugin, def.Config); err != nil {
			m.logger.Error("Failed to create component",
				zap.String("component", def.ID),
				zap.String("plugin", def.Plugin),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Remove discards a component with its cached states and subscriptions
func (m *Manager) Remove(id string) error {
	m.compMu.Lock()
	_, ok := m.components[id]
	delete(m.components, id)
	m.compMu.Unlock()

	if !ok {
		return fmt.Errorf("component %s: %w", id, ErrUnknownComponent)
	}
	m.dropCache(id)
	m.dropSubscribers(id)
	m.logger.Info("Component removed", zap.String("component", id))
	return nil
}

// Components returns the ids of all components, sorted
func (m *Manager) Components() []string {
	m.compMu.RLock()
	defer m.compMu.RUnlock()

	ids := make([]string, 0, len(m.components))
	for id := range m.components {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Plugin returns the plugin type of a component
func (m *Manager) Plugin(id string) (*registry.Plugin, error) {
	entry, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return entry.plugin, nil
}

func (m *Manager) get(id string) (*managed, error) {
	m.compMu.RLock()
	entry, ok := m.components[id]
	m.compMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("component %s: %w", id, ErrUnknownComponent)
	}
	return entry, nil
}

// GetState reads a state directly from the component
func (m *Manager) GetState(componentID, state string) (plugin.Value, error) {
	entry, err := m.get(componentID)
	if err != nil {
		return plugin.Value{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.component.GetState(state)
}

// ExecuteAction runs an action on a component
func (m *Manager) ExecuteAction(componentID, action string, value plugin.Value) error {
	entry, err := m.get(componentID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.component.ExecuteAction(action, value); err != nil {
		return fmt.Errorf("component %s: %w", componentID, err)
	}
	return nil
}

// CachedState returns the last value notified for a state
func (m *Manager) CachedState(componentID, state string) (plugin.Value, bool) {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	cached, ok := m.cache[componentID][state]
	return cached.value, ok
}

// LastChanged returns when a state was last notified
func (m *Manager) LastChanged(componentID, state string) (time.Time, bool) {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	cached, ok := m.cache[componentID][state]
	return cached.changedAt, ok
}

// GetAllValues returns all cached values, by component then state
func (m *Manager) GetAllValues() map[string]map[string]plugin.Value {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	values := make(map[string]map[string]plugin.Value, len(m.cache))
	for id, states := range m.cache {
		values[id] = make(map[string]plugin.Value, len(states))
		for state, cached := range states {
			values[id][state] = cached.value
		}
	}
	return values
}

func (m *Manager) handleStateChange(componentID, state string, value plugin.Value) {
	m.cacheMu.Lock()
	states, ok := m.cache[componentID]
	if !ok {
		states = make(map[string]cachedState)
		m.cache[componentID] = states
	}
	oldValue := states[state].value
	states[state] = cachedState{value: value, changedAt: m.clock.Now()}
	m.cacheMu.Unlock()

	m.logger.Debug("State changed",
		zap.String("component", componentID),
		zap.String("state", state),
		zap.Stringer("old", oldValue),
		zap.Stringer("new", value))

	m.notifySubscribers(componentID, state, oldValue, value)
}

func (m *Manager) dropCache(componentID string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	delete(m.cache, componentID)
}

func (m *Manager) dropSubscribers(componentID string) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for key := range m.subscribers {
		if key.component == componentID {
			delete(m.subscribers, key)
		}
	}
}

// notifySubscribers notifies all subscribers of a state change
func (m *Manager) notifySubscribers(componentID, state string, oldValue, newValue plugin.Value) {
	m.subsMu.RLock()
	subs := slices.Clone(m.subscribers[stateRef{component: componentID, state: state}])
	m.subsMu.RUnlock()

	for _, sub := range subs {
		go sub.handler(componentID, state, oldValue, newValue)
	}
}

// Subscribe subscribes to changes of one state of a component
func (m *Manager) Subscribe(componentID, state string, handler StateChangeHandler) (Subscription, error) {
	entry, err := m.get(componentID)
	if err != nil {
		return nil, err
	}
	if member, ok := entry.component.Metadata().Member(state); !ok || member.Kind != plugin.MemberState {
		return nil, fmt.Errorf("component %s: %w: '%s'", componentID, plugin.ErrNoSuchState, state)
	}

	key := stateRef{component: componentID, state: state}

	m.subsMu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subscribers[key] = append(m.subscribers[key], subscriber{id: id, handler: handler})
	m.subsMu.Unlock()

	return &subscription{
		key:     key,
		id:      id,
		manager: m,
	}, nil
}

// unsubscribe removes one subscription for a key
func (m *Manager) unsubscribe(key stateRef, id uint64) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	m.subscribers[key] = slices.DeleteFunc(m.subscribers[key], func(s subscriber) bool { return s.id == id })
	if len(m.subscribers[key]) == 0 {
		delete(m.subscribers, key)
	}
}
