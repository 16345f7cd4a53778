package host

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"homecore/internal/clock"
	"homecore/internal/config"
	"homecore/internal/plugins/logicbase"
	"homecore/internal/registry"
	"homecore/pkg/plugin"
)

const valueBinary = "logic-base.value-binary"

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)

	reg, err := registry.BuildFrom(logger,
		registry.StaticModule{Name: logicbase.ModuleName, Declaration: logicbase.Declaration()})
	require.NoError(t, err)

	return NewManager(reg, logger, opts...)
}

func relayConfig(initial bool) plugin.Config {
	return plugin.Config{"config": plugin.BoolConfig(initial)}
}

func TestManager_Create(t *testing.T) {
	manager := newTestManager(t)

	c, err := manager.Create("relay", valueBinary, relayConfig(true))
	require.NoError(t, err)
	assert.Equal(t, plugin.PhaseRunning, c.Phase())
	assert.Equal(t, []string{"relay"}, manager.Components())

	value, err := manager.GetState("relay", "state")
	require.NoError(t, err)
	assert.Equal(t, plugin.BoolValue(true), value)

	cached, ok := manager.CachedState("relay", "state")
	require.True(t, ok)
	assert.Equal(t, plugin.BoolValue(true), cached)

	p, err := manager.Plugin("relay")
	require.NoError(t, err)
	assert.Equal(t, valueBinary, p.ID())
}

func TestManager_Create_Errors(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		plugin  string
		config  plugin.Config
		wantErr error
	}{
		{"unknown plugin", "other", "logic-base.missing", relayConfig(true), ErrUnknownPlugin},
		{"duplicate id", "relay", valueBinary, relayConfig(true), ErrComponentExists},
		{"missing config", "bare", valueBinary, plugin.Config{}, plugin.ErrConfigNotSet},
		{"config type mismatch", "typed", valueBinary, plugin.Config{"config": plugin.StringConfig("yes")}, plugin.ErrConfigTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Create(tt.id, tt.plugin, tt.config)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, []string{"relay"}, manager.Components())
	_, ok := manager.CachedState("bare", "state")
	assert.False(t, ok)
}

func TestManager_CreateAll(t *testing.T) {
	manager := newTestManager(t)

	err := manager.CreateAll([]config.ComponentDefinition{
		{ID: "a", Plugin: valueBinary, Config: relayConfig(true)},
		{ID: "b", Plugin: "nowhere.nothing"},
		{ID: "c", Plugin: valueBinary, Config: relayConfig(false)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPlugin)
	assert.Equal(t, []string{"a", "c"}, manager.Components())
}

func TestManager_ExecuteAction(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	require.NoError(t, manager.ExecuteAction("relay", "toggle", plugin.BoolValue(true)))

	value, err := manager.GetState("relay", "state")
	require.NoError(t, err)
	assert.Equal(t, plugin.BoolValue(true), value)
	assert.Equal(t, map[string]map[string]plugin.Value{
		"relay": {"state": plugin.BoolValue(true)},
	}, manager.GetAllValues())

	err = manager.ExecuteAction("relay", "explode", plugin.BoolValue(true))
	assert.ErrorIs(t, err, plugin.ErrNoSuchAction)

	err = manager.ExecuteAction("ghost", "on", plugin.BoolValue(true))
	assert.ErrorIs(t, err, ErrUnknownComponent)

	_, err = manager.GetState("ghost", "state")
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestManager_Subscribe(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	type change struct {
		component string
		old, new  plugin.Value
	}
	var mu sync.Mutex
	var changes []change

	sub, err := manager.Subscribe("relay", "state", func(componentID, state string, oldValue, newValue plugin.Value) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, change{componentID, oldValue, newValue})
	})
	require.NoError(t, err)

	require.NoError(t, manager.ExecuteAction("relay", "on", plugin.BoolValue(true)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, change{"relay", plugin.BoolValue(false), plugin.BoolValue(true)}, changes[0])
	mu.Unlock()

	sub.Unsubscribe()
	require.NoError(t, manager.ExecuteAction("relay", "off", plugin.BoolValue(true)))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, changes, 1)
	mu.Unlock()
}

func TestManager_Subscribe_Errors(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	noop := func(string, string, plugin.Value, plugin.Value) {}

	_, err = manager.Subscribe("ghost", "state", noop)
	assert.ErrorIs(t, err, ErrUnknownComponent)

	_, err = manager.Subscribe("relay", "toggle", noop)
	assert.ErrorIs(t, err, plugin.ErrNoSuchState)
}

func TestManager_UnsubscribeKeepsOthers(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	var mu sync.Mutex
	calls := map[string]int{}
	handler := func(name string) StateChangeHandler {
		return func(string, string, plugin.Value, plugin.Value) {
			mu.Lock()
			calls[name]++
			mu.Unlock()
		}
	}

	first, err := manager.Subscribe("relay", "state", handler("first"))
	require.NoError(t, err)
	_, err = manager.Subscribe("relay", "state", handler("second"))
	require.NoError(t, err)

	first.Unsubscribe()
	require.NoError(t, manager.ExecuteAction("relay", "on", plugin.BoolValue(true)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls["second"] == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Zero(t, calls["first"])
	mu.Unlock()
}

func TestManager_Remove(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(true))
	require.NoError(t, err)

	require.NoError(t, manager.Remove("relay"))
	assert.Empty(t, manager.Components())
	assert.Empty(t, manager.GetAllValues())

	err = manager.Remove("relay")
	assert.True(t, errors.Is(err, ErrUnknownComponent))
}

func TestManager_DottedIDs(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("hall", valueBinary, relayConfig(false))
	require.NoError(t, err)
	_, err = manager.Create("hall.lamp", valueBinary, relayConfig(true))
	require.NoError(t, err)

	require.NoError(t, manager.Remove("hall"))

	cached, ok := manager.CachedState("hall.lamp", "state")
	require.True(t, ok)
	assert.Equal(t, plugin.BoolValue(true), cached)
	assert.Equal(t, map[string]map[string]plugin.Value{
		"hall.lamp": {"state": plugin.BoolValue(true)},
	}, manager.GetAllValues())

	_, ok = manager.CachedState("hall", "lamp.state")
	assert.False(t, ok)
}

func TestManager_RemoveDropsSubscriptions(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	sub, err := manager.Subscribe("relay", "state", func(string, string, plugin.Value, plugin.Value) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, manager.Remove("relay"))
	_, err = manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)
	require.NoError(t, manager.ExecuteAction("relay", "on", plugin.BoolValue(true)))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()

	// unsubscribing after removal is harmless
	sub.Unsubscribe()
}

func TestManager_ConcurrentActions(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.ExecuteAction("relay", "toggle", plugin.BoolValue(true)))
			_, err := manager.GetState("relay", "state")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// an even number of toggles brings the relay back to its initial value
	value, err := manager.GetState("relay", "state")
	require.NoError(t, err)
	assert.Equal(t, plugin.BoolValue(false), value)
}

func TestManager_LastChanged(t *testing.T) {
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	mockClock := clock.NewMockClock(start)
	manager := newTestManager(t, WithClock(mockClock))

	_, err := manager.Create("relay", valueBinary, relayConfig(false))
	require.NoError(t, err)

	changedAt, ok := manager.LastChanged("relay", "state")
	require.True(t, ok)
	assert.Equal(t, start, changedAt)

	mockClock.Advance(5 * time.Minute)
	require.NoError(t, manager.ExecuteAction("relay", "on", plugin.BoolValue(true)))

	changedAt, ok = manager.LastChanged("relay", "state")
	require.True(t, ok)
	assert.Equal(t, start.Add(5*time.Minute), changedAt)

	_, ok = manager.LastChanged("relay", "missing")
	assert.False(t, ok)
}
