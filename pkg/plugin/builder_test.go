package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

type emptyPlugin struct{}

func newEmptyPlugin(string) *emptyPlugin { return &emptyPlugin{} }

func TestBuilder_Metadata(t *testing.T) {
	rt := exampleRuntime(t)
	meta := rt.Metadata()

	assert.Equal(t, "example-plugin", meta.Name())
	assert.Equal(t, "plugin description", meta.Description())
	assert.Equal(t, UsageLogic, meta.Usage())
	assert.Equal(t, "example-plugin", meta.ID())

	assert.Equal(t, []string{"level", "stateValue"}, meta.States())
	assert.Equal(t, []string{"fail", "setLevel", "setState"}, meta.Actions())

	member, ok := meta.Member("stateValue")
	require.True(t, ok)
	assert.Equal(t, MemberState, member.Kind)
	assert.Equal(t, "state description", member.Description)
	assert.True(t, member.Type.Equal(BoolType()))

	item, ok := meta.ConfigItem("configValue")
	require.True(t, ok)
	assert.Equal(t, ConfigItem{Description: "config description", Type: ConfigBool}, item)

	_, ok = meta.Member("configValue")
	assert.False(t, ok)
}

func TestBuilder_MissingPlugin(t *testing.T) {
	_, err := NewBuilder(newEmptyPlugin).Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNameNotSet)
	assert.ErrorIs(t, err, ErrUsageNotSet)

	_, err = NewBuilder(newEmptyPlugin).SetPlugin("empty", "", 0).Build()
	assert.ErrorIs(t, err, ErrUsageNotSet)
	assert.NotErrorIs(t, err, ErrNameNotSet)

	_, err = NewBuilder[emptyPlugin](nil).SetPlugin("empty", "", UsageUi).Build()
	assert.ErrorIs(t, err, ErrFactoryNotSet)
}

func TestBuilder_EmptyPlugin(t *testing.T) {
	rt, err := NewBuilder(newEmptyPlugin).SetPlugin("empty", "", UsageSensor).Build()
	require.NoError(t, err)

	assert.Empty(t, rt.Metadata().Members())
	assert.Empty(t, rt.Metadata().Config())

	c := rt.Create("e1")
	require.NoError(t, c.Configure(nil))
	require.NoError(t, c.Init())
}

func TestBuilder_InvalidDeclarations(t *testing.T) {
	b := NewBuilder(newExamplePlugin).SetPlugin("broken", "", UsageLogic)

	b.AddState("badRange", "", Type{kind: KindRange, min: 5, max: 1}, StateField(func(p *examplePlugin) *State[bool] { return &p.stateValue }, BoolType()))
	b.AddAction("badEnum", "", Type{kind: KindEnum, labels: []string{"only"}}, func(*examplePlugin, Value) error { return nil })
	b.AddAction("nilExec", "", BoolType(), nil)
	b.AddConfig("badConfig", "", ConfigType(42), func(*examplePlugin, ConfigValue) error { return nil })

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Contains(t, err.Error(), "state 'badRange'")
	assert.Contains(t, err.Error(), "action 'badEnum'")
	assert.Contains(t, err.Error(), "action 'nilExec': accessor is nil")
	assert.Contains(t, err.Error(), "config 'badConfig'")
}

func TestBuilder_LastWriteWins(t *testing.T) {
	b := NewBuilder(newExamplePlugin).SetPlugin("dup", "", UsageLogic)
	DeclareState(b, "value", "first", BoolType(), func(p *examplePlugin) *State[bool] { return &p.stateValue })
	DeclareAction(b, "value", "second", BoolType(), (*examplePlugin).setState)

	rt, err := b.Build()
	require.NoError(t, err)

	member, ok := rt.Metadata().Member("value")
	require.True(t, ok)
	assert.Equal(t, MemberAction, member.Kind)
	assert.Equal(t, "second", member.Description)

	// the runtime tables stay separate: the state is still bound and readable
	var changes []string
	c := rt.Create("c1", WithStateHandler(func(state string, value Value) {
		changes = append(changes, state+"="+value.String())
	}))
	require.NoError(t, c.ExecuteAction("value", BoolValue(true)))

	value, err := c.GetState("value")
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), value)
	assert.Equal(t, []string{"value=Bool(true)"}, changes)
}

func TestBuilder_StateOverwrittenByAction(t *testing.T) {
	b := NewBuilder(newExamplePlugin).SetPlugin("dup", "", UsageLogic)
	DeclareConfig(b, "configValue", "", func(p *examplePlugin) *bool { return &p.configValue })
	DeclareState(b, "stateValue", "", BoolType(), func(p *examplePlugin) *State[bool] { return &p.stateValue })
	DeclareAction(b, "stateValue", "", BoolType(), (*examplePlugin).setState)

	rt, err := b.Build()
	require.NoError(t, err)
	assert.Empty(t, rt.Metadata().States())

	c := rt.Create("c1")
	require.NoError(t, c.Configure(Config{"configValue": BoolConfig(true)}))
	require.NotPanics(t, func() {
		require.NoError(t, c.Init())
		require.NoError(t, c.ExecuteAction("stateValue", BoolValue(false)))
	})
	assert.False(t, nativeOf(t, c).stateValue.Get())
}

func TestBuilder_DeclaredTypeMustHoldNative(t *testing.T) {
	b := NewBuilder(newExamplePlugin).SetPlugin("mismatch", "", UsageLogic)

	violation := contractViolationOf(t, func() {
		DeclareState(b, "stateValue", "", TextType(), func(p *examplePlugin) *State[bool] { return &p.stateValue })
	})
	assert.Contains(t, violation.Error(), "member 'stateValue' declared as text cannot hold bool")

	contractViolationOf(t, func() {
		DeclareAction(b, "setLevel", "", FloatType(), (*examplePlugin).setLevel)
	})
}

func TestBuilder_BuildIsolatedFromLaterCalls(t *testing.T) {
	b := NewBuilder(newExamplePlugin).SetPlugin("iso", "", UsageLogic)
	DeclareAction(b, "setState", "", BoolType(), (*examplePlugin).setState)

	rt, err := b.Build()
	require.NoError(t, err)

	DeclareAction(b, "setLevel", "", MustRangeType(0, 100), (*examplePlugin).setLevel)

	assert.Equal(t, []string{"setState"}, rt.Metadata().Actions())
	assert.ErrorIs(t, rt.Create("c1").ExecuteAction("setLevel", RangeValue(1)), ErrNoSuchAction)
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plugin_logic_base", "logic-base"},
		{"logic_base", "logic-base"},
		{"logic-base", "logic-base"},
		{"LogicBase", "logic-base"},
		{"plugin_zwave", "zwave"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ModuleName(tt.input))
		})
	}
}

func TestBuilder_SetModule(t *testing.T) {
	rt, err := NewBuilder(newEmptyPlugin).
		SetPlugin("empty", "", UsageUi).
		SetModule("plugin_logic_base", "1.2.3").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "logic-base", rt.Metadata().Module())
	assert.Equal(t, "1.2.3", rt.Metadata().Version())
	assert.Equal(t, "logic-base.empty", rt.Metadata().ID())
}

func TestMetadata_YAML(t *testing.T) {
	b := NewBuilder(newExamplePlugin).
		SetPlugin("example", "demo", UsageActuator).
		SetModule("demo", "0.1.0")
	DeclareConfig(b, "configValue", "", func(p *examplePlugin) *bool { return &p.configValue })
	DeclareState(b, "level", "brightness", MustRangeType(0, 100), func(p *examplePlugin) *State[int64] { return &p.level })

	rt, err := b.Build()
	require.NoError(t, err)

	out, err := yaml.Marshal(rt.Metadata())
	require.NoError(t, err)
	assert.Equal(t, `name: example
module: demo
version: 0.1.0
description: demo
usage: actuator
members:
    level:
        description: brightness
        kind: state
        type: range[0;100]
config:
    configValue:
        type: bool
`, string(out))
}

func TestMetadata_LogObject(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("plugin", zap.Object("metadata", exampleRuntime(t).Metadata()))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()["metadata"].(map[string]interface{})
	assert.Equal(t, "example-plugin", fields["id"])
	assert.Equal(t, "logic", fields["usage"])
	assert.Equal(t, []interface{}{"level:range[0;100]", "stateValue:bool"}, fields["states"])
}

func TestUsage_Text(t *testing.T) {
	for _, u := range []Usage{UsageSensor, UsageActuator, UsageLogic, UsageUi} {
		parsed, err := ParseUsage(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, parsed)
	}
	_, err := ParseUsage("robot")
	assert.Error(t, err)
}
