// Package logicbase provides the logic-base module: plugin types that hold
// and transform values without touching devices.
package logicbase

import "homecore/pkg/plugin"

// ModuleName is the name the module registers under.
const ModuleName = "logic-base"

// Version of the logic-base module.
const Version = "0.2.0"

// ValueBinary is a step relay: a boolean state driven by on, off and toggle
// actions.
type ValueBinary struct {
	id     string
	config bool
	state  plugin.State[bool]
}

// NewValueBinary is the constructor of the value-binary plugin type.
func NewValueBinary(id string) *ValueBinary {
	return &ValueBinary{id: id}
}

// Init copies the configured initial value into the state.
func (v *ValueBinary) Init() error {
	v.state.Set(v.config)
	return nil
}

func (v *ValueBinary) On(arg bool) error {
	if arg {
		v.state.Set(true)
	}
	return nil
}

func (v *ValueBinary) Off(arg bool) error {
	if arg {
		v.state.Set(false)
	}
	return nil
}

func (v *ValueBinary) Toggle(arg bool) error {
	if arg {
		v.state.Set(!v.state.Get())
	}
	return nil
}

// ValueBinaryRuntime declares the value-binary plugin type.
func ValueBinaryRuntime() (plugin.Runtime, error) {
	b := plugin.NewBuilder(NewValueBinary).
		SetPlugin("value-binary", "step relay", plugin.UsageLogic).
		SetModule(ModuleName, Version)

	plugin.DeclareConfig(b, "config", "initial value", func(v *ValueBinary) *bool { return &v.config })
	plugin.DeclareState(b, "state", "actual value", plugin.BoolType(), func(v *ValueBinary) *plugin.State[bool] { return &v.state })
	plugin.DeclareAction(b, "on", "set value to on", plugin.BoolType(), (*ValueBinary).On)
	plugin.DeclareAction(b, "off", "set value to off", plugin.BoolType(), (*ValueBinary).Off)
	plugin.DeclareAction(b, "toggle", "toggle value", plugin.BoolType(), (*ValueBinary).Toggle)

	return b.Build()
}

// Register submits the plugin types of the module.
func Register(r plugin.Registrar) error {
	rt, err := ValueBinaryRuntime()
	if err != nil {
		return err
	}
	r.Register(rt)
	return nil
}

// Declaration is the descriptor of the module when compiled into the host.
func Declaration() plugin.ModuleDeclaration {
	return plugin.DeclareModule(Version, Register)
}
