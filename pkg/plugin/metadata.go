package plugin

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap/zapcore"
)

// Usage is the coarse role of a plugin type.
type Usage int

const (
	UsageSensor Usage = iota + 1
	UsageActuator
	UsageLogic
	UsageUi
)

func (u Usage) String() string {
	switch u {
	case UsageSensor:
		return "sensor"
	case UsageActuator:
		return "actuator"
	case UsageLogic:
		return "logic"
	case UsageUi:
		return "ui"
	default:
		return fmt.Sprintf("usage(%d)", int(u))
	}
}

// ParseUsage parses the name produced by Usage.String.
func ParseUsage(s string) (Usage, error) {
	switch s {
	case "sensor":
		return UsageSensor, nil
	case "actuator":
		return UsageActuator, nil
	case "logic":
		return UsageLogic, nil
	case "ui":
		return UsageUi, nil
	default:
		return 0, fmt.Errorf("unknown plugin usage %q", s)
	}
}

func (u Usage) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *Usage) UnmarshalText(text []byte) error {
	parsed, err := ParseUsage(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MemberKind tells whether a member is an observable state or a callable action.
type MemberKind int

const (
	MemberState MemberKind = iota + 1
	MemberAction
)

func (k MemberKind) String() string {
	switch k {
	case MemberState:
		return "state"
	case MemberAction:
		return "action"
	default:
		return fmt.Sprintf("member-kind(%d)", int(k))
	}
}

func (k MemberKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Member describes a state or an action of a plugin type.
type Member struct {
	Description string     `yaml:"description,omitempty"`
	Kind        MemberKind `yaml:"kind"`
	Type        Type       `yaml:"type"`
}

// ConfigItem describes a configuration field of a plugin type.
type ConfigItem struct {
	Description string     `yaml:"description,omitempty"`
	Type        ConfigType `yaml:"type"`
}

// Metadata is the immutable descriptor of a plugin type. It is built once by a
// Builder and shared by every component of that type.
type Metadata struct {
	name        string
	module      string
	version     string
	description string
	usage       Usage
	members     map[string]Member
	config      map[string]ConfigItem
}

func (m *Metadata) Name() string        { return m.name }
func (m *Metadata) Module() string      { return m.module }
func (m *Metadata) Version() string     { return m.version }
func (m *Metadata) Description() string { return m.description }
func (m *Metadata) Usage() Usage        { return m.usage }

// ID returns the qualified id "<module>.<name>", or the bare name when the
// plugin type does not belong to a module.
func (m *Metadata) ID() string {
	if m.module == "" {
		return m.name
	}
	return m.module + "." + m.name
}

// Member returns the named state or action.
func (m *Metadata) Member(name string) (Member, bool) {
	member, ok := m.members[name]
	return member, ok
}

// Members returns a copy of the member table.
func (m *Metadata) Members() map[string]Member { return maps.Clone(m.members) }

// ConfigItem returns the named configuration field.
func (m *Metadata) ConfigItem(name string) (ConfigItem, bool) {
	item, ok := m.config[name]
	return item, ok
}

// Config returns a copy of the configuration table.
func (m *Metadata) Config() map[string]ConfigItem { return maps.Clone(m.config) }

// States returns the sorted names of the declared states.
func (m *Metadata) States() []string { return m.memberNames(MemberState) }

// Actions returns the sorted names of the declared actions.
func (m *Metadata) Actions() []string { return m.memberNames(MemberAction) }

func (m *Metadata) memberNames(kind MemberKind) []string {
	names := make([]string, 0, len(m.members))
	for name, member := range m.members {
		if member.Kind == kind {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *Metadata) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", m.ID())
	enc.AddString("usage", m.usage.String())
	if m.version != "" {
		enc.AddString("version", m.version)
	}
	if err := enc.AddArray("states", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, name := range m.States() {
			ae.AppendString(name + ":" + m.members[name].Type.String())
		}
		return nil
	})); err != nil {
		return err
	}
	return enc.AddArray("actions", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, name := range m.Actions() {
			ae.AppendString(name + ":" + m.members[name].Type.String())
		}
		return nil
	}))
}

// descriptor is the serialized form of Metadata.
type descriptor struct {
	Name        string                `yaml:"name"`
	Module      string                `yaml:"module,omitempty"`
	Version     string                `yaml:"version,omitempty"`
	Description string                `yaml:"description,omitempty"`
	Usage       Usage                 `yaml:"usage"`
	Members     map[string]Member     `yaml:"members,omitempty"`
	Config      map[string]ConfigItem `yaml:"config,omitempty"`
}

// MarshalYAML renders the descriptor of the plugin type. The host logs it at
// Debug for every registered plugin.
func (m *Metadata) MarshalYAML() (interface{}, error) {
	return descriptor{
		Name:        m.name,
		Module:      m.module,
		Version:     m.version,
		Description: m.description,
		Usage:       m.usage,
		Members:     m.members,
		Config:      m.config,
	}, nil
}
