package plugin

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Value is a tagged instance of a Type, exchanged with components through
// state notifications, GetState and ExecuteAction.
type Value struct {
	kind  Kind
	num   int64
	text  string
	float float64
	flag  bool
}

func RangeValue(v int64) Value   { return Value{kind: KindRange, num: v} }
func TextValue(v string) Value   { return Value{kind: KindText, text: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, float: v} }
func BoolValue(v bool) Value     { return Value{kind: KindBool, flag: v} }
func EnumValue(v string) Value   { return Value{kind: KindEnum, text: v} }

// ComplexValue is reserved; no conversion accepts it.
func ComplexValue() Value { return Value{kind: KindComplex} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) String() string {
	switch v.kind {
	case KindRange:
		return fmt.Sprintf("Range(%d)", v.num)
	case KindText:
		return fmt.Sprintf("Text(%q)", v.text)
	case KindFloat:
		return fmt.Sprintf("Float(%s)", strconv.FormatFloat(v.float, 'g', -1, 64))
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.flag)
	case KindEnum:
		return fmt.Sprintf("Enum(%q)", v.text)
	case KindComplex:
		return "Complex"
	default:
		return "Value(unset)"
	}
}

// ConfigType is the type of a configuration item.
type ConfigType int

const (
	ConfigString ConfigType = iota + 1
	ConfigBool
	ConfigInteger
	ConfigFloat
)

func (t ConfigType) String() string {
	switch t {
	case ConfigString:
		return "string"
	case ConfigBool:
		return "bool"
	case ConfigInteger:
		return "integer"
	case ConfigFloat:
		return "float"
	default:
		return fmt.Sprintf("config-type(%d)", int(t))
	}
}

// ParseConfigType parses the name produced by ConfigType.String.
func ParseConfigType(s string) (ConfigType, error) {
	switch s {
	case "string":
		return ConfigString, nil
	case "bool":
		return ConfigBool, nil
	case "integer":
		return ConfigInteger, nil
	case "float":
		return ConfigFloat, nil
	default:
		return 0, fmt.Errorf("%w: unknown config type %q", ErrInvalidType, s)
	}
}

func (t ConfigType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ConfigType) UnmarshalText(text []byte) error {
	parsed, err := ParseConfigType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ConfigValue is a tagged instance of a ConfigType.
type ConfigValue struct {
	kind  ConfigType
	text  string
	flag  bool
	num   int64
	float float64
}

func StringConfig(v string) ConfigValue { return ConfigValue{kind: ConfigString, text: v} }
func BoolConfig(v bool) ConfigValue     { return ConfigValue{kind: ConfigBool, flag: v} }
func IntegerConfig(v int64) ConfigValue { return ConfigValue{kind: ConfigInteger, num: v} }
func FloatConfig(v float64) ConfigValue { return ConfigValue{kind: ConfigFloat, float: v} }

func (v ConfigValue) Type() ConfigType { return v.kind }

func (v ConfigValue) String() string {
	switch v.kind {
	case ConfigString:
		return fmt.Sprintf("String('%s')", v.text)
	case ConfigBool:
		return fmt.Sprintf("Bool(%t)", v.flag)
	case ConfigInteger:
		return fmt.Sprintf("Integer(%d)", v.num)
	case ConfigFloat:
		return fmt.Sprintf("Float(%s)", strconv.FormatFloat(v.float, 'g', -1, 64))
	default:
		return "ConfigValue(unset)"
	}
}

// UnmarshalYAML maps a YAML scalar onto a ConfigValue using its resolved tag.
func (v *ConfigValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: config value must be a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = BoolConfig(b)
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return err
		}
		*v = IntegerConfig(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = FloatConfig(f)
	case "!!str":
		*v = StringConfig(node.Value)
	default:
		return fmt.Errorf("line %d: unsupported config value tag %s", node.Line, node.ShortTag())
	}
	return nil
}

func (v ConfigValue) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case ConfigString:
		return v.text, nil
	case ConfigBool:
		return v.flag, nil
	case ConfigInteger:
		return v.num, nil
	case ConfigFloat:
		return v.float, nil
	default:
		return nil, fmt.Errorf("cannot marshal unset config value")
	}
}

// Config maps configuration item names to their values.
type Config map[string]ConfigValue
