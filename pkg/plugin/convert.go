package plugin

import "fmt"

// Native is the set of native scalar types a plugin field may use.
type Native interface {
	int64 | string | float64 | bool
}

func nativeName[N Native]() string {
	var zero N
	switch any(zero).(type) {
	case int64:
		return "int64"
	case string:
		return "string"
	case float64:
		return "float64"
	default:
		return "bool"
	}
}

// TypedFrom converts a native value produced by a plugin accessor into a Value
// of the declared type.
//
// The declared type is fixed at registration and the accessor is generated to
// agree with it, so a mismatch panics with a *ContractViolationError.
func TypedFrom[N Native](native N, declared Type) Value {
	switch n := any(native).(type) {
	case int64:
		if declared.kind == KindRange && declared.min <= n && n <= declared.max {
			return RangeValue(n)
		}
	case string:
		switch declared.kind {
		case KindText:
			return TextValue(n)
		case KindEnum:
			if !declared.HasLabel(n) {
				panic(contractViolation("unexpected enum value '%s' (possible values: %v)", n, declared.labels))
			}
			return EnumValue(n)
		}
	case float64:
		if declared.kind == KindFloat {
			return FloatValue(n)
		}
	case bool:
		if declared.kind == KindBool {
			return BoolValue(n)
		}
	}

	panic(contractViolation("cannot convert %s %v to value of type %s", nativeName[N](), native, declared))
}

// ConversionReason distinguishes the two soft conversion failures.
type ConversionReason int

const (
	// TypeMismatch means the declared type cannot hold the requested native type.
	TypeMismatch ConversionReason = iota + 1
	// ValueMismatch means the value disagrees with the declared type.
	ValueMismatch
)

// ConversionError is returned by TypedTryInto.
type ConversionError struct {
	Reason     ConversionReason
	NativeType string
	Type       Type
	Value      Value
}

func (e *ConversionError) Error() string {
	if e.Reason == TypeMismatch {
		return fmt.Sprintf("type mismatch: cannot convert %s into %s", e.Type, e.NativeType)
	}
	return fmt.Sprintf("value mismatch: cannot convert value %s of type %s into %s", e.Value, e.Type, e.NativeType)
}

func (e *ConversionError) Is(target error) bool {
	switch target {
	case ErrTypeMismatch:
		return e.Reason == TypeMismatch
	case ErrValueMismatch:
		return e.Reason == ValueMismatch
	}
	return false
}

// TypedTryInto converts an externally supplied Value into a native value,
// checking it against the declared type.
func TypedTryInto[N Native](value Value, declared Type) (N, error) {
	var zero N

	typeMismatch := func() (N, error) {
		return zero, &ConversionError{Reason: TypeMismatch, NativeType: nativeName[N](), Type: declared}
	}
	valueMismatch := func() (N, error) {
		return zero, &ConversionError{Reason: ValueMismatch, NativeType: nativeName[N](), Type: declared, Value: value}
	}

	switch any(zero).(type) {
	case int64:
		if declared.kind != KindRange {
			return typeMismatch()
		}
		if value.kind != KindRange || value.num < declared.min || value.num > declared.max {
			return valueMismatch()
		}
		return any(value.num).(N), nil

	case string:
		switch declared.kind {
		case KindText:
			if value.kind == KindText {
				return any(value.text).(N), nil
			}
		case KindEnum:
			if value.kind == KindEnum && declared.HasLabel(value.text) {
				return any(value.text).(N), nil
			}
		default:
			return typeMismatch()
		}
		return valueMismatch()

	case float64:
		if declared.kind != KindFloat {
			return typeMismatch()
		}
		if value.kind != KindFloat {
			return valueMismatch()
		}
		return any(value.float).(N), nil

	default:
		if declared.kind != KindBool {
			return typeMismatch()
		}
		if value.kind != KindBool {
			return valueMismatch()
		}
		return any(value.flag).(N), nil
	}
}

// ConfigConversionError is returned when a config value does not carry the
// type its setter expects.
type ConfigConversionError struct {
	Expected ConfigType
	Actual   ConfigValue
}

func (e *ConfigConversionError) Error() string {
	return fmt.Sprintf("could not convert config value (expected type: %s, actual value: %s)", e.Expected, e.Actual)
}

func (e *ConfigConversionError) Is(target error) bool { return target == ErrConfigTypeMismatch }

// ConfigTypeOf returns the config type matching a native type.
func ConfigTypeOf[N Native]() ConfigType {
	var zero N
	switch any(zero).(type) {
	case int64:
		return ConfigInteger
	case string:
		return ConfigString
	case float64:
		return ConfigFloat
	default:
		return ConfigBool
	}
}

// ConfigFrom wraps a native value into a ConfigValue.
func ConfigFrom[N Native](native N) ConfigValue {
	switch n := any(native).(type) {
	case int64:
		return IntegerConfig(n)
	case string:
		return StringConfig(n)
	case float64:
		return FloatConfig(n)
	default:
		return BoolConfig(any(native).(bool))
	}
}

// ConfigInto extracts a native value from a ConfigValue. Tags must match exactly.
func ConfigInto[N Native](value ConfigValue) (N, error) {
	var zero N
	expected := ConfigTypeOf[N]()
	if value.kind != expected {
		return zero, &ConfigConversionError{Expected: expected, Actual: value}
	}

	switch expected {
	case ConfigInteger:
		return any(value.num).(N), nil
	case ConfigString:
		return any(value.text).(N), nil
	case ConfigFloat:
		return any(value.float).(N), nil
	default:
		return any(value.flag).(N), nil
	}
}
