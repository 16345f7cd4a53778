package plugin

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the shape of a Type or a Value.
type Kind int

const (
	KindRange Kind = iota + 1
	KindText
	KindFloat
	KindBool
	KindEnum
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindComplex:
		return "complex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type constrains the legal values of a state or action member.
//
// Types are built with the constructors below or with ParseType; the zero Type
// is invalid. The canonical encoding is the one produced by String:
//
//	range[-12;42]  text  float  bool  enum{one,two,three}  complex
type Type struct {
	kind   Kind
	min    int64
	max    int64
	labels []string
}

// labelPattern keeps enum labels free of the grammar's delimiters so that
// formatting stays injective.
var labelPattern = regexp.MustCompile(`^[\w\-]+$`)

// NewRangeType returns a bounded integer type. min must be strictly lower than max.
func NewRangeType(min, max int64) (Type, error) {
	t := Type{kind: KindRange, min: min, max: max}
	if err := t.Validate(); err != nil {
		return Type{}, err
	}
	return t, nil
}

// NewEnumType returns an enumeration of at least two distinct labels.
func NewEnumType(labels ...string) (Type, error) {
	t := Type{kind: KindEnum, labels: slices.Clone(labels)}
	if err := t.Validate(); err != nil {
		return Type{}, err
	}
	return t, nil
}

// MustRangeType is like NewRangeType but panics on invalid bounds.
func MustRangeType(min, max int64) Type {
	t, err := NewRangeType(min, max)
	if err != nil {
		panic(err)
	}
	return t
}

// MustEnumType is like NewEnumType but panics on invalid labels.
func MustEnumType(labels ...string) Type {
	t, err := NewEnumType(labels...)
	if err != nil {
		panic(err)
	}
	return t
}

func TextType() Type    { return Type{kind: KindText} }
func FloatType() Type   { return Type{kind: KindFloat} }
func BoolType() Type    { return Type{kind: KindBool} }
func ComplexType() Type { return Type{kind: KindComplex} }

func (t Type) Kind() Kind { return t.kind }

// Bounds returns the inclusive bounds of a range type.
func (t Type) Bounds() (min, max int64) { return t.min, t.max }

// Labels returns a copy of the labels of an enum type.
func (t Type) Labels() []string { return slices.Clone(t.labels) }

// HasLabel reports whether label belongs to an enum type.
func (t Type) HasLabel(label string) bool {
	return t.kind == KindEnum && slices.Contains(t.labels, label)
}

// Validate checks the invariants of the type.
func (t Type) Validate() error {
	switch t.kind {
	case KindRange:
		if t.min >= t.max {
			return fmt.Errorf("%w: range min (%d) must be lower than max (%d)", ErrInvalidType, t.min, t.max)
		}
	case KindEnum:
		if len(t.labels) < 2 {
			return fmt.Errorf("%w: enum needs at least 2 values, got %v", ErrInvalidType, t.labels)
		}
		seen := make(map[string]struct{}, len(t.labels))
		for _, label := range t.labels {
			if !labelPattern.MatchString(label) {
				return fmt.Errorf("%w: invalid enum value %q", ErrInvalidType, label)
			}
			if _, dup := seen[label]; dup {
				return fmt.Errorf("%w: duplicate enum value %q", ErrInvalidType, label)
			}
			seen[label] = struct{}{}
		}
	case KindText, KindFloat, KindBool, KindComplex:
	default:
		return fmt.Errorf("%w: unset type", ErrInvalidType)
	}
	return nil
}

// Equal reports whether both types describe the same set of values.
func (t Type) Equal(other Type) bool {
	return t.kind == other.kind &&
		t.min == other.min &&
		t.max == other.max &&
		slices.Equal(t.labels, other.labels)
}

func (t Type) String() string {
	switch t.kind {
	case KindRange:
		return fmt.Sprintf("range[%d;%d]", t.min, t.max)
	case KindEnum:
		return "enum{" + strings.Join(t.labels, ",") + "}"
	default:
		return t.kind.String()
	}
}

// ParseReason tells why a type declaration could not be parsed.
type ParseReason int

const (
	ReasonInvalidType ParseReason = iota + 1
	ReasonBadArgs
	ReasonUnexpectedArgs
	ReasonUnknownType
	ReasonBadValue
	ReasonMinMax
)

func (r ParseReason) String() string {
	switch r {
	case ReasonInvalidType:
		return "invalid type"
	case ReasonBadArgs:
		return "bad args"
	case ReasonUnexpectedArgs:
		return "unexpected args"
	case ReasonUnknownType:
		return "unknown type"
	case ReasonBadValue:
		return "bad value"
	case ReasonMinMax:
		return "min >= max"
	default:
		return "unknown reason"
	}
}

// TypeParseError is returned by ParseType.
type TypeParseError struct {
	Input  string
	Reason ParseReason
	Err    error
}

func (e *TypeParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid type '%s' (%s: %v)", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid type '%s' (%s)", e.Input, e.Reason)
}

func (e *TypeParseError) Unwrap() error { return e.Err }

func (e *TypeParseError) Is(target error) bool { return target == ErrInvalidType }

var (
	typeParser  = regexp.MustCompile(`^([a-z]+)(.*)$`)
	rangeParser = regexp.MustCompile(`^\[(-?\d+);(-?\d+)\]$`)
	enumParser  = regexp.MustCompile(`^\{([\w\-,]+)\}$`)
)

// ParseType parses the canonical encoding of a type.
func ParseType(input string) (Type, error) {
	fail := func(reason ParseReason, err error) (Type, error) {
		return Type{}, &TypeParseError{Input: input, Reason: reason, Err: err}
	}

	m := typeParser.FindStringSubmatch(input)
	if m == nil {
		return fail(ReasonInvalidType, nil)
	}
	base, args := m[1], m[2]

	switch base {
	case "range":
		rm := rangeParser.FindStringSubmatch(args)
		if rm == nil {
			return fail(ReasonBadArgs, nil)
		}
		min, err := strconv.ParseInt(rm[1], 10, 64)
		if err != nil {
			return fail(ReasonBadValue, err)
		}
		max, err := strconv.ParseInt(rm[2], 10, 64)
		if err != nil {
			return fail(ReasonBadValue, err)
		}
		if min >= max {
			return fail(ReasonMinMax, nil)
		}
		return Type{kind: KindRange, min: min, max: max}, nil

	case "enum":
		em := enumParser.FindStringSubmatch(args)
		if em == nil {
			return fail(ReasonBadArgs, nil)
		}
		t, err := NewEnumType(strings.Split(em[1], ",")...)
		if err != nil {
			return fail(ReasonBadArgs, err)
		}
		return t, nil

	case "text", "float", "bool", "complex":
		if args != "" {
			return fail(ReasonUnexpectedArgs, nil)
		}
		switch base {
		case "text":
			return TextType(), nil
		case "float":
			return FloatType(), nil
		case "bool":
			return BoolType(), nil
		default:
			return ComplexType(), nil
		}

	default:
		return fail(ReasonUnknownType, nil)
	}
}

func (t Type) MarshalText() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Type) MarshalYAML() (interface{}, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t.String(), nil
}

func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar type declaration", ErrInvalidType, node.Line)
	}
	return t.UnmarshalText([]byte(node.Value))
}
