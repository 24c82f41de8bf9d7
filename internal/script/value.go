package script

import (
	"fmt"
	"strconv"
)

// Kind tags the dynamic type of a Value.
type Kind int

const (
	KindNum Kind = iota
	KindBool
	KindStr
)

func (k Kind) String() string {
	switch k {
	case KindNum:
		return "number"
	case KindBool:
		return "boolean"
	case KindStr:
		return "string"
	default:
		return "unknown"
	}
}

// Value is the result of evaluating an expression.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
	Str  string
}

func NumVal(f float64) Value { return Value{Kind: KindNum, Num: f} }
func BoolVal(b bool) Value   { return Value{Kind: KindBool, Bool: b} }
func StrVal(s string) Value  { return Value{Kind: KindStr, Str: s} }

func (v Value) String() string {
	switch v.Kind {
	case KindNum:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindStr:
		return strconv.Quote(v.Str)
	default:
		return "<unknown>"
	}
}

// Equal compares two values strictly: values of different kinds are never
// equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNum:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	default:
		return v.Str == o.Str
	}
}

func (v Value) asNum(what string) (float64, error) {
	if v.Kind != KindNum {
		return 0, faultf("%s: want number, got %s %s", what, v.Kind, v)
	}
	return v.Num, nil
}

func (v Value) asBool(what string) (bool, error) {
	if v.Kind != KindBool {
		return false, faultf("%s: want boolean, got %s %s", what, v.Kind, v)
	}
	return v.Bool, nil
}

func (v Value) asStr(what string) (string, error) {
	if v.Kind != KindStr {
		return "", faultf("%s: want string, got %s %s", what, v.Kind, v)
	}
	return v.Str, nil
}

func faultf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFault, fmt.Sprintf(format, args...))
}
