// Package runtime provides the value model shared by the bytecode VM and
// the tree-walking interpreter.
package runtime

import (
	"fmt"
	"strconv"
)

// ValueType represents the type of a Lox value
type ValueType int

const (
	TypeNil ValueType = iota
	TypeNumber
	TypeBool
	TypeString
	TypeCallable
)

func (t ValueType) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeString:
		return "string"
	case TypeCallable:
		return "callable"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Callable is implemented by values that can be invoked with an argument
// list. The interpreter decides how a call is dispatched; the value model
// only needs the arity and a display form.
type Callable interface {
	Arity() int
	Name() string
	String() string
}

// Value is the Go representation of a Lox value. Only the field matching
// Type is meaningful.
type Value struct {
	Type        ValueType
	NumberVal   float64
	BoolVal     bool
	StringVal   string
	CallableVal Callable
}

// NilValue returns a nil value
func NilValue() Value {
	return Value{Type: TypeNil}
}

// NumberValue creates a number value
func NumberValue(n float64) Value {
	return Value{Type: TypeNumber, NumberVal: n}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	return Value{Type: TypeBool, BoolVal: b}
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// CallableValue wraps a function object
func CallableValue(c Callable) Value {
	return Value{Type: TypeCallable, CallableVal: c}
}

// IsNil returns true if the value is nil
func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// IsNumber returns true if the value is a number
func (v Value) IsNumber() bool {
	return v.Type == TypeNumber
}

// IsString returns true if the value is a string
func (v Value) IsString() bool {
	return v.Type == TypeString
}

// IsCallable returns true if the value can be called
func (v Value) IsCallable() bool {
	return v.Type == TypeCallable && v.CallableVal != nil
}

// IsTruthy reports how the value behaves in a conditional. Only nil and
// false are falsy; 0 and "" are truthy.
func (v Value) IsTruthy() bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.BoolVal
	default:
		return true
	}
}

// String returns the display form used by print.
func (v Value) String() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeNumber:
		return FormatNumber(v.NumberVal)
	case TypeBool:
		if v.BoolVal {
			return "true"
		}
		return "false"
	case TypeString:
		return v.StringVal
	case TypeCallable:
		if v.CallableVal == nil {
			return "<fn ?>"
		}
		return v.CallableVal.String()
	default:
		return ""
	}
}

// FormatNumber renders a float the shortest way that round-trips, so 3.0
// prints as "3".
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Equal compares two values. Values of different types are never equal.
// Numbers use IEEE 754 equality, so NaN is not equal to itself.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeNil:
		return true
	case TypeNumber:
		return a.NumberVal == b.NumberVal
	case TypeBool:
		return a.BoolVal == b.BoolVal
	case TypeString:
		return a.StringVal == b.StringVal
	case TypeCallable:
		return a.CallableVal == b.CallableVal
	default:
		return false
	}
}
