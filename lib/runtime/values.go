// Package runtime provides the object model, class table and method body
// evaluator for minitalk.
package runtime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType represents the type of a minitalk value
type ValueType int

const (
	TypeNil ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeInstance
	TypeSequence
	TypeClass
)

var typeNames = map[ValueType]string{
	TypeNil:      "UndefinedObject",
	TypeInt:      "SmallInteger",
	TypeFloat:    "Float",
	TypeString:   "String",
	TypeInstance: "Object",
	TypeSequence: "OrderedCollection",
	TypeClass:    "Class",
}

func (t ValueType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// Value is the Go representation of a minitalk value
type Value struct {
	Type        ValueType
	IntVal      int64
	FloatVal    float64
	StringVal   string
	InstanceVal *Instance
	SeqVal      *Sequence
	ClassVal    *Class
}

// NilValue returns a nil value
func NilValue() Value {
	return Value{Type: TypeNil}
}

// IntValue creates an integer value
func IntValue(n int64) Value {
	return Value{Type: TypeInt, IntVal: n}
}

// FloatValue creates a float value
func FloatValue(f float64) Value {
	return Value{Type: TypeFloat, FloatVal: f}
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// InstanceValue creates an instance reference value
func InstanceValue(inst *Instance) Value {
	return Value{Type: TypeInstance, InstanceVal: inst}
}

// SequenceValue creates a sequence reference value
func SequenceValue(seq *Sequence) Value {
	return Value{Type: TypeSequence, SeqVal: seq}
}

// ClassValue creates a class reference value
func ClassValue(c *Class) Value {
	return Value{Type: TypeClass, ClassVal: c}
}

// IsNil returns true if the value is nil
func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// IsNumber returns true for integers and floats
func (v Value) IsNumber() bool {
	return v.Type == TypeInt || v.Type == TypeFloat
}

// ClassName names the class of the value.
func (v Value) ClassName() string {
	switch v.Type {
	case TypeInstance:
		if v.InstanceVal != nil {
			return v.InstanceVal.Class.Name
		}
	case TypeClass:
		if v.ClassVal != nil {
			return v.ClassVal.Name + " class"
		}
	}
	return v.Type.String()
}

// AsFloat converts a number to a float
func (v Value) AsFloat() float64 {
	switch v.Type {
	case TypeFloat:
		return v.FloatVal
	case TypeInt:
		return float64(v.IntVal)
	default:
		return 0
	}
}

// String renders the value the way the output sink shows it. Sequences
// render as their element count.
func (v Value) String() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeInt:
		return strconv.FormatInt(v.IntVal, 10)
	case TypeFloat:
		return FormatFloat(v.FloatVal)
	case TypeString:
		return v.StringVal
	case TypeInstance:
		if v.InstanceVal == nil {
			return "nil"
		}
		return article(v.InstanceVal.Class.Name) + " " + v.InstanceVal.Class.Name
	case TypeSequence:
		return strconv.Itoa(v.SeqVal.Size())
	case TypeClass:
		if v.ClassVal == nil {
			return "nil"
		}
		return v.ClassVal.Name
	default:
		return ""
	}
}

// FormatFloat renders a float with at least one fractional digit, so 35
// prints as 35.0.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	format := byte('g')
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		format = 'f'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

func article(name string) string {
	if name != "" && strings.ContainsRune("AEIOU", rune(name[0])) {
		return "an"
	}
	return "a"
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

var (
	// ErrNotNumeric is returned when an arithmetic operand is not a number.
	ErrNotNumeric = errors.New("operand is not a number")

	// ErrDivisionByZero is returned by division with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

// Arithmetic applies a binary operator. Integer operands give an integer
// result, except for a division that does not come out even. `+` on two
// strings concatenates.
func Arithmetic(op string, left, right Value) (Value, error) {
	if op == "+" && left.Type == TypeString && right.Type == TypeString {
		return StringValue(left.StringVal + right.StringVal), nil
	}
	if !left.IsNumber() {
		return NilValue(), fmt.Errorf("%w: %s %s", ErrNotNumeric, left.ClassName(), op)
	}
	if !right.IsNumber() {
		return NilValue(), fmt.Errorf("%w: %s %s", ErrNotNumeric, op, right.ClassName())
	}

	if left.Type == TypeInt && right.Type == TypeInt {
		a, b := left.IntVal, right.IntVal
		switch op {
		case "+":
			return IntValue(a + b), nil
		case "-":
			return IntValue(a - b), nil
		case "*":
			return IntValue(a * b), nil
		case "/":
			if b == 0 {
				return NilValue(), ErrDivisionByZero
			}
			if a%b == 0 {
				return IntValue(a / b), nil
			}
			return FloatValue(float64(a) / float64(b)), nil
		}
		return NilValue(), fmt.Errorf("unknown operator %q", op)
	}

	a, b := left.AsFloat(), right.AsFloat()
	switch op {
	case "+":
		return FloatValue(a + b), nil
	case "-":
		return FloatValue(a - b), nil
	case "*":
		return FloatValue(a * b), nil
	case "/":
		if b == 0 {
			return NilValue(), ErrDivisionByZero
		}
		return FloatValue(a / b), nil
	}
	return NilValue(), fmt.Errorf("unknown operator %q", op)
}

// ---------------------------------------------------------------------------
// Sequence
// ---------------------------------------------------------------------------

// Sequence is an append-only ordered collection. Elements are stored by
// value, so instances added to several sequences stay shared.
type Sequence struct {
	elements []Value
}

// NewSequence creates a sequence holding the given elements.
func NewSequence(elems ...Value) *Sequence {
	s := &Sequence{elements: make([]Value, 0, len(elems))}
	s.elements = append(s.elements, elems...)
	return s
}

// Add appends an element.
func (s *Sequence) Add(v Value) {
	s.elements = append(s.elements, v)
}

// Size returns the number of elements added since creation.
func (s *Sequence) Size() int {
	if s == nil {
		return 0
	}
	return len(s.elements)
}

// Elements returns a snapshot of the elements in insertion order.
func (s *Sequence) Elements() []Value {
	if s == nil {
		return nil
	}
	out := make([]Value, len(s.elements))
	copy(out, s.elements)
	return out
}
