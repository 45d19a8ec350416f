package stacky

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind is the runtime type tag of a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// lookupKind resolves a type name used by convert.
func lookupKind(name string) (ValueKind, bool) {
	switch name {
	case "nil":
		return KindNil, true
	case "bool":
		return KindBool, true
	case "int":
		return KindInt, true
	case "float":
		return KindFloat, true
	case "string":
		return KindString, true
	}
	return 0, false
}

// TypeNames lists the names accepted by convert.
func TypeNames() []string {
	return []string{"string", "int", "float", "bool", "nil"}
}

// Value is a runtime datum. Scalars live in bits so that pushing a number
// never allocates.
type Value struct {
	kind ValueKind
	bits uint64
	str  string
}

func NewNil() Value { return Value{} }

func NewBool(b bool) Value {
	if b {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}

func NewInt(i int64) Value { return Value{kind: KindInt, bits: uint64(i)} }

func NewFloat(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }

func NewString(s string) Value { return Value{kind: KindString, str: s} }

// String returns the display form written by print.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		return formatFloat(v.Float())
	case KindString:
		return v.str
	default:
		return "<unknown>"
	}
}

// Inspect returns a source-literal form, quoting strings.
func (v Value) Inspect() string {
	switch v.kind {
	case KindString:
		return quoteString(v.str)
	case KindFloat:
		f := v.Float()
		s := formatFloat(f)
		if !math.IsNaN(f) && !math.IsInf(f, 0) && !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	default:
		return v.String()
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Truthy reports whether v counts as true for br, brf, if and assert.
// nil, false, 0, 0.0 and "" are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.bits != 0
	case KindInt:
		return v.bits != 0
	case KindFloat:
		return v.Float() != 0
	case KindString:
		return v.str != ""
	default:
		return false
	}
}

// Equal reports value equality. Ints and floats compare numerically.
func (v Value) Equal(other Value) bool {
	if v.isNumeric() && other.isNumeric() {
		if v.kind == KindInt && other.kind == KindInt {
			return v.Int() == other.Int()
		}
		return v.Float() == other.Float()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.bits == other.bits
	case KindString:
		return v.str == other.str
	default:
		return false
	}
}

// identical is strict structural equality, used to compare programs.
// Unlike Equal it distinguishes 1 from 1.0 and treats NaN as identical to
// itself.
func (v Value) identical(other Value) bool {
	return v.kind == other.kind && v.bits == other.bits && v.str == other.str
}

func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}
