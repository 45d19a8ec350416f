package stacky

import "math"

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.bits != 0
	}
	return false
}

func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return int64(v.bits)
	case KindFloat:
		return int64(v.Float())
	default:
		return 0
	}
}

func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindInt:
		return float64(int64(v.bits))
	default:
		return 0
	}
}

// Str returns the string payload; it is empty for non-string values.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}
