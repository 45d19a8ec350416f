package stacky

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
	"unicode/utf8"
)

func typeMismatch(op string, values ...Value) error {
	kinds := make([]string, len(values))
	for i, v := range values {
		kinds[i] = v.kind.String()
	}
	return opErrorf(RuntimeTypeMismatch, "type mismatch: cannot apply '%s' to %s", op, strings.Join(kinds, " and "))
}

func addValues(a, b Value) (Value, error) {
	if a.kind == KindString || b.kind == KindString {
		return NewString(a.String() + b.String()), nil
	}
	return arithmetic("add", a, b)
}

// arithmetic implements add, sub, mul, div and mod on numbers. Integer
// results wrap; a zero divisor is an error for both ints and floats.
func arithmetic(op string, a, b Value) (Value, error) {
	if !a.isNumeric() || !b.isNumeric() {
		return Value{}, typeMismatch(op, a, b)
	}
	if a.kind == KindInt && b.kind == KindInt {
		x, y := a.Int(), b.Int()
		switch op {
		case "add":
			return NewInt(x + y), nil
		case "sub":
			return NewInt(x - y), nil
		case "mul":
			return NewInt(x * y), nil
		case "div":
			if y == 0 {
				return Value{}, opErrorf(RuntimeDivisionByZero, "division by zero")
			}
			return NewInt(x / y), nil
		case "mod":
			if y == 0 {
				return Value{}, opErrorf(RuntimeDivisionByZero, "division by zero")
			}
			return NewInt(x % y), nil
		}
	}

	x, y := a.Float(), b.Float()
	switch op {
	case "add":
		return NewFloat(x + y), nil
	case "sub":
		return NewFloat(x - y), nil
	case "mul":
		return NewFloat(x * y), nil
	case "div":
		if y == 0 {
			return Value{}, opErrorf(RuntimeDivisionByZero, "division by zero")
		}
		return NewFloat(x / y), nil
	case "mod":
		if y == 0 {
			return Value{}, opErrorf(RuntimeDivisionByZero, "division by zero")
		}
		return NewFloat(math.Mod(x, y)), nil
	}
	return Value{}, opErrorf(RuntimeInvalidOperation, "unknown arithmetic operator %s", op)
}

func negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		return NewInt(-v.Int()), nil
	case KindFloat:
		return NewFloat(-v.Float()), nil
	}
	return Value{}, typeMismatch("neg", v)
}

// compareValues implements the six comparison instructions. Equality is
// defined for every pair; ordering only for numbers and for strings.
func compareValues(op Opcode, a, b Value) (Value, error) {
	switch op {
	case OpEq:
		return NewBool(a.Equal(b)), nil
	case OpNe:
		return NewBool(!a.Equal(b)), nil
	}

	var cmp int
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		x, y := a.Int(), b.Int()
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	case a.isNumeric() && b.isNumeric():
		x, y := a.Float(), b.Float()
		if math.IsNaN(x) || math.IsNaN(y) {
			return NewBool(false), nil
		}
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	case a.kind == KindString && b.kind == KindString:
		cmp = strings.Compare(a.str, b.str)
	default:
		return Value{}, typeMismatch(op.String(), a, b)
	}

	switch op {
	case OpLt:
		return NewBool(cmp < 0), nil
	case OpLe:
		return NewBool(cmp <= 0), nil
	case OpGt:
		return NewBool(cmp > 0), nil
	default:
		return NewBool(cmp >= 0), nil
	}
}

// logical implements and, or and xor: bitwise on ints, logical on bools.
func logical(op Opcode, a, b Value) (Value, error) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		x, y := a.Int(), b.Int()
		switch op {
		case OpAnd:
			return NewInt(x & y), nil
		case OpOr:
			return NewInt(x | y), nil
		default:
			return NewInt(x ^ y), nil
		}
	case a.kind == KindBool && b.kind == KindBool:
		x, y := a.Bool(), b.Bool()
		switch op {
		case OpAnd:
			return NewBool(x && y), nil
		case OpOr:
			return NewBool(x || y), nil
		default:
			return NewBool(x != y), nil
		}
	}
	return Value{}, typeMismatch(op.String(), a, b)
}

func logicalNot(v Value) Value {
	if v.kind == KindInt {
		return NewInt(^v.Int())
	}
	return NewBool(!v.Truthy())
}

// shift implements shl, shr, rotl and rotr. Counts of 64 or more shift
// every bit out; rotations wrap modulo 64.
func shift(op Opcode, a, b Value) (Value, error) {
	if a.kind != KindInt || b.kind != KindInt {
		return Value{}, typeMismatch(op.String(), a, b)
	}
	x, n := a.Int(), b.Int()
	if n < 0 {
		return Value{}, opErrorf(RuntimeNegativeShift, "negative shift count %d", n)
	}
	switch op {
	case OpShl:
		return NewInt(x << uint64(n)), nil
	case OpShr:
		return NewInt(x >> uint64(n)), nil
	case OpRotl:
		return NewInt(int64(bits.RotateLeft64(uint64(x), int(n%64)))), nil
	default:
		return NewInt(int64(bits.RotateLeft64(uint64(x), -int(n%64)))), nil
	}
}

func countZeros(op Opcode, v Value) (Value, error) {
	if v.kind != KindInt {
		return Value{}, typeMismatch(op.String(), v)
	}
	if op == OpClz {
		return NewInt(int64(bits.LeadingZeros64(uint64(v.Int())))), nil
	}
	return NewInt(int64(bits.TrailingZeros64(uint64(v.Int())))), nil
}

func convertValue(v Value, kind ValueKind) (Value, error) {
	invalid := func() (Value, error) {
		return Value{}, opErrorf(RuntimeInvalidConversion, "cannot convert %s %s to %s", v.kind, v.Inspect(), kind)
	}

	switch kind {
	case KindNil:
		return NewNil(), nil
	case KindString:
		return NewString(v.String()), nil
	case KindBool:
		if v.kind == KindString {
			b, err := strconv.ParseBool(strings.TrimSpace(v.str))
			if err != nil {
				return invalid()
			}
			return NewBool(b), nil
		}
		return NewBool(v.Truthy()), nil
	case KindInt:
		switch v.kind {
		case KindInt:
			return v, nil
		case KindFloat:
			f := math.Trunc(v.Float())
			if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return invalid()
			}
			return NewInt(int64(f)), nil
		case KindBool:
			if v.Bool() {
				return NewInt(1), nil
			}
			return NewInt(0), nil
		case KindString:
			text := strings.TrimSpace(v.str)
			if n, err := parseIntLiteral(strings.ReplaceAll(text, "_", "")); err == nil && text != "" {
				return NewInt(n), nil
			}
			if f, err := strconv.ParseFloat(text, 64); err == nil {
				return convertValue(NewFloat(f), KindInt)
			}
			return invalid()
		}
	case KindFloat:
		switch v.kind {
		case KindInt, KindFloat:
			return NewFloat(v.Float()), nil
		case KindBool:
			if v.Bool() {
				return NewFloat(1), nil
			}
			return NewFloat(0), nil
		case KindString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
			if err != nil {
				return invalid()
			}
			return NewFloat(f), nil
		}
	}
	return invalid()
}

func minMax(op Opcode, a, b Value) (Value, error) {
	if !a.isNumeric() || !b.isNumeric() {
		return Value{}, typeMismatch(op.String(), a, b)
	}
	if a.kind == KindInt && b.kind == KindInt {
		x, y := a.Int(), b.Int()
		if (op == OpMin) == (x < y) {
			return a, nil
		}
		return b, nil
	}
	if op == OpMin {
		return NewFloat(math.Min(a.Float(), b.Float())), nil
	}
	return NewFloat(math.Max(a.Float(), b.Float())), nil
}

func absValue(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		if n := v.Int(); n < 0 {
			return NewInt(-n), nil
		}
		return v, nil
	case KindFloat:
		return NewFloat(math.Abs(v.Float())), nil
	}
	return Value{}, typeMismatch("abs", v)
}

func signValue(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		n := v.Int()
		switch {
		case n < 0:
			return NewInt(-1), nil
		case n > 0:
			return NewInt(1), nil
		}
		return NewInt(0), nil
	case KindFloat:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return v, nil
		case f < 0:
			return NewFloat(-1), nil
		case f > 0:
			return NewFloat(1), nil
		}
		return NewFloat(0), nil
	}
	return Value{}, typeMismatch("sign", v)
}

// rounding implements ceil, floor and trunc. Ints are already whole.
func rounding(op Opcode, v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		return v, nil
	case KindFloat:
		switch op {
		case OpCeil:
			return NewFloat(math.Ceil(v.Float())), nil
		case OpFloor:
			return NewFloat(math.Floor(v.Float())), nil
		default:
			return NewFloat(math.Trunc(v.Float())), nil
		}
	}
	return Value{}, typeMismatch(op.String(), v)
}

var floatFuncs = map[Opcode]func(float64) float64{
	OpSqrt:  math.Sqrt,
	OpSin:   math.Sin,
	OpCos:   math.Cos,
	OpTan:   math.Tan,
	OpAsin:  math.Asin,
	OpAcos:  math.Acos,
	OpAtan:  math.Atan,
	OpSinh:  math.Sinh,
	OpCosh:  math.Cosh,
	OpTanh:  math.Tanh,
	OpAsinh: math.Asinh,
	OpAcosh: math.Acosh,
	OpAtanh: math.Atanh,
	OpExp:   math.Exp,
	OpLog:   math.Log,
}

func floatMath(op Opcode, v Value) (Value, error) {
	fn, ok := floatFuncs[op]
	if !ok {
		return Value{}, opErrorf(RuntimeInvalidOperation, "'%s' is not a math function", op)
	}
	if !v.isNumeric() {
		return Value{}, typeMismatch(op.String(), v)
	}
	return NewFloat(fn(v.Float())), nil
}

// power raises a to b. A non-negative int exponent on an int base stays
// integral and wraps; anything else is computed in floating point.
func power(a, b Value) (Value, error) {
	if !a.isNumeric() || !b.isNumeric() {
		return Value{}, typeMismatch("pow", a, b)
	}
	if a.kind == KindInt && b.kind == KindInt && b.Int() >= 0 {
		base, exp := a.Int(), b.Int()
		result := int64(1)
		for exp > 0 {
			if exp&1 == 1 {
				result *= base
			}
			base *= base
			exp >>= 1
		}
		return NewInt(result), nil
	}
	return NewFloat(math.Pow(a.Float(), b.Float())), nil
}

func lengthOf(v Value) (Value, error) {
	if v.kind != KindString {
		return Value{}, typeMismatch("len", v)
	}
	return NewInt(int64(utf8.RuneCountInString(v.str))), nil
}
