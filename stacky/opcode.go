package stacky

// Opcode identifies an instruction.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	OpNop
	OpHalt
	OpPush
	OpPop
	OpDup
	OpSwap
	OpOver

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	OpPrint
	OpPrintln
	OpRead

	OpGoto
	OpBr
	OpBrf

	OpLoad
	OpStore

	OpGt
	OpLt
	OpGe
	OpLe
	OpEq
	OpNe

	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpShr
	OpRotl
	OpRotr
	OpClz
	OpCtz

	OpConvert

	OpMin
	OpMax
	OpAbs
	OpSign
	OpCeil
	OpFloor
	OpTrunc
	OpSqrt
	OpPow
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpSinh
	OpCosh
	OpTanh
	OpAsinh
	OpAcosh
	OpAtanh
	OpExp
	OpLog

	OpLen
	OpGetarg
	OpArgc
	OpAssert
	OpError

	opcodeCount
)

// OperandKind describes how an instruction's operand is interpreted.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	// OperandConst indexes the program's constant pool.
	OperandConst
	// OperandTarget is an absolute instruction index.
	OperandTarget
	// OperandSlot indexes the program's local variables.
	OperandSlot
	// OperandType is a ValueKind for convert.
	OperandType
)

// OpInfo describes an opcode: its mnemonic, stack effect and operand.
type OpInfo struct {
	Code    Opcode
	Name    string
	Arity   int
	Results int
	Operand OperandKind
	Doc     string
}

var (
	opInfos   [opcodeCount]OpInfo
	opByName  = make(map[string]Opcode, opcodeCount)
	mnemonics []string
)

func init() {
	ops := []OpInfo{
		{OpNop, "nop", 0, 0, OperandNone, "Do nothing."},
		{OpPush, "push", 0, 1, OperandConst, "Push a literal value."},
		{OpPop, "pop", 1, 0, OperandNone, "Discard the top value."},
		{OpDup, "dup", 1, 2, OperandNone, "Duplicate the top value."},
		{OpSwap, "swap", 2, 2, OperandNone, "Exchange the top two values."},
		{OpOver, "over", 2, 3, OperandNone, "Copy the second value to the top."},
		{OpAdd, "add", 2, 1, OperandNone, "a b -- a+b. Strings concatenate."},
		{OpSub, "sub", 2, 1, OperandNone, "a b -- a-b."},
		{OpMul, "mul", 2, 1, OperandNone, "a b -- a*b."},
		{OpDiv, "div", 2, 1, OperandNone, "a b -- a/b. Integer division truncates; zero divisor is an error."},
		{OpMod, "mod", 2, 1, OperandNone, "a b -- a%b. Zero divisor is an error."},
		{OpNeg, "neg", 1, 1, OperandNone, "a -- -a."},
		{OpPrint, "print", 1, 0, OperandNone, "Write the top value to the output."},
		{OpPrintln, "println", 1, 0, OperandNone, "Write the top value and a newline to the output."},
		{OpRead, "read", 0, 1, OperandNone, "Push one line of input, or nil at end of input."},
		{OpGoto, "goto", 0, 0, OperandTarget, "Jump to a label."},
		{OpBr, "br", 1, 0, OperandTarget, "Pop a value and jump to a label if it is truthy."},
		{OpBrf, "brf", 1, 0, OperandTarget, "Pop a value and jump to a label if it is falsy."},
		{OpLoad, "load", 0, 1, OperandSlot, "Push the value of a variable."},
		{OpStore, "store", 1, 0, OperandSlot, "Pop a value into a variable."},
		{OpGt, "gt", 2, 1, OperandNone, "a b -- a>b."},
		{OpLt, "lt", 2, 1, OperandNone, "a b -- a<b."},
		{OpGe, "ge", 2, 1, OperandNone, "a b -- a>=b."},
		{OpLe, "le", 2, 1, OperandNone, "a b -- a<=b."},
		{OpEq, "eq", 2, 1, OperandNone, "a b -- a==b."},
		{OpNe, "ne", 2, 1, OperandNone, "a b -- a!=b."},
		{OpAnd, "and", 2, 1, OperandNone, "Bitwise and on ints, logical and on bools."},
		{OpOr, "or", 2, 1, OperandNone, "Bitwise or on ints, logical or on bools."},
		{OpXor, "xor", 2, 1, OperandNone, "Bitwise xor on ints, logical xor on bools."},
		{OpNot, "not", 1, 1, OperandNone, "Bitwise complement on ints, logical not on bools."},
		{OpShl, "shl", 2, 1, OperandNone, "a n -- a<<n."},
		{OpShr, "shr", 2, 1, OperandNone, "a n -- a>>n (arithmetic)."},
		{OpRotl, "rotl", 2, 1, OperandNone, "Rotate a 64-bit int left."},
		{OpRotr, "rotr", 2, 1, OperandNone, "Rotate a 64-bit int right."},
		{OpClz, "clz", 1, 1, OperandNone, "Count leading zero bits."},
		{OpCtz, "ctz", 1, 1, OperandNone, "Count trailing zero bits."},
		{OpConvert, "convert", 1, 1, OperandType, "Convert the top value to string, int, float, bool or nil."},
		{OpMin, "min", 2, 1, OperandNone, "Smaller of two numbers."},
		{OpMax, "max", 2, 1, OperandNone, "Larger of two numbers."},
		{OpAbs, "abs", 1, 1, OperandNone, "Absolute value."},
		{OpSign, "sign", 1, 1, OperandNone, "-1, 0 or 1."},
		{OpCeil, "ceil", 1, 1, OperandNone, "Round up."},
		{OpFloor, "floor", 1, 1, OperandNone, "Round down."},
		{OpTrunc, "trunc", 1, 1, OperandNone, "Round toward zero."},
		{OpSqrt, "sqrt", 1, 1, OperandNone, "Square root."},
		{OpPow, "pow", 2, 1, OperandNone, "a b -- a**b."},
		{OpSin, "sin", 1, 1, OperandNone, "Sine."},
		{OpCos, "cos", 1, 1, OperandNone, "Cosine."},
		{OpTan, "tan", 1, 1, OperandNone, "Tangent."},
		{OpAsin, "asin", 1, 1, OperandNone, "Arcsine."},
		{OpAcos, "acos", 1, 1, OperandNone, "Arccosine."},
		{OpAtan, "atan", 1, 1, OperandNone, "Arctangent."},
		{OpSinh, "sinh", 1, 1, OperandNone, "Hyperbolic sine."},
		{OpCosh, "cosh", 1, 1, OperandNone, "Hyperbolic cosine."},
		{OpTanh, "tanh", 1, 1, OperandNone, "Hyperbolic tangent."},
		{OpAsinh, "asinh", 1, 1, OperandNone, "Inverse hyperbolic sine."},
		{OpAcosh, "acosh", 1, 1, OperandNone, "Inverse hyperbolic cosine."},
		{OpAtanh, "atanh", 1, 1, OperandNone, "Inverse hyperbolic tangent."},
		{OpExp, "exp", 1, 1, OperandNone, "e**a."},
		{OpLog, "log", 1, 1, OperandNone, "Natural logarithm."},
		{OpLen, "len", 1, 1, OperandNone, "Number of characters in a string."},
		{OpGetarg, "getarg", 1, 1, OperandNone, "i -- inputs[i]."},
		{OpArgc, "argc", 0, 1, OperandNone, "Push the number of inputs."},
		{OpAssert, "assert", 1, 0, OperandNone, "Pop a value and fail unless it is truthy."},
		{OpError, "error", 1, 0, OperandNone, "Pop a value and fail with it as the message."},
		{OpHalt, "exit", 0, 0, OperandNone, "Stop the program successfully."},
	}
	for _, info := range ops {
		opInfos[info.Code] = info
		opByName[info.Name] = info.Code
		mnemonics = append(mnemonics, info.Name)
	}
}

// Info returns the descriptor for op. Unknown opcodes yield a zero OpInfo.
func (op Opcode) Info() OpInfo {
	if op >= opcodeCount {
		return OpInfo{}
	}
	return opInfos[op]
}

// Valid reports whether op names an executable instruction.
func (op Opcode) Valid() bool {
	return op > OpInvalid && op < opcodeCount && opInfos[op].Name != ""
}

func (op Opcode) String() string {
	if op.Valid() {
		return opInfos[op].Name
	}
	return "invalid"
}

// IsJump reports whether op carries a jump target.
func (op Opcode) IsJump() bool {
	return op.Info().Operand == OperandTarget
}

// LookupOpcode resolves an instruction mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Mnemonics returns every instruction mnemonic in declaration order.
func Mnemonics() []string {
	out := make([]string, len(mnemonics))
	copy(out, mnemonics)
	return out
}

// Keywords returns the block keywords and literal keywords of the language.
func Keywords() []string {
	return []string{"if", "else", "end", "loop", "break", "continue", "true", "false", "nil"}
}
