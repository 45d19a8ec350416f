package stacky

import (
	"io"
	"strings"
)

func (in *Interpreter) opPush(ins Instruction) error {
	return in.push(in.program.constants[ins.Operand])
}

func (in *Interpreter) opPop(Instruction) error {
	in.pop()
	return nil
}

func (in *Interpreter) opDup(Instruction) error {
	return in.push(in.stack[len(in.stack)-1])
}

func (in *Interpreter) opSwap(Instruction) error {
	n := len(in.stack)
	in.stack[n-1], in.stack[n-2] = in.stack[n-2], in.stack[n-1]
	return nil
}

func (in *Interpreter) opOver(Instruction) error {
	return in.push(in.stack[len(in.stack)-2])
}

func (in *Interpreter) opArithmetic(ins Instruction) error {
	args := in.operands(2)
	a, b := args[0], args[1]
	var (
		result Value
		err    error
	)
	if ins.Op == OpAdd {
		result, err = addValues(a, b)
	} else {
		result, err = arithmetic(ins.Op.String(), a, b)
	}
	if err != nil {
		return err
	}
	return in.replace(2, result)
}

func (in *Interpreter) opBinary(ins Instruction) error {
	args := in.operands(2)
	a, b := args[0], args[1]
	var (
		result Value
		err    error
	)
	switch ins.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		result, err = compareValues(ins.Op, a, b)
	case OpAnd, OpOr, OpXor:
		result, err = logical(ins.Op, a, b)
	case OpShl, OpShr, OpRotl, OpRotr:
		result, err = shift(ins.Op, a, b)
	case OpMin, OpMax:
		result, err = minMax(ins.Op, a, b)
	case OpPow:
		result, err = power(a, b)
	default:
		err = opErrorf(RuntimeInvalidOperation, "'%s' is not a binary operation", ins.Op)
	}
	if err != nil {
		return err
	}
	return in.replace(2, result)
}

func (in *Interpreter) opUnary(ins Instruction) error {
	v := in.top()
	var (
		result Value
		err    error
	)
	switch ins.Op {
	case OpNeg:
		result, err = negate(v)
	case OpNot:
		result = logicalNot(v)
	case OpClz, OpCtz:
		result, err = countZeros(ins.Op, v)
	case OpAbs:
		result, err = absValue(v)
	case OpSign:
		result, err = signValue(v)
	case OpCeil, OpFloor, OpTrunc:
		result, err = rounding(ins.Op, v)
	case OpLen:
		result, err = lengthOf(v)
	default:
		result, err = floatMath(ins.Op, v)
	}
	if err != nil {
		return err
	}
	return in.replace(1, result)
}

func (in *Interpreter) opConvert(ins Instruction) error {
	result, err := convertValue(in.top(), ValueKind(ins.Operand))
	if err != nil {
		return err
	}
	return in.replace(1, result)
}

func (in *Interpreter) opPrint(ins Instruction) error {
	text := in.top().String()
	if ins.Op == OpPrintln {
		text += "\n"
	}
	if _, err := io.WriteString(in.config.Output, text); err != nil {
		return opErrorf(RuntimeOutput, "output error: %v", err)
	}
	in.pop()
	return nil
}

func (in *Interpreter) opRead(Instruction) error {
	if in.input == nil {
		return in.push(NewNil())
	}
	line, err := in.input.ReadString('\n')
	if err != nil && err != io.EOF {
		return opErrorf(RuntimeOutput, "input error: %v", err)
	}
	if err == io.EOF && line == "" {
		return in.push(NewNil())
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return in.push(NewString(line))
}

func (in *Interpreter) opGoto(ins Instruction) error {
	in.next = ins.Operand
	return nil
}

func (in *Interpreter) opBranch(ins Instruction) error {
	if in.pop().Truthy() == (ins.Op == OpBr) {
		in.next = ins.Operand
	}
	return nil
}

func (in *Interpreter) opLoad(ins Instruction) error {
	if !in.set[ins.Operand] {
		return opErrorf(RuntimeUnsetVariable, "variable '%s' read before it was stored", in.program.locals[ins.Operand])
	}
	return in.push(in.locals[ins.Operand])
}

func (in *Interpreter) opStore(ins Instruction) error {
	// The value moves from the stack into the slot, so only the
	// overwritten local is released.
	v := in.pop()
	in.memory += valueCost(v)
	if in.set[ins.Operand] {
		in.memory -= valueCost(in.locals[ins.Operand])
	}
	in.locals[ins.Operand] = v
	in.set[ins.Operand] = true
	return nil
}

func (in *Interpreter) opGetarg(Instruction) error {
	idx := in.top()
	if idx.kind != KindInt {
		return typeMismatch("getarg", idx)
	}
	i := idx.Int()
	if i < 0 || i >= int64(len(in.inputs)) {
		return opErrorf(RuntimeArgumentOutOfRange, "argument index %d out of range (argc is %d)", i, len(in.inputs))
	}
	return in.replace(1, in.inputs[i])
}

func (in *Interpreter) opArgc(Instruction) error {
	return in.push(NewInt(int64(len(in.inputs))))
}

func (in *Interpreter) opAssert(Instruction) error {
	if v := in.top(); !v.Truthy() {
		return opErrorf(RuntimeAssertionFailed, "assertion failed: %s is falsy", v.Inspect())
	}
	in.pop()
	return nil
}

func (in *Interpreter) opError(Instruction) error {
	return opErrorf(RuntimeScriptError, "%s", in.top().String())
}
