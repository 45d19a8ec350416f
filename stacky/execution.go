package stacky

type opHandler func(in *Interpreter, ins Instruction) error

var opHandlers [opcodeCount]opHandler

func init() {
	opHandlers = [opcodeCount]opHandler{
		OpNop:     func(*Interpreter, Instruction) error { return nil },
		OpPush:    (*Interpreter).opPush,
		OpPop:     (*Interpreter).opPop,
		OpDup:     (*Interpreter).opDup,
		OpSwap:    (*Interpreter).opSwap,
		OpOver:    (*Interpreter).opOver,
		OpAdd:     (*Interpreter).opArithmetic,
		OpSub:     (*Interpreter).opArithmetic,
		OpMul:     (*Interpreter).opArithmetic,
		OpDiv:     (*Interpreter).opArithmetic,
		OpMod:     (*Interpreter).opArithmetic,
		OpNeg:     (*Interpreter).opUnary,
		OpPrint:   (*Interpreter).opPrint,
		OpPrintln: (*Interpreter).opPrint,
		OpRead:    (*Interpreter).opRead,
		OpGoto:    (*Interpreter).opGoto,
		OpBr:      (*Interpreter).opBranch,
		OpBrf:     (*Interpreter).opBranch,
		OpLoad:    (*Interpreter).opLoad,
		OpStore:   (*Interpreter).opStore,
		OpGt:      (*Interpreter).opBinary,
		OpLt:      (*Interpreter).opBinary,
		OpGe:      (*Interpreter).opBinary,
		OpLe:      (*Interpreter).opBinary,
		OpEq:      (*Interpreter).opBinary,
		OpNe:      (*Interpreter).opBinary,
		OpAnd:     (*Interpreter).opBinary,
		OpOr:      (*Interpreter).opBinary,
		OpXor:     (*Interpreter).opBinary,
		OpNot:     (*Interpreter).opUnary,
		OpShl:     (*Interpreter).opBinary,
		OpShr:     (*Interpreter).opBinary,
		OpRotl:    (*Interpreter).opBinary,
		OpRotr:    (*Interpreter).opBinary,
		OpClz:     (*Interpreter).opUnary,
		OpCtz:     (*Interpreter).opUnary,
		OpConvert: (*Interpreter).opConvert,
		OpMin:     (*Interpreter).opBinary,
		OpMax:     (*Interpreter).opBinary,
		OpAbs:     (*Interpreter).opUnary,
		OpSign:    (*Interpreter).opUnary,
		OpCeil:    (*Interpreter).opUnary,
		OpFloor:   (*Interpreter).opUnary,
		OpTrunc:   (*Interpreter).opUnary,
		OpPow:     (*Interpreter).opBinary,
		OpLen:     (*Interpreter).opUnary,
		OpGetarg:  (*Interpreter).opGetarg,
		OpArgc:    (*Interpreter).opArgc,
		OpAssert:  (*Interpreter).opAssert,
		OpError:   (*Interpreter).opError,
	}
	for op := range floatFuncs {
		opHandlers[op] = (*Interpreter).opUnary
	}
}

// execute is the fetch/dispatch loop. The step budget and the declared
// stack effect are checked before each instruction runs, so a failing
// instruction leaves the stack untouched.
func (in *Interpreter) execute() error {
	code := in.program.instructions
	maxSteps := in.config.MaxExecutionTime
	maxStack := in.config.MaxStackSize

	for {
		ins := code[in.ip]
		if ins.Op == OpHalt {
			return nil
		}
		if in.steps >= maxSteps {
			return in.limitError(LimitSteps, maxSteps)
		}
		in.steps++

		info := &opInfos[ins.Op]
		depth := len(in.stack)
		if depth < info.Arity {
			return in.runtimeError(opErrorf(RuntimeStackUnderflow,
				"stack underflow: '%s' needs %d value(s) but the stack holds %d", info.Name, info.Arity, depth))
		}
		if depth-info.Arity+info.Results > maxStack {
			return in.runtimeError(opErrorf(RuntimeStackOverflow,
				"stack overflow: '%s' would exceed the maximum stack size of %d", info.Name, maxStack))
		}

		if in.trace {
			in.config.Logger.Trace().
				Int("ip", in.ip).
				Str("op", info.Name).
				Int("depth", depth).
				Msg("step")
		}

		handler := opHandlers[ins.Op]
		if handler == nil {
			return in.runtimeError(opErrorf(RuntimeInvalidOperation, "invalid operation '%s'", ins.Op))
		}
		in.next = in.ip + 1
		if err := handler(in, ins); err != nil {
			if _, ok := err.(*LimitError); ok {
				return err
			}
			return in.runtimeError(err)
		}
		in.ip = in.next
	}
}

// push, pop and replace assume the arity and overflow checks in execute
// have already passed. Handlers read operands in place and only change the
// stack once their result is known.
func (in *Interpreter) push(v Value) error {
	if err := in.charge(valueCost(v)); err != nil {
		return err
	}
	in.stack = append(in.stack, v)
	return nil
}

func (in *Interpreter) pop() Value {
	last := len(in.stack) - 1
	v := in.stack[last]
	in.stack[last] = Value{}
	in.stack = in.stack[:last]
	in.memory -= valueCost(v)
	return v
}

// operands returns the top n values, oldest first, without removing them.
func (in *Interpreter) operands(n int) []Value {
	return in.stack[len(in.stack)-n:]
}

func (in *Interpreter) top() Value {
	return in.stack[len(in.stack)-1]
}

// replace swaps the top n values for v.
func (in *Interpreter) replace(n int, v Value) error {
	base := len(in.stack) - n
	released := 0
	for _, old := range in.stack[base:] {
		released += valueCost(old)
	}
	if err := in.charge(valueCost(v) - released); err != nil {
		return err
	}
	clear(in.stack[base:])
	in.stack = append(in.stack[:base], v)
	return nil
}
