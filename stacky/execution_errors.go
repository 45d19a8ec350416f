package stacky

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeErrorKind classifies a fault raised while executing a program.
type RuntimeErrorKind uint8

const (
	RuntimeStackOverflow RuntimeErrorKind = iota
	RuntimeStackUnderflow
	RuntimeDivisionByZero
	RuntimeTypeMismatch
	RuntimeInvalidConversion
	RuntimeArgumentOutOfRange
	RuntimeUnsetVariable
	RuntimeAssertionFailed
	RuntimeScriptError
	RuntimeNegativeShift
	RuntimeInvalidOperation
	RuntimeOutput
)

var (
	ErrStackOverflow      = errors.New("stack overflow")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrInvalidConversion  = errors.New("invalid conversion")
	ErrArgumentOutOfRange = errors.New("argument out of range")
	ErrUnsetVariable      = errors.New("unset variable")
	ErrAssertionFailed    = errors.New("assertion failed")
	ErrScriptError        = errors.New("script error")
	ErrNegativeShift      = errors.New("negative shift count")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrOutput             = errors.New("output error")

	ErrExecutionTimeExceeded = errors.New("execution time exceeded")
	ErrMemoryQuotaExceeded   = errors.New("memory quota exceeded")

	// ErrInterpreterSpent is returned by Run on an interpreter that has
	// already reached a terminal state.
	ErrInterpreterSpent = errors.New("interpreter already used")
)

var runtimeSentinels = [...]error{
	RuntimeStackOverflow:      ErrStackOverflow,
	RuntimeStackUnderflow:     ErrStackUnderflow,
	RuntimeDivisionByZero:     ErrDivisionByZero,
	RuntimeTypeMismatch:       ErrTypeMismatch,
	RuntimeInvalidConversion:  ErrInvalidConversion,
	RuntimeArgumentOutOfRange: ErrArgumentOutOfRange,
	RuntimeUnsetVariable:      ErrUnsetVariable,
	RuntimeAssertionFailed:    ErrAssertionFailed,
	RuntimeScriptError:        ErrScriptError,
	RuntimeNegativeShift:      ErrNegativeShift,
	RuntimeInvalidOperation:   ErrInvalidOperation,
	RuntimeOutput:             ErrOutput,
}

func (k RuntimeErrorKind) String() string {
	if int(k) < len(runtimeSentinels) {
		return runtimeSentinels[k].Error()
	}
	return "runtime error"
}

// RuntimeError is the single fault that ends a run.
type RuntimeError struct {
	Kind      RuntimeErrorKind
	Message   string
	Op        Opcode
	IP        int
	Pos       Position
	CodeFrame string
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "runtime error at %d:%d: %s", re.Pos.Line, re.Pos.Column, re.Message)
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	return b.String()
}

// Unwrap exposes the kind sentinel so callers can use errors.Is.
func (re *RuntimeError) Unwrap() error {
	if int(re.Kind) < len(runtimeSentinels) {
		return runtimeSentinels[re.Kind]
	}
	return nil
}

// LimitKind names the governor that stopped a run.
type LimitKind uint8

const (
	LimitSteps LimitKind = iota
	LimitMemory
)

func (k LimitKind) String() string {
	if k == LimitMemory {
		return "memory"
	}
	return "steps"
}

// LimitError reports that a run exceeded a configured budget. It is kept
// apart from RuntimeError so hosts can tell an expensive script from a
// broken one.
type LimitError struct {
	Limit     LimitKind
	Max       int
	IP        int
	Pos       Position
	CodeFrame string
}

func (le *LimitError) Error() string {
	var b strings.Builder
	switch le.Limit {
	case LimitMemory:
		fmt.Fprintf(&b, "memory quota exceeded (%d bytes) at %d:%d", le.Max, le.Pos.Line, le.Pos.Column)
	default:
		fmt.Fprintf(&b, "execution time exceeded: step budget of %d exhausted at %d:%d", le.Max, le.Pos.Line, le.Pos.Column)
	}
	if le.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(le.CodeFrame)
	}
	return b.String()
}

func (le *LimitError) Unwrap() error {
	if le.Limit == LimitMemory {
		return ErrMemoryQuotaExceeded
	}
	return ErrExecutionTimeExceeded
}

// opError is raised by instruction handlers; the execution loop attaches
// the instruction position.
type opError struct {
	kind RuntimeErrorKind
	msg  string
}

func (e *opError) Error() string { return e.msg }

func opErrorf(kind RuntimeErrorKind, format string, args ...any) error {
	return &opError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func (in *Interpreter) runtimeError(err error) error {
	ins := in.program.instructions[in.ip]
	re := &RuntimeError{
		Kind:      RuntimeInvalidOperation,
		Message:   err.Error(),
		Op:        ins.Op,
		IP:        in.ip,
		Pos:       ins.Pos,
		CodeFrame: formatCodeFrame(in.program.source, ins.Pos),
	}
	var oe *opError
	if errors.As(err, &oe) {
		re.Kind = oe.kind
	}
	return re
}

func (in *Interpreter) limitError(kind LimitKind, max int) error {
	ins := in.program.instructions[in.ip]
	return &LimitError{
		Limit:     kind,
		Max:       max,
		IP:        in.ip,
		Pos:       ins.Pos,
		CodeFrame: formatCodeFrame(in.program.source, ins.Pos),
	}
}
