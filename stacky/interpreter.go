package stacky

import (
	"bufio"
	"io"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxStackSize     = 1024
	DefaultMaxExecutionTime = 50000
	DefaultMemoryQuotaBytes = 1 << 20
)

// Config controls interpreter limits and I/O. Zero values select the
// defaults.
type Config struct {
	// MaxStackSize caps the operand stack depth.
	MaxStackSize int
	// MaxExecutionTime is the step budget: the most instructions a run may
	// execute.
	MaxExecutionTime int
	// MemoryQuotaBytes caps the estimated bytes held by the stack and
	// locals.
	MemoryQuotaBytes int

	// Output receives print and println. Defaults to io.Discard.
	Output io.Writer
	// Input feeds read. Without one, read pushes nil.
	Input io.Reader
	// Logger receives debug events per run and trace events per
	// instruction.
	Logger *zerolog.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.MaxStackSize <= 0 {
		cfg.MaxStackSize = DefaultMaxStackSize
	}
	if cfg.MaxExecutionTime <= 0 {
		cfg.MaxExecutionTime = DefaultMaxExecutionTime
	}
	if cfg.MemoryQuotaBytes <= 0 {
		cfg.MemoryQuotaBytes = DefaultMemoryQuotaBytes
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return cfg
}

// Interpreter executes one Program once. Create a fresh Interpreter for
// every run; a spent interpreter refuses to run again.
type Interpreter struct {
	config Config
	input  *bufio.Reader
	trace  bool

	program *Program
	inputs  []Value

	ip    int
	next  int
	stack []Value

	locals []Value
	set    []bool

	steps  int
	memory int
	spent  bool
}

// New constructs an Interpreter, filling unset configuration with defaults.
func New(cfg Config) *Interpreter {
	cfg = cfg.withDefaults()
	in := &Interpreter{
		config: cfg,
		trace:  cfg.Logger.GetLevel() <= zerolog.TraceLevel,
	}
	if cfg.Input != nil {
		in.input = bufio.NewReader(cfg.Input)
	}
	return in
}

// Config returns the effective configuration after defaults.
func (in *Interpreter) Config() Config {
	return in.config
}

// Run executes program to a terminal state. It returns nil on success, a
// *RuntimeError for a fault or a *LimitError when a governor stops the run.
// Output written before a failure is not rolled back.
func (in *Interpreter) Run(program *Program, inputs []Value) error {
	if in.spent {
		return ErrInterpreterSpent
	}
	in.spent = true
	if program == nil || len(program.instructions) == 0 {
		return ErrInvalidProgram
	}

	in.program = program
	in.inputs = append([]Value(nil), inputs...)
	in.stack = make([]Value, 0, min(in.config.MaxStackSize, 64))
	in.locals = make([]Value, len(program.locals))
	in.set = make([]bool, len(program.locals))

	log := in.config.Logger
	log.Debug().
		Int("instructions", program.Len()).
		Int("inputs", len(inputs)).
		Int("max_stack", in.config.MaxStackSize).
		Int("max_steps", in.config.MaxExecutionTime).
		Msg("run started")

	err := in.execute()

	event := log.Debug()
	if err != nil {
		event = event.Err(err)
	}
	event.
		Int("steps", in.steps).
		Int("stack_depth", len(in.stack)).
		Int("memory_bytes", in.memory).
		Msg("run finished")
	return err
}

// Stack returns a copy of the operand stack, bottom first.
func (in *Interpreter) Stack() []Value {
	out := make([]Value, len(in.stack))
	copy(out, in.stack)
	return out
}

// Steps returns the number of instructions executed so far.
func (in *Interpreter) Steps() int {
	return in.steps
}
