// Package host is the embedding boundary: it turns a script into the text a
// host environment displays, and keeps faults inside the interpreter from
// escaping into the host process.
package host

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mgomes/stacky/stacky"
)

// Limits are the governors applied to every run.
type Limits struct {
	MaxStackSize     int
	MaxExecutionTime int
	MemoryQuotaBytes int
}

// DefaultLimits are deliberately tight: hosts run untrusted snippets.
func DefaultLimits() Limits {
	return Limits{MaxStackSize: 100, MaxExecutionTime: 500}
}

var (
	initOnce sync.Once
	logger   atomic.Pointer[zerolog.Logger]

	compileSource = stacky.Compile
)

// Init installs the logger that records faults recovered during Run. Only
// the first call has any effect. A nil writer selects stderr.
func Init(w io.Writer) {
	initOnce.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		l := zerolog.New(w).With().Timestamp().Str("component", "stacky").Logger()
		logger.Store(&l)
	})
}

func faultLogger() *zerolog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}

// Run compiles and executes source with DefaultLimits.
func Run(source string) string {
	return RunWithLimits(source, DefaultLimits())
}

// RunWithLimits returns every parse diagnostic (each followed by a
// newline) when the source does not compile, the diagnostic message when
// the run fails or hits a limit, and the script's output otherwise.
func RunWithLimits(source string, limits Limits) (result string) {
	defer func() {
		if r := recover(); r != nil {
			faultLogger().Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("recovered interpreter fault")
			result = fmt.Sprintf("internal error: %v", r)
		}
	}()

	program, err := compileSource(source)
	if err != nil {
		var errs stacky.ParseErrors
		if !errors.As(err, &errs) {
			return err.Error()
		}
		var b strings.Builder
		for _, e := range errs {
			b.WriteString(e.Error())
			b.WriteString("\n")
		}
		return b.String()
	}

	var out bytes.Buffer
	in := stacky.New(stacky.Config{
		MaxStackSize:     limits.MaxStackSize,
		MaxExecutionTime: limits.MaxExecutionTime,
		MemoryQuotaBytes: limits.MemoryQuotaBytes,
		Output:           &out,
	})
	if err := in.Run(program, nil); err != nil {
		return err.Error()
	}
	return out.String()
}
