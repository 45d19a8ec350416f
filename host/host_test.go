package host

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgomes/stacky/stacky"
)

func TestRunReturnsOutput(t *testing.T) {
	require.Equal(t, "3", Run("1 2 + print"))
	require.Equal(t, "", Run("1 2 +"))
}

func TestRunRendersParseErrors(t *testing.T) {
	require.Equal(t, "parse error at 1:3: 'if' is never closed with 'end'\n", Run("1 if 2"))
	require.Equal(t,
		"parse error at 1:1: unknown instruction 'frob'\nparse error at 2:6: undefined label 'nowhere'\n",
		Run("frob\ngoto nowhere"),
	)
}

func TestRunRendersRuntimeErrors(t *testing.T) {
	out := Run(`"partial" print 1 0 /`)
	require.True(t, strings.HasPrefix(out, "runtime error at 1:21: division by zero"), out)
	require.False(t, strings.HasPrefix(out, "partial"), "output is discarded when the run fails")
}

func TestRunAppliesDefaultLimits(t *testing.T) {
	out := Run("loop 1 end")
	require.True(t, strings.HasPrefix(out, "runtime error at 1:6: stack overflow: 'push' would exceed the maximum stack size of 100"), out)

	out = Run("loop end")
	require.True(t, strings.HasPrefix(out, "execution time exceeded: step budget of 500 exhausted at 1:6"), out)
}

func TestRunWithLimitsOverridesDefaults(t *testing.T) {
	out := RunWithLimits("loop end", Limits{MaxExecutionTime: 10})
	require.True(t, strings.HasPrefix(out, "execution time exceeded: step budget of 10 exhausted"), out)

	out = RunWithLimits("1 2 3", Limits{MaxStackSize: 2})
	require.True(t, strings.Contains(out, "maximum stack size of 2"), out)
}

func TestRunRecoversPanics(t *testing.T) {
	var logs bytes.Buffer
	Init(&logs)
	Init(nil)

	original := compileSource
	compileSource = func(string) (*stacky.Program, error) { panic("boom") }
	defer func() { compileSource = original }()

	require.Equal(t, "internal error: boom", Run("1"))
	require.Contains(t, logs.String(), "recovered interpreter fault")
	require.Contains(t, logs.String(), `"panic":"boom"`)
}
