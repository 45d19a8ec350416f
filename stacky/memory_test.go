package stacky

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const stringGrowthFixture = `
"" store s
loop
  load s "xxxxxxxxxx" + store s
end
`

func TestMemoryQuotaStopsStringGrowth(t *testing.T) {
	_, _, err := runSource(t, Config{MemoryQuotaBytes: 256}, stringGrowthFixture)

	var le *LimitError
	require.True(t, errors.As(err, &le), "expected *LimitError, got %T: %v", err, err)
	require.Equal(t, LimitMemory, le.Limit)
	require.Equal(t, 256, le.Max)
	require.ErrorIs(t, err, ErrMemoryQuotaExceeded)
	require.True(t, strings.HasPrefix(err.Error(), "memory quota exceeded (256 bytes) at "))
}

func TestMemoryAccountingFollowsTheStack(t *testing.T) {
	in, _, err := runSource(t, Config{}, `1 2 + "abcd" pop`)
	require.NoError(t, err)
	require.Equal(t, estimatedValueBytes, in.MemoryUsage())

	in, _, err = runSource(t, Config{}, `"abcd" store s "ab" store s`)
	require.NoError(t, err)
	require.Equal(t, estimatedValueBytes+2, in.MemoryUsage(), "overwriting a local releases the old value")
}

func TestMemoryQuotaDoesNotTripOnSteadyState(t *testing.T) {
	_, _, err := runSource(t, Config{MemoryQuotaBytes: 512, MaxExecutionTime: 2000}, `
0 store i
loop
  load i 100 >= if break end
  "payload" pop
  load i 1 + store i
end
`)
	require.NoError(t, err)
}
