package stacky

// estimatedValueBytes approximates one Value slot including its string
// header. String payloads are charged on top.
const estimatedValueBytes = 32

func valueCost(v Value) int {
	return estimatedValueBytes + len(v.str)
}

// charge adds n bytes to the running estimate. A charge that would exceed
// the quota fails and leaves the estimate unchanged. Releasing memory
// passes a negative n.
func (in *Interpreter) charge(n int) error {
	if n > 0 && in.memory+n > in.config.MemoryQuotaBytes {
		return in.limitError(LimitMemory, in.config.MemoryQuotaBytes)
	}
	in.memory += n
	return nil
}

// MemoryUsage returns the estimated bytes held by the stack and locals.
func (in *Interpreter) MemoryUsage() int {
	return in.memory
}
