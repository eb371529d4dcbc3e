package serial

import (
	"math"
	"time"
)

// TimeoutMax disables the inter-byte timeout when used as Timeout.InterByte.
const TimeoutMax uint32 = math.MaxUint32

// maxBudgetMillis keeps budgets representable as a time.Duration.
const maxBudgetMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// Timeout holds the read and write timing policy, all values in milliseconds.
//
// A read of n bytes is capped at ReadConstant + ReadMultiplier*n, and a write
// of n bytes at WriteConstant + WriteMultiplier*n. When InterByte is not
// TimeoutMax a read that has received at least one byte returns early once no
// further byte arrives within InterByte. Expiry is not an error; the call
// returns whatever was transferred.
type Timeout struct {
	InterByte       uint32
	ReadConstant    uint32
	ReadMultiplier  uint32
	WriteConstant   uint32
	WriteMultiplier uint32
}

// SimpleTimeout returns a timeout with no inter-byte limit and a fixed
// budget of ms for every read and write.
func SimpleTimeout(ms uint32) Timeout {
	return Timeout{
		InterByte:     TimeoutMax,
		ReadConstant:  ms,
		WriteConstant: ms,
	}
}

// ReadBudget is the overall deadline for reading n bytes.
func (t Timeout) ReadBudget(n int) time.Duration {
	return budget(t.ReadConstant, t.ReadMultiplier, n)
}

// WriteBudget is the overall deadline for writing n bytes.
func (t Timeout) WriteBudget(n int) time.Duration {
	return budget(t.WriteConstant, t.WriteMultiplier, n)
}

// InterByteLimit returns the inter-byte gap and whether it is enabled.
func (t Timeout) InterByteLimit() (time.Duration, bool) {
	if t.InterByte == TimeoutMax {
		return 0, false
	}
	return time.Duration(t.InterByte) * time.Millisecond, true
}

func budget(constant, multiplier uint32, n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if multiplier != 0 && uint64(n) > maxBudgetMillis/uint64(multiplier) {
		return time.Duration(maxBudgetMillis) * time.Millisecond
	}
	ms := uint64(constant) + uint64(multiplier)*uint64(n)
	if ms > maxBudgetMillis {
		ms = maxBudgetMillis
	}
	return time.Duration(ms) * time.Millisecond
}
