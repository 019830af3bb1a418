package ancs

import (
	"math"
	"runtime"
	"runtime/debug"
)

// MemoryProbe reports the number of bytes still available to the process.
type MemoryProbe func() uint64

// SoftLimitProbe measures headroom below the Go soft memory limit (GOMEMLIMIT).
// Without a limit the headroom is effectively unbounded.
func SoftLimitProbe() uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return math.MaxUint64
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapAlloc >= uint64(limit) {
		return 0
	}
	return uint64(limit) - ms.HeapAlloc
}
