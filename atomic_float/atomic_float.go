package atomic_float

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Notes:
// - no unsafe pointer is held past the statement that creates it; the gc may
//   move the float's owner and leave a stored pointer stale.
// - every access to the wrapped value goes through atomic loads or CAS.

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations.
// Sweep workers share one of these to reduce their per-row convergence deltas
// without a lock.
type AtomicFloat64 struct {
	val float64
}

// NewAtomicFloat64 encapsulates a float64 for atomic operations.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	return &AtomicFloat64{
		val: val,
	}
}

// AtomicRead loads the float64, synchronized with other writers.
func (af *AtomicFloat64) AtomicRead() (value float64) {
	uint_val := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(uint_val)
}

// AtomicMax raises the float64 to candidate if candidate is larger, retrying
// until the value is at least candidate. Returns the value after the operation.
func (af *AtomicFloat64) AtomicMax(candidate float64) float64 {
	for {
		old := af.AtomicRead()
		if candidate <= old {
			return old
		}
		if af.cas(old, candidate) {
			return candidate
		}
	}
}

func (af *AtomicFloat64) cas(old, new_val float64) bool {
	return atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&af.val)),
		math.Float64bits(old),
		math.Float64bits(new_val))
}
