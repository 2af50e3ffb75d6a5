package engine

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations.
// Player gold balances are read far more often (every outbound tick
// message, plus an out-of-band /status poll — see package server) than
// they're written (only by the single match-owning goroutine, on a
// capture, a passive-income tick, or a spend). Using CAS here means a
// concurrent reader never blocks on a mutex shared with the match's hot
// tick loop.
type AtomicFloat64 struct {
	val float64
}

// NewAtomicFloat64 wraps a starting value for atomic operations.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	return &AtomicFloat64{val: val}
}

// AtomicRead returns the current value, synchronized with main memory.
func (af *AtomicFloat64) AtomicRead() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(bits)
}

// AtomicAdd adds addend to the float with a single compare-and-swap attempt.
// succeeded is false if the value changed between the read and the swap, in
// which case nothing was written; retrying is left to the caller (see
// Match.addGold, which loops until the add succeeds).
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.AtomicRead()
	newVal = old + addend
	succeeded = atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&af.val)),
		math.Float64bits(old),
		math.Float64bits(newVal))
	return
}

// AtomicSet sets the float to a new value, returning true on success.
func (af *AtomicFloat64) AtomicSet(newVal float64) (succeeded bool) {
	old := af.AtomicRead()
	succeeded = atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&af.val)),
		math.Float64bits(old),
		math.Float64bits(newVal))
	return
}
