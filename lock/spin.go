package lock

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// Spin is a CAS spin-lock for multi-fiber use: grab the lock with a
// single CompareAndSwap, and otherwise spin with a scheduler-yield
// backoff. A channel's critical sections are a handful of pointer and
// counter mutations bounded by the size of its wait queues, and are
// never held across a blocking operation, so a plain spin-lock suffices
// without a starvation-avoidance mode.
type Spin struct {
	state int32
}

func newSpin() *Spin { return &Spin{} }

const (
	spinUnlocked = 0
	spinLocked   = 1
)

func (s *Spin) Lock() {
	if atomic.CompareAndSwapInt32(&s.state, spinUnlocked, spinLocked) {
		return
	}
	spins := 0
	for !atomic.CompareAndSwapInt32(&s.state, spinUnlocked, spinLocked) {
		spins++
		if spins < 30 {
			// Active spinning: on a multi-core machine the holder is
			// likely to release within a few iterations.
			continue
		}
		// Yield the fiber's underlying goroutine so the scheduler can
		// run the lock holder to completion instead of burning a core.
		runtime.Gosched()
	}
}

func (s *Spin) Unlock() {
	if !atomic.CompareAndSwapInt32(&s.state, spinLocked, spinUnlocked) {
		panic("lock: unlock of unlocked Spin")
	}
}

func (s *Spin) SortKey() uintptr { return uintptr(unsafe.Pointer(s)) }
