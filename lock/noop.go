package lock

import "unsafe"

// noop is the single-threaded build's Locker: locking is free because
// there is only ever one fiber running at a time.
type noop struct {
	_ byte // non-zero size, so each instance has its own address for SortKey
}

func newNoop() *noop { return &noop{} }

func (n *noop) Lock()   {}
func (n *noop) Unlock() {}

func (n *noop) SortKey() uintptr { return uintptr(unsafe.Pointer(n)) }
