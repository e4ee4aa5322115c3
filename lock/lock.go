// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lock provides the lock adapter consumed by package channel: a
// thin abstraction over a mutex, so that channel code does not care
// whether it is compiled into a single-threaded build (where locking is
// free) or a multi-threaded build (where it must actually exclude other
// fibers).
package lock

// Locker is the contract channel depends on: non-reentrant lock/unlock,
// with a stable total ordering across instances.
//
// SortKey exists to let a Locker be ordered independently of its owner,
// but package channel's select coordinator orders and deduplicates on
// Channel.SortKey (the channel's own identity) rather than on its
// Locker's, since two select cases sharing one channel must collapse to
// one lock/unlock pair regardless of how the Locker happens to compare.
// Locker.SortKey is still part of the contract for callers that lock
// Lockers directly, without going through a Channel.
type Locker interface {
	Lock()
	Unlock()
	SortKey() uintptr
}

// New returns a Locker appropriate for the given concurrency model.
// threaded=false yields a no-op lock, for single-fiber use; threaded=true
// yields a spin-lock (*Spin).
func New(threaded bool) Locker {
	if !threaded {
		return newNoop()
	}
	return newSpin()
}

// With runs fn with l held, always releasing it afterwards.
func With(l Locker, fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}

// WithUnlocked releases l, runs fn, then reacquires l. This is the
// "release the lock across a reschedule" step used by send, receive,
// and select. fn must not itself touch l.
func WithUnlocked(l Locker, fn func()) {
	l.Unlock()
	defer l.Lock()
	fn()
}
