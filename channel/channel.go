// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package channel implements a typed communication channel and its
// select protocol: send/receive for single-value transfer between
// fibers, and a select coordinator for multi-way waits across a
// heterogeneous set of channels.
//
// Each channel keeps a waiter queue per direction and a lock-ordered,
// at-most-once-activation select protocol, generalized to Go generics
// and to the pluggable fiber.Scheduler/lock.Locker contracts.
package channel

import (
	"context"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/femto/fiberchan/channel/internal/ring"
	"github.com/femto/fiberchan/channel/internal/waitlist"
	"github.com/femto/fiberchan/fiber"
	"github.com/femto/fiberchan/lock"
)

// deliveryState is the write-once cell a parked waiter inspects after
// waking: did its operation actually transfer a value, or did it wake
// because the channel closed.
//
// A plain blocked Send can tell the two apart from its own state cell
// plus c.closed once it reacquires the lock, but a SendAction participating in a
// select cannot safely do that once it is one of several cases racing
// across different channels, so senderWaiter carries the same state
// cell receiverWaiter does.
type deliveryState int32

const (
	deliveryNone deliveryState = iota
	deliveryDelivered
	deliveryClosed
)

type senderWaiter[T any] struct {
	handle fiber.Handle
	value  T
	sel    *selectContext
	state  deliveryState
	node   *waitlist.Node[*senderWaiter[T]]
}

type receiverWaiter[T any] struct {
	handle fiber.Handle
	value  T
	sel    *selectContext
	state  deliveryState
	node   *waitlist.Node[*receiverWaiter[T]]
}

// Channel is a typed, cooperatively-scheduled communication channel.
type Channel[T any] struct {
	capacity int
	mu       lock.Locker
	sched    fiber.Scheduler

	closed    bool
	buf       *ring.Buffer[T] // nil iff capacity == 0 (unbuffered)
	senders   *waitlist.List[*senderWaiter[T]]
	receivers *waitlist.List[*receiverWaiter[T]]
}

var (
	defaultRuntimeOnce sync.Once
	defaultRuntime     *fiber.Runtime
)

func defaultScheduler() fiber.Scheduler {
	defaultRuntimeOnce.Do(func() { defaultRuntime = fiber.NewRuntime() })
	return defaultRuntime
}

// New returns a Channel with the given capacity (0 ⇒ unbuffered,
// rendezvous-only; >0 ⇒ bounded buffer), using the package-level
// default goroutine-backed fiber.Runtime as its scheduler.
func New[T any](capacity int) *Channel[T] {
	return NewWithScheduler[T](capacity, defaultScheduler())
}

// NewWithScheduler is New, but against an explicit fiber.Scheduler. The
// fiber runtime itself is an external collaborator, consumed only
// through this interface.
func NewWithScheduler[T any](capacity int, sched fiber.Scheduler) *Channel[T] {
	if capacity < 0 {
		capacity = 0
	}
	c := &Channel[T]{
		capacity:  capacity,
		mu:        lock.New(true),
		sched:     sched,
		senders:   waitlist.New[*senderWaiter[T]](),
		receivers: waitlist.New[*receiverWaiter[T]](),
	}
	if capacity > 0 {
		c.buf = ring.NewBuffer[T](capacity)
	}
	traceChan("make", c.SortKey(), logrus.Fields{"capacity": capacity})
	return c
}

// SortKey totally orders channels by identity. The select coordinator
// sorts on this to acquire every involved channel's lock in one
// globally consistent order.
func (c *Channel[T]) SortKey() uintptr { return uintptr(unsafe.Pointer(c)) }

// dequeueReceiver pops the first receiver waiter that is not a stale
// select entry: waiters with no select context are always eligible;
// waiters with one are only eligible if they win their shared
// selectState's activation race. Callers must hold c.mu.
func (c *Channel[T]) dequeueReceiver() *receiverWaiter[T] {
	for {
		w, ok := c.receivers.PopFront()
		if !ok {
			return nil
		}
		if w.sel != nil && !w.sel.shared.tryTrigger() {
			continue // lost the race; left for the winner's unwait sweep
		}
		return w
	}
}

// dequeueSender is dequeueReceiver's mirror for the sender queue.
// Callers must hold c.mu.
func (c *Channel[T]) dequeueSender() *senderWaiter[T] {
	for {
		w, ok := c.senders.PopFront()
		if !ok {
			return nil
		}
		if w.sel != nil && !w.sel.shared.tryTrigger() {
			continue
		}
		return w
	}
}

// trySend is the non-blocking fast path shared by Send and
// SendAction.tryExecute. Callers must hold c.mu and must already have
// checked c.closed.
func (c *Channel[T]) trySend(v T) bool {
	if r := c.dequeueReceiver(); r != nil {
		r.value = v
		r.state = deliveryDelivered
		c.sched.Restore(r.handle)
		return true
	}
	if c.buf != nil && !c.buf.Full() {
		c.buf.PushBack(v)
		return true
	}
	return false
}

// tryReceive is the non-blocking fast path shared by Receive,
// ReceiveOptional, and ReceiveAction.tryExecute. Callers must hold c.mu.
func (c *Channel[T]) tryReceive() (T, bool) {
	if c.buf != nil && !c.buf.Empty() {
		v, _ := c.buf.PopFront()
		// Preserve FIFO among buffered values while unblocking a
		// waiting sender: move its value to the tail.
		if s := c.dequeueSender(); s != nil {
			c.buf.PushBack(s.value)
			s.state = deliveryDelivered
			c.sched.Restore(s.handle)
		}
		return v, true
	}
	if s := c.dequeueSender(); s != nil {
		s.state = deliveryDelivered
		c.sched.Restore(s.handle)
		return s.value, true
	}
	var zero T
	return zero, false
}

// Send delivers v, blocking until a receiver takes it (rendezvous) or
// buffer space frees up. ctx supplies the calling fiber's identity via
// fiber.Scheduler.Current/Park; it is not a cancellation mechanism. Send
// and Receive carry no built-in timeout. To compose a cancellable send,
// select against FromContext(ctx) alongside this channel instead of
// expecting ctx.Done() to unblock Send directly.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.trySend(v) {
		c.mu.Unlock()
		traceChan("send", c.SortKey(), logrus.Fields{"blocked": false})
		return nil
	}

	w := &senderWaiter[T]{handle: c.sched.Current(ctx), value: v}
	w.node = c.senders.PushBack(w)
	lock.WithUnlocked(c.mu, func() { c.sched.Park(ctx) })
	// c.mu is held again here (WithUnlocked reacquires before returning).
	// A receiver that took v marked it Delivered; a Close that ran after
	// that transfer must not turn it into ErrClosed.
	closed := c.closed && w.state != deliveryDelivered
	c.mu.Unlock()
	traceChan("send", c.SortKey(), logrus.Fields{"blocked": true, "closed": closed})
	if closed {
		return ErrClosed
	}
	return nil
}

// Receive takes the next value, blocking until one is sent, buffered,
// or the channel is closed. See Send's doc comment for ctx's role.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	c.mu.Lock()
	if v, ok := c.tryReceive(); ok {
		c.mu.Unlock()
		traceChan("receive", c.SortKey(), logrus.Fields{"blocked": false})
		return v, nil
	}
	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}

	w := &receiverWaiter[T]{handle: c.sched.Current(ctx)}
	w.node = c.receivers.PushBack(w)
	lock.WithUnlocked(c.mu, func() { c.sched.Park(ctx) })
	defer c.mu.Unlock()

	traceChan("receive", c.SortKey(), logrus.Fields{"blocked": true, "state": w.state})
	switch w.state {
	case deliveryDelivered:
		return w.value, nil
	case deliveryClosed:
		var zero T
		return zero, ErrClosed
	default:
		throwProtocolError("receiver fiber woke with delivery state None")
		panic("unreachable")
	}
}

// ReceiveOptional is a non-blocking receive that reports the absent
// marker (ok=false) instead of blocking or failing when no value is
// immediately available.
func (c *Channel[T]) ReceiveOptional() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tryReceive()
}

// Close marks the channel closed. Idempotent: closing an already-closed
// channel is a no-op, unlike Go's built-in close, which panics on a
// second call.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	// Reuse dequeueSender/dequeueReceiver rather than draining the
	// queues unconditionally, so a select-registered waiter still goes
	// through the same exactly-once activation race as a normal
	// transfer: if two channels a select is waiting on are closed
	// concurrently, only one may flip that select's shared state.
	for {
		w := c.dequeueSender()
		if w == nil {
			break
		}
		if w.sel != nil {
			w.state = deliveryClosed
		}
		c.sched.Restore(w.handle)
	}
	for {
		w := c.dequeueReceiver()
		if w == nil {
			break
		}
		w.state = deliveryClosed
		c.sched.Restore(w.handle)
	}
	traceChan("close", c.SortKey(), nil)
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of values currently queued in the buffer (0
// for an unbuffered channel).
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf == nil {
		return 0
	}
	return c.buf.Len()
}

// Cap returns the channel's fixed capacity.
func (c *Channel[T]) Cap() int { return c.capacity }
