// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The multi-way wait: Select arms a set of send/receive actions against
// their channels and commits to exactly one of them, built entirely on
// the Channel[T] primitives channel.go exposes to plain Send/Receive.
package channel

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/femto/fiberchan/fiber"
)

// selectState is the shared "has one of my cases already won" flag a
// whole Select call's cases contend over. tryTrigger is the only way to
// move it from unfired to fired, and it can succeed for at most one
// caller.
type selectState struct {
	status int32
}

func (s *selectState) tryTrigger() bool {
	return atomic.CompareAndSwapInt32(&s.status, 0, 1)
}

// selectContext is handed to every case of one Select call: the shared
// activation flag plus the identity of the parked fiber being raced for.
type selectContext struct {
	shared *selectState
	fiber  fiber.Handle
}

// SelectCase is one arm of a Select call. ReceiveAction[T] and
// SendAction[T] are the two concrete implementations; construct them
// with Recv and Send. The interface is intentionally non-generic so a
// single Select call can mix actions over channels of different
// element types, the same way reflect.Select mixes arbitrary
// directions and types behind reflect.SelectCase.
type SelectCase interface {
	sortKey() uintptr
	scheduler() fiber.Scheduler
	lock()
	unlock()
	tryExecute() bool
	register(sel *selectContext)
	unregister()
	resolveAfterWake() bool
	err() error
}

// ReceiveAction is a select arm that receives from ch. Read Value/Ok
// once Select returns the index of this action.
type ReceiveAction[T any] struct {
	ch     *Channel[T]
	value  T
	ok     bool
	waiter *receiverWaiter[T]
}

// Recv builds a receive arm for use with Select.
func Recv[T any](ch *Channel[T]) *ReceiveAction[T] { return &ReceiveAction[T]{ch: ch} }

// Value is the received value, valid only once this action has won its
// Select and Ok reports true.
func (a *ReceiveAction[T]) Value() T { return a.value }

// Ok reports whether Value holds a delivered value (false means the
// channel was observed closed instead).
func (a *ReceiveAction[T]) Ok() bool { return a.ok }

func (a *ReceiveAction[T]) sortKey() uintptr           { return a.ch.SortKey() }
func (a *ReceiveAction[T]) scheduler() fiber.Scheduler { return a.ch.sched }
func (a *ReceiveAction[T]) lock()                      { a.ch.mu.Lock() }
func (a *ReceiveAction[T]) unlock()                    { a.ch.mu.Unlock() }

func (a *ReceiveAction[T]) tryExecute() bool {
	if v, ok := a.ch.tryReceive(); ok {
		a.value, a.ok = v, true
		return true
	}
	if a.ch.closed {
		a.ok = false
		return true
	}
	return false
}

func (a *ReceiveAction[T]) register(sel *selectContext) {
	w := &receiverWaiter[T]{handle: sel.fiber, sel: sel}
	w.node = a.ch.receivers.PushBack(w)
	a.waiter = w
}

func (a *ReceiveAction[T]) unregister() {
	if a.waiter == nil {
		return
	}
	a.ch.receivers.Remove(a.waiter.node)
}

func (a *ReceiveAction[T]) resolveAfterWake() bool {
	if a.waiter == nil || a.waiter.state == deliveryNone {
		return false
	}
	switch a.waiter.state {
	case deliveryDelivered:
		a.value, a.ok = a.waiter.value, true
	case deliveryClosed:
		a.ok = false
	}
	return true
}

func (a *ReceiveAction[T]) err() error {
	if a.ok {
		return nil
	}
	return ErrClosed
}

// SendAction is a select arm that sends v on ch. Read Ok once Select
// returns the index of this action.
type SendAction[T any] struct {
	ch     *Channel[T]
	value  T
	ok     bool
	waiter *senderWaiter[T]
}

// Send builds a send arm for use with Select.
func Send[T any](ch *Channel[T], v T) *SendAction[T] { return &SendAction[T]{ch: ch, value: v} }

// Ok reports whether the send transferred (false means the channel was
// observed/became closed instead).
func (a *SendAction[T]) Ok() bool { return a.ok }

func (a *SendAction[T]) sortKey() uintptr           { return a.ch.SortKey() }
func (a *SendAction[T]) scheduler() fiber.Scheduler { return a.ch.sched }
func (a *SendAction[T]) lock()                      { a.ch.mu.Lock() }
func (a *SendAction[T]) unlock()                    { a.ch.mu.Unlock() }

func (a *SendAction[T]) tryExecute() bool {
	if a.ch.closed {
		a.ok = false
		return true
	}
	if a.ch.trySend(a.value) {
		a.ok = true
		return true
	}
	return false
}

func (a *SendAction[T]) register(sel *selectContext) {
	w := &senderWaiter[T]{handle: sel.fiber, value: a.value, sel: sel}
	w.node = a.ch.senders.PushBack(w)
	a.waiter = w
}

func (a *SendAction[T]) unregister() {
	if a.waiter == nil {
		return
	}
	a.ch.senders.Remove(a.waiter.node)
}

func (a *SendAction[T]) resolveAfterWake() bool {
	if a.waiter == nil || a.waiter.state == deliveryNone {
		return false
	}
	switch a.waiter.state {
	case deliveryDelivered:
		a.ok = true
	case deliveryClosed:
		a.ok = false
	}
	return true
}

func (a *SendAction[T]) err() error {
	if a.ok {
		return nil
	}
	return ErrClosed
}

type selectOptions struct {
	hasDefault bool
}

// SelectOption configures a Select call.
type SelectOption func(*selectOptions)

// WithDefault makes Select return immediately with (len(cases), nil)
// instead of blocking when no case is immediately ready.
func WithDefault() SelectOption {
	return func(o *selectOptions) { o.hasDefault = true }
}

// lockUnique locks every distinct underlying channel referenced by
// cases exactly once, in ascending SortKey order. Two cases over the
// same channel share one lock/unlock call.
func lockUnique(cases []SelectCase) []SelectCase {
	seen := make(map[uintptr]bool, len(cases))
	uniq := make([]SelectCase, 0, len(cases))
	for _, c := range cases {
		k := c.sortKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, c)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].sortKey() < uniq[j].sortKey() })
	for _, c := range uniq {
		c.lock()
	}
	return uniq
}

func unlockUnique(uniq []SelectCase) {
	for i := len(uniq) - 1; i >= 0; i-- {
		uniq[i].unlock()
	}
}

// Select waits on multiple send/receive actions at once, completing
// exactly one. With WithDefault and no case immediately ready, it
// returns (len(cases), nil) rather than blocking. Otherwise it blocks
// until some case can proceed, then returns that case's index in cases
// and the error that case produced (ErrClosed if the winning channel
// turned out closed rather than transferring a value).
//
// ctx supplies the calling fiber's identity, taken from cases[0]'s
// channel's scheduler; every case in one Select call must belong to
// channels sharing the same fiber.Scheduler, since exactly one
// underlying fiber is being parked and restored across all of them.
func Select(ctx context.Context, cases []SelectCase, opts ...SelectOption) (int, error) {
	var o selectOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(cases) == 0 {
		panic("channel: Select requires at least one case")
	}

	uniq := lockUnique(cases)

	for i, c := range cases {
		if c.tryExecute() {
			unlockUnique(uniq)
			traceSelect("select-immediate", logrus.Fields{"index": i})
			return i, c.err()
		}
	}

	if o.hasDefault {
		unlockUnique(uniq)
		traceSelect("select-default", nil)
		return len(cases), nil
	}

	sched := cases[0].scheduler()
	handle := sched.Current(ctx)
	sel := &selectContext{shared: &selectState{}, fiber: handle}
	for _, c := range cases {
		c.register(sel)
	}
	unlockUnique(uniq)

	sched.Park(ctx)

	uniq = lockUnique(cases)
	for _, c := range cases {
		c.unregister()
	}
	winner := -1
	for i, c := range cases {
		if c.resolveAfterWake() {
			winner = i
			break
		}
	}
	unlockUnique(uniq)

	if winner < 0 {
		throwProtocolError("select woke with no case activated")
	}
	traceSelect("select-wakeup", logrus.Fields{"index": winner})
	return winner, cases[winner].err()
}

// ReceiveFirst receives from whichever of chs is ready first, returning
// its value, its index in chs, and any error (ErrClosed if that
// channel turned out closed). It is Select specialized to a homogeneous
// set of receive arms.
func ReceiveFirst[T any](ctx context.Context, chs ...*Channel[T]) (T, int, error) {
	actions := make([]*ReceiveAction[T], len(chs))
	cases := make([]SelectCase, len(chs))
	for i, ch := range chs {
		a := Recv(ch)
		actions[i] = a
		cases[i] = a
	}
	idx, err := Select(ctx, cases)
	var zero T
	if idx == len(cases) {
		return zero, idx, err
	}
	return actions[idx].Value(), idx, err
}

// SendFirst sends v on whichever of chs accepts it first, returning its
// index in chs and any error. It is Select specialized to a
// homogeneous set of send arms.
func SendFirst[T any](ctx context.Context, v T, chs ...*Channel[T]) (int, error) {
	cases := make([]SelectCase, len(chs))
	for i, ch := range chs {
		cases[i] = Send(ch, v)
	}
	return Select(ctx, cases)
}
