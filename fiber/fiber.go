// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fiber defines the scheduler-hook contract that package channel
// depends on (current fiber, park, restore) and ships a default,
// goroutine-backed implementation of it. Channel code only ever calls
// Scheduler.Current, Scheduler.Park, and Scheduler.Restore; fiber
// creation and scheduling otherwise stay out of its way.
package fiber

import (
	"context"

	"github.com/google/uuid"
)

// ID is an opaque, totally-comparable fiber identity, handed out as a
// uuid.UUID per fiber.
type ID = uuid.UUID

// Handle identifies one fiber.
type Handle interface {
	ID() ID
}

// Scheduler is the contract consumed by package channel:
//   - Current returns the calling fiber's handle, recovered from ctx
//     (see WithHandle/Go below) since Go gives a library no way to tag
//     a goroutine itself.
//   - Park suspends the calling fiber until some other fiber calls
//     Restore with its handle. It must only be called after the
//     caller's waiter record has been enqueued and the channel lock
//     released.
//   - Restore marks the given fiber runnable again. It must be safe to
//     call while holding a channel's lock.
type Scheduler interface {
	Current(ctx context.Context) Handle
	Park(ctx context.Context)
	Restore(Handle)
}

type handle struct {
	id     ID
	resume chan struct{}
}

func (h *handle) ID() ID { return h.id }

type ctxKey struct{}

// WithHandle returns a context carrying h as the current fiber's handle.
func WithHandle(ctx context.Context, h Handle) context.Context {
	return context.WithValue(ctx, ctxKey{}, h)
}

// HandleFrom recovers the fiber handle previously attached with
// WithHandle, if any.
func HandleFrom(ctx context.Context) (Handle, bool) {
	h, ok := ctx.Value(ctxKey{}).(Handle)
	return h, ok
}

// Runtime is the default goroutine-backed Scheduler. Each fiber is one
// goroutine; Park/Restore are implemented with a private, per-fiber
// resume channel, since a library cannot suspend an arbitrary
// goroutine's stack directly the way a runtime scheduler can.
type Runtime struct{}

// NewRuntime returns a Runtime.
func NewRuntime() *Runtime { return &Runtime{} }

// Go spawns fn on a new fiber and returns its handle immediately. fn
// receives a context carrying that handle (via WithHandle), so that
// Current/Park work when later called with it or a context derived
// from it.
func (r *Runtime) Go(ctx context.Context, fn func(context.Context)) Handle {
	h := &handle{id: uuid.New(), resume: make(chan struct{}, 1)}
	fiberCtx := WithHandle(ctx, h)
	go fn(fiberCtx)
	return h
}

// Current returns the fiber handle carried by ctx.
func (r *Runtime) Current(ctx context.Context) Handle {
	h, ok := HandleFrom(ctx)
	if !ok {
		panic("fiber: ctx carries no handle; spawn this fiber with Runtime.Go")
	}
	return h
}

// Park suspends the calling fiber until Restore(h) is called with this
// fiber's own handle.
func (r *Runtime) Park(ctx context.Context) {
	h := r.Current(ctx).(*handle)
	<-h.resume
}

// Restore marks h runnable again. Safe to call while holding a channel
// lock: it never blocks (the resume channel is buffered by one).
func (r *Runtime) Restore(h Handle) {
	hh, ok := h.(*handle)
	if !ok {
		panic("fiber: Restore called with a handle not owned by this Runtime")
	}
	select {
	case hh.resume <- struct{}{}:
	default:
		// Already has a pending resume signal; Restore is idempotent.
	}
}
