// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ring implements the bounded circular buffer backing a
// buffered Channel.
package ring

// Buffer is a fixed-capacity circular buffer of T.
type Buffer[T any] struct {
	data  []T
	head  int // index of the oldest element
	count int
}

// NewBuffer returns a Buffer with the given capacity. capacity must be
// > 0; a capacity-0 channel never allocates a Buffer at all.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Len returns the number of elements currently queued.
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the buffer's fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.data) }

// Full reports whether Len() == Cap().
func (b *Buffer[T]) Full() bool { return b.count == len(b.data) }

// Empty reports whether Len() == 0.
func (b *Buffer[T]) Empty() bool { return b.count == 0 }

// PushBack appends v at the tail. It panics if the buffer is full;
// callers must check Full() first.
func (b *Buffer[T]) PushBack(v T) {
	if b.Full() {
		panic("ring: PushBack on a full Buffer")
	}
	tail := (b.head + b.count) % len(b.data)
	b.data[tail] = v
	b.count++
}

// PopFront removes and returns the head element. ok is false if the
// buffer was empty.
func (b *Buffer[T]) PopFront() (v T, ok bool) {
	if b.Empty() {
		return v, false
	}
	v = b.data[b.head]
	var zero T
	b.data[b.head] = zero // drop the reference so GC can reclaim it
	b.head = (b.head + 1) % len(b.data)
	b.count--
	return v, true
}
