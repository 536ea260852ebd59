// CyberAnalyzer - Streaming Network Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cyberanalyzer

package cache

import "sync"

// Ring is a fixed-capacity double-ended FIFO. Push appends at the back and
// drops the front element when full; PushFront prepends and drops the back
// element when full.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // index of the front element
	size  int
	limit int
}

// NewRing creates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		buf:   make([]T, capacity),
		limit: capacity,
	}
}

// Push appends v at the back, evicting the oldest element when full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == r.limit {
		r.buf[r.head] = v
		r.head = (r.head + 1) % r.limit
		return
	}
	r.buf[(r.head+r.size)%r.limit] = v
	r.size++
}

// PushFront prepends v, evicting the back element when full.
func (r *Ring[T]) PushFront(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.head = (r.head - 1 + r.limit) % r.limit
	r.buf[r.head] = v
	if r.size < r.limit {
		r.size++
	}
}

// Snapshot returns a copy of the elements from front to back.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%r.limit]
	}
	return out
}

// Update calls fn on every element in place and returns how many calls
// reported a change.
func (r *Ring[T]) Update(fn func(*T) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for i := 0; i < r.size; i++ {
		if fn(&r.buf[(r.head+i)%r.limit]) {
			changed++
		}
	}
	return changed
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return r.limit
}
