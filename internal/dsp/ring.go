// SPDX-License-Identifier: MIT
//
// Package dsp holds the signal-processing primitives used on the real-time
// path: a fixed-capacity ring buffer for the rolling sample history and a
// windowed spectral front end. Nothing here allocates after construction.
package dsp

// RingBuffer is a fixed-capacity circular store of float32 samples. It
// always holds the most recent capacity samples regardless of how much has
// been written. It is not synchronized: writer and reader share the single
// real-time context that drives the engine.
type RingBuffer struct {
	buf       []float32
	head      int // next write position
	available int // valid samples, capped at capacity
}

// NewRingBuffer creates a ring buffer holding capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest data once capacity is
// exceeded. O(len(samples)), never fails. Runs larger than the capacity
// keep only their most recent tail.
func (r *RingBuffer) Write(samples []float32) {
	n := len(r.buf)
	if len(samples) >= n {
		copy(r.buf, samples[len(samples)-n:])
		r.head = 0
		r.available = n
		return
	}

	first := copy(r.buf[r.head:], samples)
	copy(r.buf, samples[first:])
	r.head = (r.head + len(samples)) % n
	if r.available += len(samples); r.available > n {
		r.available = n
	}
}

// ReadLatest copies the most recent len(dst) samples into dst in
// chronological order. It reports false, leaving dst untouched, when fewer
// samples than requested have been written so far. No partial reads.
func (r *RingBuffer) ReadLatest(dst []float32) bool {
	m := len(dst)
	if m > r.available || m > len(r.buf) {
		return false
	}

	start := r.head - m
	if start < 0 {
		start += len(r.buf)
	}
	first := copy(dst, r.buf[start:])
	copy(dst[first:], r.buf[:m-first])
	return true
}

// Available returns the number of valid samples currently held.
func (r *RingBuffer) Available() int {
	return r.available
}

// Capacity returns the fixed buffer capacity.
func (r *RingBuffer) Capacity() int {
	return len(r.buf)
}
