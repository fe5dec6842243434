// SPDX-License-Identifier: MIT
package dsp

import "testing"

func seq(start, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(start + i)
	}
	return s
}

func TestRingBufferRecency(t *testing.T) {
	r := NewRingBuffer(8)
	r.Write(seq(0, 8))

	dst := make([]float32, 4)
	if !r.ReadLatest(dst) {
		t.Fatal("read failed on full buffer")
	}
	for i, want := range []float32{4, 5, 6, 7} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestRingBufferWraparound(t *testing.T) {
	r := NewRingBuffer(8)
	r.Write(seq(0, 6))
	r.Write(seq(6, 6)) // head wraps

	dst := make([]float32, 8)
	if !r.ReadLatest(dst) {
		t.Fatal("read failed after wraparound")
	}
	for i := range dst {
		want := float32(4 + i)
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestRingBufferOversizedWrite(t *testing.T) {
	r := NewRingBuffer(4)
	r.Write(seq(0, 10)) // only the tail survives

	dst := make([]float32, 4)
	if !r.ReadLatest(dst) {
		t.Fatal("read failed")
	}
	for i, want := range []float32{6, 7, 8, 9} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestRingBufferUnderfill(t *testing.T) {
	r := NewRingBuffer(8)
	r.Write(seq(0, 3))

	dst := make([]float32, 4)
	if r.ReadLatest(dst) {
		t.Error("expected no partial read with insufficient history")
	}
	if r.Available() != 3 {
		t.Errorf("Available = %d, want 3", r.Available())
	}

	small := make([]float32, 3)
	if !r.ReadLatest(small) {
		t.Error("read of exactly available samples must succeed")
	}
}

func TestRingBufferHotPath(t *testing.T) {
	r := NewRingBuffer(4096)
	block := make([]float32, 256)
	dst := make([]float32, 1024)
	r.Write(make([]float32, 4096))

	allocs := testing.AllocsPerRun(100, func() {
		r.Write(block)
		r.ReadLatest(dst)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in ring buffer hot path, got %.1f", allocs)
	}
}
