// SPDX-License-Identifier: MIT
//
// Package bitint provides power-of-two helpers for sizing analysis windows
// and sample buffers. All operations are O(1), allocation-free and safe to
// call from the real-time path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Powers of 2 are returned unchanged; size <= 0 yields 1.
//
// The size-1 subtraction keeps exact powers of 2 from being doubled:
// bits.Len(7) == 3 so 8 maps back to 8, while bits.Len(8) == 4 would
// incorrectly map 8 to 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of 2 has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for n > 0, and 0 otherwise.
func Log2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}
