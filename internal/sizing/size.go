// Package sizing provides overflow-safe size arithmetic for byte ranges.
package sizing

import "math"

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// InRange reports whether [offset, offset+size) lies within [0, limit).
func InRange(offset, size, limit int64) bool {
	if offset < 0 || size < 0 || limit < 0 {
		return false
	}
	end, ok := AddUint64(uint64(offset), uint64(size))
	if !ok {
		return false
	}
	return end <= uint64(limit)
}

// MulFits reports whether a*b fits in an int without overflow.
// Negative operands never fit.
func MulFits(a, b int) bool {
	if a < 0 || b < 0 {
		return false
	}
	if a == 0 || b == 0 {
		return true
	}
	return a <= math.MaxInt/b
}
