// Package binutil provides a bounds-checked cursor over serialized asset data.
//
// Reader records the first error it encounters and turns every later read
// into a no-op returning the zero value, so layout code can read a run of
// fields and check Err once at the end of each logical unit.
package binutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortRead is returned when a read would run past the end of the buffer.
var ErrShortRead = errors.New("binutil: read past end of buffer")

// ErrInvalidLength is returned when a length prefix is negative or larger
// than the data that remains.
var ErrInvalidLength = errors.New("binutil: invalid length prefix")

// Reader reads primitives from a byte slice in a fixed byte order.
//
// The slices returned by Bytes alias the underlying buffer and must be
// treated as read-only.
type Reader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	err   error
}

// NewReader returns a Reader over buf using the given byte order.
func NewReader(buf []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{buf: buf, order: order}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Fail records err if no earlier error was recorded. Layout code uses it
// to report semantic inconsistencies through the same channel as short reads.
func (r *Reader) Fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Pos returns the current offset from the start of the buffer.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Order returns the byte order used for multi-byte values.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// SetOrder switches the byte order for subsequent reads.
func (r *Reader) SetOrder(order binary.ByteOrder) { r.order = order }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(pos int) {
	if r.err != nil {
		return
	}
	if pos < 0 || pos > len(r.buf) {
		r.err = fmt.Errorf("%w: seek to %d in %d bytes", ErrShortRead, pos, len(r.buf))
		return
	}
	r.pos = pos
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Align advances the cursor to the next multiple of n relative to the
// start of the buffer. Padding beyond the end of the buffer is an error.
func (r *Reader) Align(n int) {
	if r.err != nil || n <= 1 {
		return
	}
	if pad := (n - r.pos%n) % n; pad > 0 {
		r.take(pad)
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.pos {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, r.pos, len(r.buf)-r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// U8 reads an unsigned byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// I8 reads a signed byte.
func (r *Reader) I8() int8 { return int8(r.U8()) } //nolint:gosec // bit reinterpretation

// Bool reads a one-byte boolean.
func (r *Reader) Bool() bool { return r.U8() != 0 }

// U16 reads an unsigned 16-bit integer.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

// I16 reads a signed 16-bit integer.
func (r *Reader) I16() int16 { return int16(r.U16()) } //nolint:gosec // bit reinterpretation

// U32 reads an unsigned 32-bit integer.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

// I32 reads a signed 32-bit integer.
func (r *Reader) I32() int32 { return int32(r.U32()) } //nolint:gosec // bit reinterpretation

// U64 reads an unsigned 64-bit integer.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return r.order.Uint64(b)
}

// I64 reads a signed 64-bit integer.
func (r *Reader) I64() int64 { return int64(r.U64()) } //nolint:gosec // bit reinterpretation

// F32 reads an IEEE-754 single.
func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

// F64 reads an IEEE-754 double.
func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) []byte { return r.take(n) }

// Count reads an int32 element count and checks that at least
// count*minElemSize bytes remain. A negative or impossible count fails the
// reader and returns 0.
func (r *Reader) Count(minElemSize int) int {
	n := r.I32()
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.err = fmt.Errorf("%w: %d at offset %d", ErrInvalidLength, n, r.pos-4)
		return 0
	}
	if minElemSize > 0 && int64(n)*int64(minElemSize) > int64(r.Remaining()) {
		r.err = fmt.Errorf("%w: %d elements of %d bytes exceed %d remaining", ErrInvalidLength, n, minElemSize, r.Remaining())
		return 0
	}
	return int(n)
}

// ByteArray reads an int32 length followed by that many bytes.
func (r *Reader) ByteArray() []byte {
	n := r.Count(1)
	return r.take(n)
}

// PrefixedString reads an int32 length-prefixed string without alignment.
func (r *Reader) PrefixedString() string {
	return string(r.ByteArray())
}

// AlignedString reads a length-prefixed string and aligns to 4 bytes.
func (r *Reader) AlignedString() string {
	s := r.PrefixedString()
	r.Align(4)
	return s
}

// CString reads a NUL-terminated string.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	for i := r.pos; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[r.pos:i])
			r.pos = i + 1
			return s
		}
	}
	r.err = fmt.Errorf("%w: unterminated string at offset %d", ErrShortRead, r.pos)
	return ""
}

// F32s reads an int32 count followed by that many floats.
func (r *Reader) F32s() []float32 {
	n := r.Count(4)
	out := make([]float32, n)
	for i := range out {
		out[i] = r.F32()
	}
	return out
}

// U16s reads an int32 count followed by that many uint16 values and aligns.
func (r *Reader) U16s() []uint16 {
	n := r.Count(2)
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.U16()
	}
	r.Align(4)
	return out
}

// Array reads an int32 count and then count elements with read.
// minElemSize bounds the count against the remaining bytes.
func Array[T any](r *Reader, minElemSize int, read func(*Reader) T) []T {
	n := r.Count(minElemSize)
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for range n {
		v := read(r)
		if r.err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}
