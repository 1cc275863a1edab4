package binutil

import (
	"encoding/binary"
	"math"
)

// Order is a byte order usable for both decoding and appending.
// binary.LittleEndian and binary.BigEndian satisfy it.
type Order interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Writer is the encoding counterpart of Reader. It is used to build
// fixtures and to re-encode tables; it never fails.
type Writer struct {
	buf   []byte
	order Order
}

// NewWriter returns a Writer using the given byte order.
func NewWriter(order Order) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{order: order}
}

// Bytes returns the encoded bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// SetOrder switches the byte order for subsequent writes.
func (w *Writer) SetOrder(order Order) { w.order = order }

// Align pads with zero bytes to the next multiple of n.
func (w *Writer) Align(n int) {
	for n > 1 && len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// Raw appends b unchanged.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// U8 appends a byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// Bool appends a one-byte boolean.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// U16 appends an unsigned 16-bit integer.
func (w *Writer) U16(v uint16) { w.buf = w.order.AppendUint16(w.buf, v) }

// I16 appends a signed 16-bit integer.
func (w *Writer) I16(v int16) { w.U16(uint16(v)) } //nolint:gosec // bit reinterpretation

// U32 appends an unsigned 32-bit integer.
func (w *Writer) U32(v uint32) { w.buf = w.order.AppendUint32(w.buf, v) }

// I32 appends a signed 32-bit integer.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) } //nolint:gosec // bit reinterpretation

// U64 appends an unsigned 64-bit integer.
func (w *Writer) U64(v uint64) { w.buf = w.order.AppendUint64(w.buf, v) }

// I64 appends a signed 64-bit integer.
func (w *Writer) I64(v int64) { w.U64(uint64(v)) } //nolint:gosec // bit reinterpretation

// F32 appends an IEEE-754 single.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// F64 appends an IEEE-754 double.
func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// CString appends s followed by a NUL byte.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// ByteArray appends an int32 length followed by b.
func (w *Writer) ByteArray(b []byte) {
	w.I32(int32(len(b))) //nolint:gosec // fixture sizes are small
	w.Raw(b)
}

// AlignedString appends a length-prefixed string padded to 4 bytes.
func (w *Writer) AlignedString(s string) {
	w.ByteArray([]byte(s))
	w.Align(4)
}

// PutU32At overwrites four bytes at off. Used to back-patch sizes.
func (w *Writer) PutU32At(off int, v uint32) { w.order.PutUint32(w.buf[off:], v) }

// PutU64At overwrites eight bytes at off.
func (w *Writer) PutU64At(off int, v uint64) { w.order.PutUint64(w.buf[off:], v) }
