// Package wire implements the MS-SMB2 wire codec: header framing, the
// per-command request/response structures, MS-DTYP security descriptors and
// MS-FSCC information classes used by the client.
package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// le is the byte order for every multi-byte SMB2 field on the wire.
var le = binary.LittleEndian

// EncodeUTF16LE encodes a Go string to UTF-16LE bytes.
func EncodeUTF16LE(s string) []byte {
	runes := utf16.Encode([]rune(s))
	buf := make([]byte, len(runes)*2)
	for i, r := range runes {
		le.PutUint16(buf[i*2:], r)
	}
	return buf
}

// DecodeUTF16LE decodes UTF-16LE bytes to a Go string.
func DecodeUTF16LE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	runes := make([]uint16, len(data)/2)
	for i := range runes {
		runes[i] = le.Uint16(data[i*2:])
	}
	return string(utf16.Decode(runes))
}

// PadTo returns the padding needed to align offset to the given boundary.
func PadTo(offset, alignment int) int {
	r := offset % alignment
	if r == 0 {
		return 0
	}
	return alignment - r
}

// AlignTo rounds v up to the next multiple of alignment.
func AlignTo(v, alignment int) int {
	return (v + alignment - 1) / alignment * alignment
}

// Reader reads an SMB2 byte stream, tracking position for offset fields.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader { return &Reader{data: data} }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Position returns the current read offset.
func (r *Reader) Position() int { return r.pos }

// Seek repositions the reader to an absolute offset.
func (r *Reader) Seek(pos int) { r.pos = pos }

// Skip advances the reader by n bytes.
func (r *Reader) Skip(n int) { r.pos += n }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) || n < 0 {
		r.err = fmt.Errorf("wire: short read: need %d bytes at offset %d, have %d", n, r.pos, len(r.data))
		return false
	}
	return true
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Byte reads a single byte.
func (r *Reader) Byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := le.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := le.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := le.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// GUID reads a 16-byte GUID.
func (r *Reader) GUID() [16]byte {
	var g [16]byte
	copy(g[:], r.Bytes(16))
	return g
}

// UTF16String reads a UTF-16LE string of the given byte length.
func (r *Reader) UTF16String(byteLen int) string {
	return DecodeUTF16LE(r.Bytes(byteLen))
}

// AssertZero reports a fatal decode error if the given reserved field is
// non-zero, per the "reserved fields asserted zero" codec rule.
func (r *Reader) AssertZero(name string, v uint64) {
	if r.err == nil && v != 0 {
		r.err = fmt.Errorf("wire: reserved field %s expected zero, got 0x%x", name, v)
	}
}

// Writer builds an SMB2 byte stream, supporting position-marker patching for
// offset/length fields that must be backfilled once the payload is known.
type Writer struct {
	data []byte
}

// NewWriter creates a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{data: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.data }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.data) }

// Mark returns the current write position, to be used later with
// PatchUint16At/PatchUint32At once a deferred length or offset is known.
func (w *Writer) Mark() int { return len(w.data) }

// RawBytes appends b unmodified.
func (w *Writer) RawBytes(b []byte) { w.data = append(w.data, b...) }

// Byte appends a single byte.
func (w *Writer) Byte(b byte) { w.data = append(w.data, b) }

// Uint16 appends a little-endian uint16.
func (w *Writer) Uint16(v uint16) {
	var buf [2]byte
	le.PutUint16(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

// Uint32 appends a little-endian uint32.
func (w *Writer) Uint32(v uint32) {
	var buf [4]byte
	le.PutUint32(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

// Uint64 appends a little-endian uint64.
func (w *Writer) Uint64(v uint64) {
	var buf [8]byte
	le.PutUint64(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

// GUID appends a 16-byte GUID.
func (w *Writer) GUID(g [16]byte) { w.data = append(w.data, g[:]...) }

// UTF16String appends a UTF-16LE encoded string.
func (w *Writer) UTF16String(s string) { w.RawBytes(EncodeUTF16LE(s)) }

// Zeros appends n zero bytes.
func (w *Writer) Zeros(n int) {
	for i := 0; i < n; i++ {
		w.data = append(w.data, 0)
	}
}

// PadTo pads the buffer to the given alignment, measured from the start of
// the buffer (used for 8-byte aligned chained lists and create contexts).
func (w *Writer) PadTo(alignment int) { w.Zeros(PadTo(len(w.data), alignment)) }

// PatchUint16At backpatches a uint16 previously reserved with Mark.
func (w *Writer) PatchUint16At(pos int, v uint16) {
	if pos+2 <= len(w.data) {
		le.PutUint16(w.data[pos:], v)
	}
}

// PatchUint32At backpatches a uint32 previously reserved with Mark.
func (w *Writer) PatchUint32At(pos int, v uint32) {
	if pos+4 <= len(w.data) {
		le.PutUint32(w.data[pos:], v)
	}
}

// PatchUint64At backpatches a uint64 previously reserved with Mark.
func (w *Writer) PatchUint64At(pos int, v uint64) {
	if pos+8 <= len(w.data) {
		le.PutUint64(w.data[pos:], v)
	}
}

// RelativeOffset computes the offset of pos relative to base, the convention
// used for create-context, ACL and referral-entry offsets (MS-SMB2 2.2.13.2).
func RelativeOffset(pos, base int) uint32 { return uint32(pos - base) }
