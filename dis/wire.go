package dis

import (
	"encoding/binary"
	"math"
)

// Reader decodes big-endian fields from a PDU buffer.
// The first short read latches an error; later reads return zero values,
// so decoders check Err once after reading a record.
type Reader struct {
	buf     []byte
	off     int
	edition ProtocolVersion
	err     error
}

// NewReader creates a reader over b using the header layout of edition
func NewReader(b []byte, edition ProtocolVersion) *Reader {
	return &Reader{buf: b, edition: edition}
}

// Edition returns the edition whose layout the reader follows
func (r *Reader) Edition() ProtocolVersion {
	return r.edition
}

// Offset returns the number of bytes consumed
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Err returns the first error encountered
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.Remaining() < n {
		r.err = truncated(r.off, n, r.Remaining())
		return false
	}
	return true
}

// Uint8 reads one byte
func (r *Reader) Uint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

// Uint16 reads a big-endian uint16
func (r *Reader) Uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

// Uint32 reads a big-endian uint32
func (r *Reader) Uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// Uint64 reads a big-endian uint64
func (r *Reader) Uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

// Float32 reads an IEEE-754 single
func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

// Float64 reads an IEEE-754 double
func (r *Reader) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

// Bytes reads n bytes into a new slice
func (r *Reader) Bytes(n int) []byte {
	if n < 0 || !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

// Read fills p from the buffer
func (r *Reader) Read(p []byte) {
	if !r.need(len(p)) {
		return
	}
	copy(p, r.buf[r.off:])
	r.off += len(p)
}

// Skip advances over n bytes
func (r *Reader) Skip(n int) {
	if !r.need(n) {
		return
	}
	r.off += n
}

// Writer appends big-endian fields to a PDU buffer
type Writer struct {
	buf     []byte
	edition ProtocolVersion
}

// NewWriter creates a writer with room for size bytes using the header layout of edition
func NewWriter(size int, edition ProtocolVersion) *Writer {
	return &Writer{buf: make([]byte, 0, size), edition: edition}
}

// Edition returns the edition whose layout the writer follows
func (w *Writer) Edition() ProtocolVersion {
	return w.edition
}

// Len returns the number of bytes written
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded buffer
func (w *Writer) Bytes() []byte {
	return w.buf
}

// PutUint8 writes one byte
func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutUint16 writes a big-endian uint16
func (w *Writer) PutUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// PutUint32 writes a big-endian uint32
func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// PutUint64 writes a big-endian uint64
func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// PutFloat32 writes an IEEE-754 single
func (w *Writer) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

// PutFloat64 writes an IEEE-754 double
func (w *Writer) PutFloat64(v float64) {
	w.PutUint64(math.Float64bits(v))
}

// PutBytes writes p verbatim
func (w *Writer) PutBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// PutZeros writes n zero bytes
func (w *Writer) PutZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// padTo4 returns the zero bytes needed to reach the next 4-byte boundary
func padTo4(n int) int {
	return (4 - n%4) % 4
}
