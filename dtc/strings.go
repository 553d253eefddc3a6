package dtc

import (
	"bytes"
	"encoding/binary"
	"math"
)

// byteWriter accumulates a frame body. Numeric fields are packed
// little-endian without padding; string fields are the raw UTF-8 bytes
// followed by a single NUL terminator.
type byteWriter struct {
	buf bytes.Buffer
}

func (w *byteWriter) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *byteWriter) u16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *byteWriter) u32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *byteWriter) u64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }

func (w *byteWriter) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *byteWriter) f64(v float64) { w.u64(math.Float64bits(v)) }

// str writes s as raw UTF-8 bytes followed by a NUL terminator.
func (w *byteWriter) str(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0x00)
}

func (w *byteWriter) bytes() []byte { return w.buf.Bytes() }
func (w *byteWriter) len() int      { return w.buf.Len() }

// byteReader consumes a frame body sequentially, surfacing TruncatedField
// the moment a read runs past the end of the slice.
type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) need(n int) *DecodeError {
	if r.pos+n > len(r.buf) {
		return newDecodeError(TruncatedField, "need %d more bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *byteReader) u8() (uint8, *DecodeError) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u16() (uint16, *DecodeError) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, *DecodeError) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, *DecodeError) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *byteReader) f32() (float32, *DecodeError) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *byteReader) f64() (float64, *DecodeError) {
	v, err := r.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// str reads bytes up to and including the next NUL terminator. Absence of
// a terminator within the remaining body is a decode error.
func (r *byteReader) str() (string, *DecodeError) {
	idx := bytes.IndexByte(r.buf[r.pos:], 0x00)
	if idx < 0 {
		return "", newDecodeError(TruncatedField, "string field at offset %d is not NUL-terminated", r.pos)
	}
	s := string(r.buf[r.pos : r.pos+idx])
	r.pos += idx + 1
	return s, nil
}

// remaining reports how many bytes are left in the body.
func (r *byteReader) remaining() int {
	return len(r.buf) - r.pos
}
