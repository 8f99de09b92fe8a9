// Copyright (c) 2024 The binlang Authors
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

// Package wire reads the primitive encodings used by binlang messages:
// little-endian fixed-width integers and floats, LEB128 varints, and raw
// byte runs. It mirrors the bl_slice__read_* functions of the C runtime.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrVarintOverflow is returned for a varint that does not terminate
// within the maximum encoded length of its width (5 bytes for 32 bits,
// 10 bytes for 64 bits).
var ErrVarintOverflow = errors.New("wire: varint overflows its width")

const (
	maxVarint32Len = 5
	maxVarint64Len = 10
)

// Reader consumes a byte slice front to back. A failed read leaves the
// reader where it was.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len is the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// varint decodes an unsigned LEB128 value of at most maxLen bytes. It
// also returns the total shift and the final byte, which signed decoding
// needs for sign extension.
func (r *Reader) varint(maxLen int) (value uint64, shift uint, last byte, err error) {
	for ii := 0; ii < maxLen; ii++ {
		if r.off+ii >= len(r.buf) {
			return 0, 0, 0, io.ErrUnexpectedEOF
		}
		c := r.buf[r.off+ii]
		value |= uint64(c&0x7F) << shift
		shift += 7
		if c&0x80 == 0 {
			r.off += ii + 1
			return value, shift, c, nil
		}
	}
	return 0, 0, 0, ErrVarintOverflow
}

func (r *Reader) ReadVU32() (uint32, error) {
	v, _, _, err := r.varint(maxVarint32Len)
	return uint32(v), err
}

func (r *Reader) ReadVU64() (uint64, error) {
	v, _, _, err := r.varint(maxVarint64Len)
	return v, err
}

// ReadVI32 decodes a signed LEB128 value: bit 6 of the final byte is the
// sign, extended through the remaining high bits.
func (r *Reader) ReadVI32() (int32, error) {
	v, shift, last, err := r.varint(maxVarint32Len)
	if err != nil {
		return 0, err
	}
	if shift < 32 && last&0x40 != 0 {
		v |= ^uint64(0) << shift
	}
	return int32(v), nil
}

func (r *Reader) ReadVI64() (int64, error) {
	v, shift, last, err := r.varint(maxVarint64Len)
	if err != nil {
		return 0, err
	}
	if shift < 64 && last&0x40 != 0 {
		v |= ^uint64(0) << shift
	}
	return int64(v), nil
}

// ReadExact returns a copy of the next n bytes.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
