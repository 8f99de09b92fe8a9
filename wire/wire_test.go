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

package wire_test

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/maxleiko/binlang/internal/testutil"
	"github.com/maxleiko/binlang/wire"
)

func TestFixedWidth(t *testing.T) {
	r := wire.NewReader([]byte{
		0xAB,
		0x01, 0x02,
		0x78, 0x56, 0x34, 0x12,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0xFE, 0xFF,
		0x00, 0x00, 0xC0, 0x3F,
	})

	u8, err := r.ReadU8()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint8(0xAB), u8)

	u16, err := r.ReadU16()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint16(0x0201), u16)

	u32, err := r.ReadU32()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint32(0x12345678), u32)

	u64, err := r.ReadU64()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint64(0x0102030405060708), u64)

	i16, err := r.ReadI16()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int16(-2), i16)

	f32, err := r.ReadF32()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, float32(1.5), f32)

	testutil.ExpectEq(t, 0, r.Len())
	testutil.ExpectEq(t, 21, r.Offset())
}

func TestSignedFixedWidth(t *testing.T) {
	r := wire.NewReader([]byte{
		0x80,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0xBF,
	})

	i8, err := r.ReadI8()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int8(math.MinInt8), i8)

	i32, err := r.ReadI32()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int32(-1), i32)

	i64, err := r.ReadI64()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, int64(math.MinInt64), i64)

	f64, err := r.ReadF64()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, -1.0, f64)
}

func TestShortReadDoesNotAdvance(t *testing.T) {
	r := wire.NewReader([]byte{1, 2, 3})

	_, err := r.ReadU32()
	testutil.ExpectTrue(t, errors.Is(err, io.ErrUnexpectedEOF))
	testutil.ExpectEq(t, 3, r.Len())

	_, err = r.ReadExact(4)
	testutil.ExpectTrue(t, errors.Is(err, io.ErrUnexpectedEOF))
	testutil.ExpectEq(t, 3, r.Len())

	got, err := r.ReadExact(3)
	testutil.AssertNoError(t, err)
	testutil.ExpectBytesEq(t, []byte{1, 2, 3}, got)
	testutil.ExpectEq(t, 0, r.Len())

	_, err = r.ReadU8()
	testutil.ExpectTrue(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestReadExactCopies(t *testing.T) {
	buf := []byte{1, 2}
	r := wire.NewReader(buf)
	got, err := r.ReadExact(2)
	testutil.AssertNoError(t, err)
	buf[0] = 9
	testutil.ExpectEq(t, byte(1), got[0])

	got, err = wire.NewReader(nil).ReadExact(0)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 0, len(got))
}

func TestVarintUnsigned(t *testing.T) {
	tests := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xE5, 0x8E, 0x26}, 624485},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, math.MaxUint32},
	}
	for _, tt := range tests {
		r := wire.NewReader(tt.in)
		got, err := r.ReadVU32()
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, uint32(tt.want), got)
		testutil.ExpectEq(t, 0, r.Len())

		r = wire.NewReader(tt.in)
		got64, err := r.ReadVU64()
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, tt.want, got64)
	}

	max64 := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	got, err := wire.NewReader(max64).ReadVU64()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint64(math.MaxUint64), got)
}

func TestVarintSigned(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x3F}, 63},
		{[]byte{0x40}, -64},
		{[]byte{0x7F}, -1},
		{[]byte{0x80, 0x7F}, -128},
		{[]byte{0xC0, 0xBB, 0x78}, -123456},
		{[]byte{0xE5, 0x8E, 0x26}, 624485},
	}
	for _, tt := range tests {
		got, err := wire.NewReader(tt.in).ReadVI32()
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, int32(tt.want), got)

		got64, err := wire.NewReader(tt.in).ReadVI64()
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, tt.want, got64)
	}
}

func TestVarintErrors(t *testing.T) {
	r := wire.NewReader([]byte{0x80, 0x80})
	_, err := r.ReadVU32()
	testutil.ExpectTrue(t, errors.Is(err, io.ErrUnexpectedEOF))
	testutil.ExpectEq(t, 2, r.Len())

	r = wire.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err = r.ReadVU32()
	testutil.ExpectTrue(t, errors.Is(err, wire.ErrVarintOverflow))
	testutil.ExpectEq(t, 6, r.Len())

	_, err = r.ReadVI32()
	testutil.ExpectTrue(t, errors.Is(err, wire.ErrVarintOverflow))

	got, err := r.ReadVU64()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, uint64(1)<<35, got)

	eleven := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}
	_, err = wire.NewReader(eleven).ReadVI64()
	testutil.ExpectTrue(t, errors.Is(err, wire.ErrVarintOverflow))
}
