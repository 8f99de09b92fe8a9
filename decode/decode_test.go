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

package decode_test

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/decode"
	"github.com/maxleiko/binlang/syntax"
)

func registry(t *testing.T, src string) *compiler.Registry {
	t.Helper()
	parsed, err := syntax.Parse([]byte(src))
	require.NoError(t, err)
	result := compiler.Compile(parsed)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.Registry)
	return result.Registry
}

func TestDecodeFolding(t *testing.T) {
	reg := registry(t, `
message M { count: u32, items: Item[count], }
message Item { id: u8, }
`)
	v, err := decode.Decode(reg, "M", []byte{0x02, 0x00, 0x00, 0x00, 0x0A, 0x0B})
	require.NoError(t, err)

	assert.Equal(t, decode.KindMessage, v.Kind)
	assert.Nil(t, v.Field("count"))
	require.Len(t, v.Fields, 1)

	items := v.Field("items")
	require.NotNil(t, items)
	assert.Equal(t, decode.KindArray, items.Kind)
	assert.Equal(t, "Item[count: u32]", items.Type)
	require.Equal(t, 2, items.Len())
	assert.Equal(t, uint64(0x0A), items.Elems[0].Field("id").Uint)
	assert.Equal(t, uint64(0x0B), items.Elems[1].Field("id").Uint)
}

func TestDecodeDefaultArrays(t *testing.T) {
	reg := registry(t, `message M { data: u8[], nums: vu32[], }`)
	v, err := decode.Decode(reg, "M", []byte{
		0x03, 0x00, 0x00, 0x00, 'a', 'b', 'c',
		0x02, 0x00, 0x00, 0x00, 0x96, 0x01, 0x05,
	})
	require.NoError(t, err)

	data := v.Field("data")
	assert.Equal(t, decode.KindBytes, data.Kind)
	assert.Equal(t, []byte("abc"), data.Bytes)

	nums := v.Field("nums")
	require.Equal(t, 2, nums.Len())
	assert.Equal(t, uint64(150), nums.Elems[0].Uint)
	assert.Equal(t, uint64(5), nums.Elems[1].Uint)
}

func TestDecodeNatives(t *testing.T) {
	reg := registry(t, `message M { a: i8, b: u16, c: vi32, d: i64, }`)
	v, err := decode.Decode(reg, "M", []byte{
		0xFE,
		0x34, 0x12,
		0x7F,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	})
	require.NoError(t, err)

	assert.Equal(t, decode.KindInt, v.Field("a").Kind)
	assert.Equal(t, int64(-2), v.Field("a").Int)
	assert.Equal(t, "i8", v.Field("a").Type)
	assert.Equal(t, uint64(0x1234), v.Field("b").Uint)
	assert.Equal(t, int64(-1), v.Field("c").Int)
	assert.Equal(t, int64(-1), v.Field("d").Int)
}

func TestDecodeBitfield(t *testing.T) {
	reg := registry(t, `
bitfield F { a: 0, b: 3, c: 9, }
message M { f: F, }
`)
	v, err := decode.Decode(reg, "M", []byte{0x09})
	require.NoError(t, err)

	f := v.Field("f")
	assert.Equal(t, decode.KindBitfield, f.Kind)
	assert.Equal(t, uint64(9), f.Uint)
	assert.Equal(t, []string{"a", "b"}, f.Flags)

	top, err := decode.Decode(reg, "F", []byte{0x08})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, top.Flags)
}

func TestDecodeSignedLengthField(t *testing.T) {
	reg := registry(t, `message M { n: i8, xs: u16[n], }`)

	v, err := decode.Decode(reg, "M", []byte{0x02, 0x01, 0x00, 0x02, 0x00})
	require.NoError(t, err)
	xs := v.Field("xs")
	require.Equal(t, 2, xs.Len())
	assert.Equal(t, uint64(2), xs.Elems[1].Uint)

	// -1 becomes a huge count once stored into the array length.
	_, err = decode.Decode(reg, "M", []byte{0xFF, 0x01, 0x00})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	var decodeErr *decode.Error
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "M.xs", decodeErr.Path)
}

func TestDecodeLateLengthField(t *testing.T) {
	reg := registry(t, `message M { xs: u8[n], n: u8, }`)
	v, err := decode.Decode(reg, "M", []byte{0x03})
	require.NoError(t, err)
	require.Len(t, v.Fields, 1)
	assert.Equal(t, 0, v.Field("xs").Len())
}

func TestDecodeDeeplyNestedElementSize(t *testing.T) {
	const depth = 5000
	var src strings.Builder
	src.WriteString("message Outer { xs: L0[], }\n")
	for ii := 0; ii < depth-1; ii++ {
		fmt.Fprintf(&src, "message L%d { next: L%d, }\n", ii, ii+1)
	}
	fmt.Fprintf(&src, "message L%d { v: u8, }\n", depth-1)
	reg := registry(t, src.String())

	// Each element needs at least one byte; three cannot fit in one.
	_, err := decode.Decode(reg, "Outer", []byte{0x03, 0x00, 0x00, 0x00, 0xAA})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	var decodeErr *decode.Error
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "Outer.xs", decodeErr.Path)

	_, err = decode.Decode(reg, "Outer", []byte{0x01, 0x00, 0x00, 0x00, 0xAA}, decode.WithMaxDepth(10))
	assert.ErrorIs(t, err, decode.ErrTooDeep)
}

func TestDecodeFailurePropagation(t *testing.T) {
	reg := registry(t, `message M { a: u8, b: u32, c: u8, }`)
	v, err := decode.Decode(reg, "M", []byte{0x01, 0x02})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var decodeErr *decode.Error
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "M.b", decodeErr.Path)
	assert.Equal(t, 1, decodeErr.Offset)

	require.NotNil(t, v)
	require.Len(t, v.Fields, 1)
	assert.Equal(t, "a", v.Fields[0].Name)
}

func TestDecodeErrorPath(t *testing.T) {
	reg := registry(t, `
message Outer { items: Inner[], }
message Inner { v: vu32, }
`)
	_, err := decode.Decode(reg, "Outer", []byte{0x02, 0x00, 0x00, 0x00, 0x01, 0x80})
	var decodeErr *decode.Error
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "Outer.items[1].v", decodeErr.Path)
	assert.Equal(t, 5, decodeErr.Offset)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.EqualError(t, err, "decode Outer.items[1].v at offset 5: unexpected EOF")
}

func TestDecodeTrailingData(t *testing.T) {
	reg := registry(t, `message M { a: u8, }`)
	v, err := decode.Decode(reg, "M", []byte{0x01, 0x02})
	assert.ErrorIs(t, err, decode.ErrTrailingData)
	require.NotNil(t, v)
	assert.Equal(t, uint64(1), v.Field("a").Uint)
}

func TestDecodeUnknownType(t *testing.T) {
	reg := registry(t, `message M { a: u8, }`)
	for _, name := range []string{"Missing", "u8", ""} {
		_, err := decode.Decode(reg, name, []byte{0x01})
		assert.ErrorIs(t, err, decode.ErrUnknownType, "type %q", name)
	}
}

func TestDecodeLimits(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		reg := registry(t, `message Node { children: Node[], }`)
		var data []byte
		for range 10 {
			data = append(data, 0x01, 0x00, 0x00, 0x00)
		}
		data = append(data, 0x00, 0x00, 0x00, 0x00)

		_, err := decode.Decode(reg, "Node", data)
		require.NoError(t, err)

		_, err = decode.Decode(reg, "Node", data, decode.WithMaxDepth(3))
		assert.ErrorIs(t, err, decode.ErrTooDeep)
	})

	t.Run("zero size elements", func(t *testing.T) {
		reg := registry(t, `
message Empty { }
message M { es: Empty[], }
`)
		v, err := decode.Decode(reg, "M", []byte{0x03, 0x00, 0x00, 0x00})
		require.NoError(t, err)
		assert.Equal(t, 3, v.Field("es").Len())

		_, err = decode.Decode(reg, "M", []byte{0xFF, 0xFF, 0xFF, 0xFF})
		assert.ErrorIs(t, err, decode.ErrTooManyElems)

		_, err = decode.Decode(reg, "M", []byte{0x03, 0x00, 0x00, 0x00}, decode.WithMaxElements(2))
		assert.ErrorIs(t, err, decode.ErrTooManyElems)
	})
}

func TestValueYAML(t *testing.T) {
	t.Run("field order", func(t *testing.T) {
		reg := registry(t, `message M { z: u8, a: i8, }`)
		v, err := decode.Decode(reg, "M", []byte{0x01, 0xFE})
		require.NoError(t, err)
		out, err := yaml.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, "z: 1\na: -2\n", string(out))
	})

	t.Run("nested", func(t *testing.T) {
		reg := registry(t, `
bitfield F { a: 0, b: 3, }
message Item { f: F, }
message M { n: u8, items: Item[n], raw: u8[], }
`)
		v, err := decode.Decode(reg, "M", []byte{
			0x01, 0x09,
			0x02, 0x00, 0x00, 0x00, 'h', 'i',
		})
		require.NoError(t, err)
		out, err := yaml.Marshal(v)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal(out, &got))
		assert.Equal(t, map[string]any{
			"items": []any{
				map[string]any{
					"f": map[string]any{
						"value": 9,
						"flags": []any{"a", "b"},
					},
				},
			},
			"raw": "hi",
		}, got)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bytes", decode.KindBytes.String())
	assert.Equal(t, "Kind(42)", decode.Kind(42).String())
}
