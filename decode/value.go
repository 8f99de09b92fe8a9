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

package decode

import (
	"fmt"
)

type Kind uint8

const (
	KindUint Kind = iota
	KindInt
	KindFloat
	KindBitfield
	KindBytes
	KindArray
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBitfield:
		return "bitfield"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMessage:
		return "message"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is one decoded value. Which fields are meaningful depends on
// Kind:
//
//   - KindUint, KindBitfield: Uint
//   - KindInt: Int
//   - KindFloat: Float
//   - KindBytes: Bytes (arrays of u8)
//   - KindArray: Elems
//   - KindMessage: Fields
//
// Bitfields also list the names of their set flags in Flags.
type Value struct {
	Kind Kind
	Type string

	Uint  uint64
	Int   int64
	Float float64
	Bytes []byte

	Flags  []string
	Elems  []*Value
	Fields []Field
}

// Field is one stored member of a decoded message. Length fields folded
// into an array are not stored; the array's length carries their value.
type Field struct {
	Name  string
	Value *Value
}

// Field returns the named member of a message value, or nil.
func (v *Value) Field(name string) *Value {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Len is the element count of an array or byte array value.
func (v *Value) Len() int {
	switch v.Kind {
	case KindBytes:
		return len(v.Bytes)
	case KindArray:
		return len(v.Elems)
	}
	return 0
}
