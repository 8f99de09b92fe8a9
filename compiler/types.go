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

package compiler

import (
	"fmt"

	"github.com/maxleiko/binlang/symbols"
	"github.com/maxleiko/binlang/syntax"
)

// NativeKind is a built-in scalar type.
type NativeKind uint8

const (
	I8 NativeKind = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	VI32
	VI64
	VU32
	VU64
	F32
	F64
)

// nativeKinds is the order in which native names are interned, directly
// after the root symbol.
var nativeKinds = [...]NativeKind{
	I8, I16, I32, I64,
	U8, U16, U32, U64,
	VI32, VI64, VU32, VU64,
	F32, F64,
}

var nativeNames = [...]string{
	I8:   "i8",
	I16:  "i16",
	I32:  "i32",
	I64:  "i64",
	U8:   "u8",
	U16:  "u16",
	U32:  "u32",
	U64:  "u64",
	VI32: "vi32",
	VI64: "vi64",
	VU32: "vu32",
	VU64: "vu64",
	F32:  "f32",
	F64:  "f64",
}

// LookupNative returns the native kind named by a schema keyword.
func LookupNative(name string) (NativeKind, bool) {
	for _, kind := range nativeKinds {
		if nativeNames[kind] == name {
			return kind, true
		}
	}
	return 0, false
}

func (k NativeKind) String() string {
	if int(k) < len(nativeNames) {
		return nativeNames[k]
	}
	return fmt.Sprintf("NativeKind(%d)", uint8(k))
}

// Width is the size in bytes of the in-memory carrier. For varints this
// is the carrier width, not the encoded length.
func (k NativeKind) Width() int {
	switch k {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, VI32, VU32, F32:
		return 4
	case I64, U64, VI64, VU64, F64:
		return 8
	}
	panic(fmt.Sprintf("unknown native kind %d", uint8(k)))
}

func (k NativeKind) Signed() bool {
	switch k {
	case I8, I16, I32, I64, VI32, VI64, F32, F64:
		return true
	}
	return false
}

func (k NativeKind) Varint() bool {
	switch k {
	case VI32, VI64, VU32, VU64:
		return true
	}
	return false
}

func (k NativeKind) Float() bool {
	return k == F32 || k == F64
}

// Integer reports whether values of this kind can be used as an element
// count.
func (k NativeKind) Integer() bool {
	return !k.Float()
}

// Type is a resolved schema type. The set of implementations is closed:
// *NativeType, *MessageType, *BitfieldType and *ArrayType.
type Type interface {
	isType()
}

type NativeType struct {
	Kind NativeKind
}

type MessageType struct {
	Name   symbols.Symbol
	Fields []Field
	Span   syntax.Span
}

type Field struct {
	Name symbols.Symbol
	Type symbols.Symbol

	// Folded fields have no storage of their own; their decoded value is
	// the element count of the array field FoldedInto.
	Folded     bool
	FoldedInto symbols.Symbol

	Annotation    symbols.Symbol
	HasAnnotation bool

	Span syntax.Span
}

type BitfieldType struct {
	Name  symbols.Symbol
	Flags []Flag
	Span  syntax.Span
}

type Flag struct {
	Name   symbols.Symbol
	Offset uint8
}

// Mask is the flag's value within the bitfield's backing byte.
func (f Flag) Mask() uint64 {
	return 1 << f.Offset
}

type ArrayShape uint8

const (
	// ArrayDefault arrays carry a u32 length prefix on the wire.
	ArrayDefault ArrayShape = iota

	// ArrayFieldAssociated arrays take their length from a sibling field
	// decoded earlier in the same message.
	ArrayFieldAssociated
)

func (s ArrayShape) String() string {
	switch s {
	case ArrayDefault:
		return "default"
	case ArrayFieldAssociated:
		return "field-associated"
	}
	return fmt.Sprintf("ArrayShape(%d)", uint8(s))
}

type ArrayType struct {
	Name  symbols.Symbol
	Elem  symbols.Symbol
	Shape ArrayShape

	// Set for ArrayFieldAssociated only.
	LenField symbols.Symbol
	LenType  symbols.Symbol
}

func (*NativeType) isType()   {}
func (*MessageType) isType()  {}
func (*BitfieldType) isType() {}
func (*ArrayType) isType()    {}

// KindName is a short lowercase description of a type's variant.
func KindName(t Type) string {
	switch t := t.(type) {
	case *NativeType:
		return "native"
	case *MessageType:
		return "message"
	case *BitfieldType:
		return "bitfield"
	case *ArrayType:
		return "array"
	default:
		panic(fmt.Sprintf("unknown type variant %T", t))
	}
}

type arrayKey struct {
	elem     symbols.Symbol
	shape    ArrayShape
	lenField symbols.Symbol
	lenType  symbols.Symbol
}

// Registry maps every type-denoting symbol of one schema to its Type. It
// is read-only once Compile has returned it.
type Registry struct {
	symbols    *symbols.Table
	root       symbols.Symbol
	natives    [len(nativeKinds)]symbols.Symbol
	types      map[symbols.Symbol]Type
	decls      []symbols.Symbol
	arrays     map[arrayKey]symbols.Symbol
	arrayOrder []symbols.Symbol
}

func newRegistry() *Registry {
	reg := &Registry{
		symbols: symbols.NewTable(),
		types:   make(map[symbols.Symbol]Type),
		arrays:  make(map[arrayKey]symbols.Symbol),
	}
	reg.root = reg.symbols.Insert("")
	for _, kind := range nativeKinds {
		sym := reg.symbols.Insert(nativeNames[kind])
		reg.natives[kind] = sym
		reg.types[sym] = &NativeType{Kind: kind}
	}
	return reg
}

func (r *Registry) Symbols() *symbols.Table {
	return r.symbols
}

// Root is the dependency sink every declaration depends on. It never
// denotes a type.
func (r *Registry) Root() symbols.Symbol {
	return r.root
}

func (r *Registry) Native(kind NativeKind) symbols.Symbol {
	return r.natives[kind]
}

func (r *Registry) Name(sym symbols.Symbol) string {
	return r.symbols.Get(sym)
}

// Type returns nil for symbols that do not denote a type.
func (r *Registry) Type(sym symbols.Symbol) Type {
	return r.types[sym]
}

func (r *Registry) Lookup(name string) (symbols.Symbol, Type, bool) {
	sym, ok := r.symbols.Find(name)
	if !ok {
		return 0, nil, false
	}
	t, ok := r.types[sym]
	return sym, t, ok
}

// Decls lists declared messages and bitfields in source order.
func (r *Registry) Decls() []symbols.Symbol {
	return r.decls
}

// Arrays lists synthesized array types in order of first use.
func (r *Registry) Arrays() []symbols.Symbol {
	return r.arrayOrder
}

func (r *Registry) Message(sym symbols.Symbol) (*MessageType, bool) {
	t, ok := r.types[sym].(*MessageType)
	return t, ok
}

func (r *Registry) Bitfield(sym symbols.Symbol) (*BitfieldType, bool) {
	t, ok := r.types[sym].(*BitfieldType)
	return t, ok
}

func (r *Registry) Array(sym symbols.Symbol) (*ArrayType, bool) {
	t, ok := r.types[sym].(*ArrayType)
	return t, ok
}

func (r *Registry) NativeKindOf(sym symbols.Symbol) (NativeKind, bool) {
	t, ok := r.types[sym].(*NativeType)
	if !ok {
		return 0, false
	}
	return t.Kind, true
}

// array returns the synthesized array type for key, creating it on first
// use.
func (r *Registry) array(key arrayKey) (symbols.Symbol, bool) {
	if sym, ok := r.arrays[key]; ok {
		return sym, false
	}
	var name string
	switch key.shape {
	case ArrayDefault:
		name = r.Name(key.elem) + "[]"
	case ArrayFieldAssociated:
		name = fmt.Sprintf(
			"%s[%s: %s]",
			r.Name(key.elem), r.Name(key.lenField), r.Name(key.lenType),
		)
	}
	sym := r.symbols.Insert(name)
	r.arrays[key] = sym
	r.arrayOrder = append(r.arrayOrder, sym)
	r.types[sym] = &ArrayType{
		Name:     sym,
		Elem:     key.elem,
		Shape:    key.shape,
		LenField: key.lenField,
		LenType:  key.lenType,
	}
	return sym, true
}
