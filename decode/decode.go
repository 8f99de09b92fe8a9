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

// Package decode interprets binary data against a compiled schema,
// following the same rules as the generated C read functions.
package decode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/symbols"
	"github.com/maxleiko/binlang/wire"
)

var (
	ErrUnknownType  = errors.New("decode: unknown message or bitfield")
	ErrTrailingData = errors.New("decode: trailing data")
	ErrTooDeep      = errors.New("decode: nesting too deep")
	ErrTooManyElems = errors.New("decode: array too large")
)

const (
	defaultMaxDepth = 1000
	defaultMaxElems = 1 << 24
)

// Error reports the first failed read. Path names the field being read,
// for example "Abi.types.types[3].name".
type Error struct {
	Path   string
	Offset int
	Err    error
}

func (err *Error) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", err.Path, err.Offset, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

type Option interface {
	apply(*Decoder)
}

type option func(*Decoder)

func (f option) apply(d *Decoder) { f(d) }

// WithMaxDepth bounds how deeply messages may nest through arrays.
func WithMaxDepth(depth int) Option {
	return option(func(d *Decoder) {
		d.maxDepth = depth
	})
}

// WithMaxElements bounds the element count of any array whose elements
// may occupy zero bytes on the wire.
func WithMaxElements(n int) Option {
	return option(func(d *Decoder) {
		d.maxElems = n
	})
}

func WithLogger(logger *slog.Logger) Option {
	return option(func(d *Decoder) {
		d.log = logger
	})
}

type Decoder struct {
	reg      *compiler.Registry
	log      *slog.Logger
	maxDepth int
	maxElems int
	minSizes map[symbols.Symbol]int
}

func NewDecoder(reg *compiler.Registry, opts ...Option) *Decoder {
	d := &Decoder{
		reg:      reg,
		maxDepth: defaultMaxDepth,
		maxElems: defaultMaxElems,
		minSizes: make(map[symbols.Symbol]int),
	}
	for _, opt := range opts {
		opt.apply(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// Decode reads one value of the named message or bitfield from data,
// which must contain nothing else.
func Decode(reg *compiler.Registry, typeName string, data []byte, opts ...Option) (*Value, error) {
	r := wire.NewReader(data)
	v, err := NewDecoder(reg, opts...).Read(r, typeName)
	if err != nil {
		return v, err
	}
	if r.Len() > 0 {
		return v, &Error{
			Path:   typeName,
			Offset: r.Offset(),
			Err:    fmt.Errorf("%w: %d bytes", ErrTrailingData, r.Len()),
		}
	}
	return v, nil
}

// Read decodes one value of the named message or bitfield from r. On
// failure the partially decoded value is returned with the error; fields
// after the failing one are absent.
func (d *Decoder) Read(r *wire.Reader, typeName string) (*Value, error) {
	sym, t, ok := d.reg.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	switch t.(type) {
	case *compiler.MessageType, *compiler.BitfieldType:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	s := &state{d: d, r: r, path: []string{typeName}}
	v, err := s.value(sym, 0)
	if err != nil {
		return v, err
	}
	d.log.Debug("decoded value", "type", typeName, "bytes", r.Offset())
	return v, nil
}

type state struct {
	d    *Decoder
	r    *wire.Reader
	path []string
}

func (s *state) fail(err error) error {
	return &Error{
		Path:   strings.Join(s.path, ""),
		Offset: s.r.Offset(),
		Err:    err,
	}
}

func (s *state) push(segment string) {
	s.path = append(s.path, segment)
}

func (s *state) pop() {
	s.path = s.path[:len(s.path)-1]
}

// value reads one non-array value of type sym.
func (s *state) value(sym symbols.Symbol, depth int) (*Value, error) {
	reg := s.d.reg
	switch t := reg.Type(sym).(type) {
	case *compiler.NativeType:
		v, err := s.native(t.Kind)
		if err != nil {
			return nil, s.fail(err)
		}
		v.Type = reg.Name(sym)
		return v, nil
	case *compiler.BitfieldType:
		b, err := s.r.ReadU8()
		if err != nil {
			return nil, s.fail(err)
		}
		v := &Value{Kind: KindBitfield, Type: reg.Name(sym), Uint: uint64(b)}
		for _, flag := range t.Flags {
			if flag.Offset < 8 && uint64(b)&flag.Mask() != 0 {
				v.Flags = append(v.Flags, reg.Name(flag.Name))
			}
		}
		return v, nil
	case *compiler.MessageType:
		if depth > s.d.maxDepth {
			return nil, s.fail(ErrTooDeep)
		}
		return s.message(t, depth)
	case *compiler.ArrayType:
		panic("arrays are read through their field")
	default:
		panic(fmt.Sprintf("unknown type variant %T", t))
	}
}

func (s *state) native(kind compiler.NativeKind) (*Value, error) {
	r := s.r
	switch kind {
	case compiler.U8:
		v, err := r.ReadU8()
		return &Value{Kind: KindUint, Uint: uint64(v)}, err
	case compiler.U16:
		v, err := r.ReadU16()
		return &Value{Kind: KindUint, Uint: uint64(v)}, err
	case compiler.U32:
		v, err := r.ReadU32()
		return &Value{Kind: KindUint, Uint: uint64(v)}, err
	case compiler.U64:
		v, err := r.ReadU64()
		return &Value{Kind: KindUint, Uint: v}, err
	case compiler.VU32:
		v, err := r.ReadVU32()
		return &Value{Kind: KindUint, Uint: uint64(v)}, err
	case compiler.VU64:
		v, err := r.ReadVU64()
		return &Value{Kind: KindUint, Uint: v}, err
	case compiler.I8:
		v, err := r.ReadI8()
		return &Value{Kind: KindInt, Int: int64(v)}, err
	case compiler.I16:
		v, err := r.ReadI16()
		return &Value{Kind: KindInt, Int: int64(v)}, err
	case compiler.I32:
		v, err := r.ReadI32()
		return &Value{Kind: KindInt, Int: int64(v)}, err
	case compiler.I64:
		v, err := r.ReadI64()
		return &Value{Kind: KindInt, Int: v}, err
	case compiler.VI32:
		v, err := r.ReadVI32()
		return &Value{Kind: KindInt, Int: int64(v)}, err
	case compiler.VI64:
		v, err := r.ReadVI64()
		return &Value{Kind: KindInt, Int: v}, err
	case compiler.F32:
		v, err := r.ReadF32()
		return &Value{Kind: KindFloat, Float: float64(v)}, err
	case compiler.F64:
		v, err := r.ReadF64()
		return &Value{Kind: KindFloat, Float: v}, err
	}
	panic("unknown native kind " + kind.String())
}

// carrier truncates a decoded length value to the uint32 size member of
// the array it is folded into, as the C assignment does.
func carrier(v *Value) uint32 {
	if v.Kind == KindInt {
		return uint32(v.Int)
	}
	return uint32(v.Uint)
}

func (s *state) message(msg *compiler.MessageType, depth int) (*Value, error) {
	reg := s.d.reg
	out := &Value{Kind: KindMessage, Type: reg.Name(msg.Name)}

	// Element counts of field-associated arrays, keyed by array field.
	// Counts not yet read are zero.
	sizes := make(map[symbols.Symbol]uint32)

	for _, field := range msg.Fields {
		name := reg.Name(field.Name)
		s.push("." + name)
		var (
			v   *Value
			err error
		)
		if arr, ok := reg.Array(field.Type); ok {
			v, err = s.array(arr, sizes[field.Name], depth)
		} else {
			v, err = s.value(field.Type, depth+1)
		}
		s.pop()
		if v != nil {
			if field.Folded {
				sizes[field.FoldedInto] = carrier(v)
			} else {
				out.Fields = append(out.Fields, Field{Name: name, Value: v})
			}
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *state) array(arr *compiler.ArrayType, assocSize uint32, depth int) (*Value, error) {
	reg := s.d.reg
	size := assocSize
	if arr.Shape == compiler.ArrayDefault {
		n, err := s.r.ReadU32()
		if err != nil {
			return nil, s.fail(err)
		}
		size = n
	}

	if kind, ok := reg.NativeKindOf(arr.Elem); ok && kind == compiler.U8 {
		b, err := s.r.ReadExact(int(size))
		if err != nil {
			return nil, s.fail(err)
		}
		return &Value{Kind: KindBytes, Type: reg.Name(arr.Name), Bytes: b}, nil
	}

	if minSize := s.d.minSize(arr.Elem); minSize > 0 {
		if uint64(size)*uint64(minSize) > uint64(s.r.Len()) {
			return nil, s.fail(fmt.Errorf(
				"%w: %d elements need at least %d bytes",
				io.ErrUnexpectedEOF, size, uint64(size)*uint64(minSize),
			))
		}
	} else if int64(size) > int64(s.d.maxElems) {
		return nil, s.fail(fmt.Errorf("%w: %d elements", ErrTooManyElems, size))
	}

	out := &Value{
		Kind:  KindArray,
		Type:  reg.Name(arr.Name),
		Elems: make([]*Value, 0, size),
	}
	for ii := uint32(0); ii < size; ii++ {
		s.push(fmt.Sprintf("[%d]", ii))
		v, err := s.value(arr.Elem, depth+1)
		s.pop()
		if v != nil {
			out.Elems = append(out.Elems, v)
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// minSize is the fewest bytes a value of type sym occupies on the wire.
// Nested messages are summed with an explicit stack; compiled schemas
// contain no message cycles, so every pushed message is eventually sized.
func (d *Decoder) minSize(sym symbols.Symbol) int {
	if n, ok := d.minSizes[sym]; ok {
		return n
	}
	stack := []symbols.Symbol{sym}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if _, ok := d.minSizes[top]; ok {
			stack = stack[:len(stack)-1]
			continue
		}
		msg, ok := d.reg.Message(top)
		if !ok {
			d.minSizes[top] = d.leafSize(top)
			stack = stack[:len(stack)-1]
			continue
		}
		n, pending := 0, false
		for _, field := range msg.Fields {
			fieldSize, ok := d.minSizes[field.Type]
			if !ok {
				stack = append(stack, field.Type)
				pending = true
				continue
			}
			n += fieldSize
		}
		if pending {
			continue
		}
		d.minSizes[top] = n
		stack = stack[:len(stack)-1]
	}
	return d.minSizes[sym]
}

// leafSize sizes every type except messages. Arrays do not depend on
// their element type: a default array needs its count, an associated
// array may be empty.
func (d *Decoder) leafSize(sym symbols.Symbol) int {
	switch t := d.reg.Type(sym).(type) {
	case *compiler.NativeType:
		if t.Kind.Varint() {
			return 1
		}
		return t.Kind.Width()
	case *compiler.BitfieldType:
		return 1
	case *compiler.ArrayType:
		if t.Shape == compiler.ArrayDefault {
			return 4
		}
		return 0
	default:
		panic(fmt.Sprintf("unexpected type variant %T", t))
	}
}
