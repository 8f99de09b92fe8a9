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

// Package codegen emits C declarations and read functions for a compiled
// schema. The generated code links against the binlang C runtime
// (binlang.h), which provides bl_slice_t, BL_TRY, the bl_slice__read_*
// primitives, and the BlArray container.
package codegen

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/symbols"
)

const defaultNamespace = "schema"

var ErrCompileFailed = errors.New("codegen: compile result has errors")

type Option interface {
	apply(*options)
}

type option func(*options)

func (f option) apply(opts *options) { f(opts) }

type options struct {
	namespace  string
	sourcePath string
	logger     *slog.Logger
}

// WithNamespace sets the prefix of generated file and function names. It
// takes precedence over WithSourcePath.
func WithNamespace(namespace string) Option {
	return option(func(opts *options) {
		opts.namespace = namespace
	})
}

// WithSourcePath derives the namespace from the schema's file name.
func WithSourcePath(path string) Option {
	return option(func(opts *options) {
		opts.sourcePath = path
	})
}

func WithLogger(logger *slog.Logger) Option {
	return option(func(opts *options) {
		opts.logger = logger
	})
}

// Output holds the generated declarations (Header) and definitions
// (Source) of one schema.
type Output struct {
	Namespace  string
	HeaderName string
	SourceName string
	Header     string
	Source     string
}

func GenerateC(res *compiler.CompileResult, opts ...Option) (*Output, error) {
	if res == nil || res.Registry == nil || len(res.Errors) > 0 {
		return nil, ErrCompileFailed
	}
	o := &options{}
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ns := o.namespace
	switch {
	case ns != "":
		ns = sanitizeIdent(ns)
	case o.sourcePath != "":
		ns = NamespaceFromPath(o.sourcePath)
	default:
		ns = defaultNamespace
	}

	g := &generator{
		reg:    res.Registry,
		order:  res.Order,
		ns:     ns,
		floats: res.FloatTypes(),
		log:    o.logger,
	}
	header, err := g.header()
	if err != nil {
		return nil, err
	}
	source, err := g.source()
	if err != nil {
		return nil, err
	}
	return &Output{
		Namespace:  ns,
		HeaderName: ns + ".h",
		SourceName: ns + ".c",
		Header:     header,
		Source:     source,
	}, nil
}

type generator struct {
	reg    *compiler.Registry
	order  []symbols.Symbol
	ns     string
	floats bool
	log    *slog.Logger
}

func (g *generator) name(sym symbols.Symbol) string {
	return g.reg.Name(sym)
}

func (g *generator) readFunc(sym symbols.Symbol) string {
	return fmt.Sprintf("%s__read_%s", g.ns, CName(g.name(sym)))
}

// cType is the C type of a field's storage.
func (g *generator) cType(sym symbols.Symbol) string {
	switch t := g.reg.Type(sym).(type) {
	case *compiler.NativeType:
		return nativeCType(t.Kind)
	case *compiler.MessageType, *compiler.BitfieldType:
		return CTypeName(g.name(sym))
	case *compiler.ArrayType:
		return "BlArray(" + g.cType(t.Elem) + ")"
	default:
		panic(fmt.Sprintf("unknown type variant %T", t))
	}
}

// elemReader is the function reading one value of a non-array type.
func (g *generator) elemReader(sym symbols.Symbol) string {
	switch t := g.reg.Type(sym).(type) {
	case *compiler.NativeType:
		return nativeReader(t.Kind)
	case *compiler.MessageType, *compiler.BitfieldType:
		return g.readFunc(sym)
	default:
		panic(fmt.Sprintf("no element reader for %T", t))
	}
}

func (g *generator) header() (string, error) {
	var buf strings.Builder
	w := &writer{w: &buf}
	guard := "BINLANG_" + strings.ToUpper(g.ns) + "_H_"

	w.line("#ifndef " + guard)
	w.line("#define " + guard)
	w.blank()
	if g.floats {
		w.line("#ifndef FLOAT")
		w.line("#define FLOAT")
		w.line("#endif")
	}
	w.line(`#include "binlang.h"`)
	w.blank()
	w.line("#ifdef __cplusplus")
	w.line(`extern "C" {`)
	w.line("#endif")
	w.blank()

	if len(g.order) > 0 {
		for _, sym := range g.order {
			g.forwardDecl(w, sym)
		}
		w.blank()
	}

	for _, sym := range g.order {
		switch t := g.reg.Type(sym).(type) {
		case *compiler.BitfieldType:
			g.bitfieldBody(w, t)
		case *compiler.MessageType:
			g.messageBody(w, t)
		default:
			panic(fmt.Sprintf("unexpected type %T in emission order", t))
		}
		w.blank()
	}

	if len(g.order) > 0 {
		for _, sym := range g.order {
			w.linef("%s;", g.prototype(sym))
		}
		w.blank()
	}

	w.line("#ifdef __cplusplus")
	w.line("}")
	w.line("#endif")
	w.blank()
	w.line("#endif // " + guard)
	return buf.String(), w.err
}

func (g *generator) forwardDecl(w *writer, sym symbols.Symbol) {
	name := g.name(sym)
	switch t := g.reg.Type(sym).(type) {
	case *compiler.MessageType:
		w.linef("typedef struct %s %s;", name, CTypeName(name))
	case *compiler.BitfieldType:
		w.linef("typedef uint8_t %s;", CTypeName(name))
	default:
		panic(fmt.Sprintf("unexpected type %T in emission order", t))
	}
}

func (g *generator) bitfieldBody(w *writer, bf *compiler.BitfieldType) {
	name := g.name(bf.Name)
	w.line("// Bitfield: " + name)
	for _, flag := range bf.Flags {
		w.linef("#define %s (1 << %d)", FlagConstant(name, g.name(flag.Name)), flag.Offset)
	}
	g.log.Debug("emitted bitfield", "name", name, "flags", len(bf.Flags))
}

func (g *generator) messageBody(w *writer, msg *compiler.MessageType) {
	name := g.name(msg.Name)
	w.block("struct "+name+" {", "};", func() {
		for _, field := range msg.Fields {
			if field.Folded {
				continue
			}
			if field.HasAnnotation {
				w.line("// @" + g.name(field.Annotation))
			}
			w.linef("%s %s;", g.cType(field.Type), g.name(field.Name))
		}
	})
	g.log.Debug("emitted message", "name", name, "fields", len(msg.Fields))
}

func (g *generator) prototype(sym symbols.Symbol) string {
	return fmt.Sprintf(
		"bl_result_t %s(bl_slice_t *b, %s *value)",
		g.readFunc(sym), CTypeName(g.name(sym)),
	)
}

func (g *generator) source() (string, error) {
	var buf strings.Builder
	w := &writer{w: &buf}

	w.linef(`#include "%s.h"`, g.ns)
	for _, sym := range g.order {
		w.blank()
		w.block(g.prototype(sym)+" {", "}", func() {
			switch t := g.reg.Type(sym).(type) {
			case *compiler.BitfieldType:
				w.line("BL_TRY(bl_slice__read_u8(b, value));")
			case *compiler.MessageType:
				g.readMessage(w, t)
			default:
				panic(fmt.Sprintf("unexpected type %T in emission order", t))
			}
			w.line("return bl_result_ok;")
		})
	}
	return buf.String(), w.err
}

func (g *generator) readMessage(w *writer, msg *compiler.MessageType) {
	if len(msg.Fields) == 0 {
		w.line("(void)b;")
		w.line("(void)value;")
		return
	}
	// Fields already read. A length field read after its array no longer
	// sizes anything: the array was read with a count of zero.
	read := make(map[symbols.Symbol]bool, len(msg.Fields))
	for _, field := range msg.Fields {
		read[field.Name] = true
		member := "value->" + g.name(field.Name)
		switch t := g.reg.Type(field.Type).(type) {
		case *compiler.NativeType:
			if field.Folded {
				if read[field.FoldedInto] {
					g.skipFolded(w, t.Kind)
				} else {
					g.readFolded(w, t.Kind, "value->"+g.name(field.FoldedInto)+".size")
				}
				continue
			}
			w.linef("BL_TRY(%s(b, &%s));", nativeReader(t.Kind), member)
		case *compiler.MessageType, *compiler.BitfieldType:
			w.linef("BL_TRY(%s(b, &%s));", g.readFunc(field.Type), member)
		case *compiler.ArrayType:
			if t.Shape == compiler.ArrayFieldAssociated && !read[t.LenField] {
				w.linef("%s.size = 0;", member)
			}
			g.readArray(w, t, member)
		default:
			panic(fmt.Sprintf("unknown type variant %T", t))
		}
	}
}

// readFolded stores a length field's value straight into the size member
// of the array it is folded into.
func (g *generator) readFolded(w *writer, kind compiler.NativeKind, size string) {
	if nativeCType(kind) == "uint32_t" {
		w.linef("BL_TRY(%s(b, &%s));", nativeReader(kind), size)
		return
	}
	w.block("{", "}", func() {
		w.linef("%s len;", nativeCType(kind))
		w.linef("BL_TRY(%s(b, &len));", nativeReader(kind))
		w.linef("%s = (uint32_t)len;", size)
	})
}

// skipFolded consumes a length field whose array has already been read.
func (g *generator) skipFolded(w *writer, kind compiler.NativeKind) {
	w.block("{", "}", func() {
		w.linef("%s len;", nativeCType(kind))
		w.linef("BL_TRY(%s(b, &len));", nativeReader(kind))
		w.line("(void)len;")
	})
}

func (g *generator) readArray(w *writer, arr *compiler.ArrayType, member string) {
	if arr.Shape == compiler.ArrayDefault {
		w.linef("BL_TRY(bl_slice__read_u32(b, &%s.size));", member)
	}
	w.linef("array_reserve(&%s, %s.size);", member, member)
	if kind, ok := g.reg.NativeKindOf(arr.Elem); ok && kind == compiler.U8 {
		w.linef("BL_TRY(bl_slice__read_exact(b, %s.elems, %s.size));", member, member)
		return
	}
	w.block(
		fmt.Sprintf("for (uint32_t i = 0; i < %s.size; i++) {", member),
		"}",
		func() {
			w.linef("BL_TRY(%s(b, &%s.elems[i]));", g.elemReader(arr.Elem), member)
		},
	)
}
