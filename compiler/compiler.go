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

// Package compiler resolves a parsed schema into a type registry and
// computes the order in which its types are emitted.
package compiler

import (
	"io"
	"log/slog"
	"strings"

	"github.com/maxleiko/binlang/symbols"
	"github.com/maxleiko/binlang/syntax"
)

type CompileOption interface {
	apply(*CompileOptions)
}

type compileOption func(*CompileOptions)

func (f compileOption) apply(opts *CompileOptions) { f(opts) }

type CompileOptions struct {
	logger     *slog.Logger
	floatTypes bool
}

// WithLogger sets the logger receiving debug records for declared types,
// synthesized arrays, and emission frontiers.
func WithLogger(logger *slog.Logger) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.logger = logger
	})
}

// WithFloatTypes enables the f32 and f64 native types.
func WithFloatTypes(enabled bool) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.floatTypes = enabled
	})
}

type CompileResult struct {
	// Registry and Order are nil if compilation failed.
	Registry *Registry
	Order    []symbols.Symbol

	Errors   []*Error
	Warnings []*Warning
}

// FloatTypes reports whether any resolved field uses f32 or f64.
func (r *CompileResult) FloatTypes() bool {
	if r.Registry == nil {
		return false
	}
	for _, sym := range r.Registry.decls {
		msg, ok := r.Registry.Message(sym)
		if !ok {
			continue
		}
		for _, field := range msg.Fields {
			elem := field.Type
			if arr, ok := r.Registry.Array(elem); ok {
				elem = arr.Elem
			}
			if kind, ok := r.Registry.NativeKindOf(elem); ok && kind.Float() {
				return true
			}
		}
	}
	return false
}

func Compile(parsedSchema *syntax.Schema, opts ...CompileOption) CompileResult {
	return NewCompileOptions(opts...).Compile(parsedSchema)
}

func NewCompileOptions(opts ...CompileOption) *CompileOptions {
	compileOptions := &CompileOptions{}
	for _, opt := range opts {
		opt.apply(compileOptions)
	}
	if compileOptions.logger == nil {
		compileOptions.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return compileOptions
}

func (opts *CompileOptions) Compile(parsedSchema *syntax.Schema) CompileResult {
	c := compiler{
		opts: opts,
		log:  opts.logger,
		reg:  newRegistry(),
	}
	c.declare(parsedSchema)
	for _, node := range c.messages {
		c.compileMessage(node)
	}
	if len(c.errors) > 0 {
		return CompileResult{
			Errors:   c.errors,
			Warnings: c.warnings,
		}
	}

	order, err := order(c.reg, c.log)
	if err != nil {
		c.err(err)
		return CompileResult{
			Errors:   c.errors,
			Warnings: c.warnings,
		}
	}
	return CompileResult{
		Registry: c.reg,
		Order:    order,
		Warnings: c.warnings,
	}
}

type compiler struct {
	opts     *CompileOptions
	log      *slog.Logger
	reg      *Registry
	errors   []*Error
	warnings []*Warning

	// Set by declare(), only for messages whose name was accepted.
	messages []*syntax.Message
}

func (c *compiler) err(err error) {
	c.errors = append(c.errors, err.(*Error))
}

func (c *compiler) warn(warning *Warning) {
	c.warnings = append(c.warnings, warning)
}

// declare registers every message and bitfield name before any field is
// resolved, so fields may refer to types declared later in the file.
// Bitfields are complete after this pass; messages have no fields yet.
func (c *compiler) declare(parsedSchema *syntax.Schema) {
	for node := range parsedSchema.Declarations() {
		switch node := node.(type) {
		case *syntax.Message:
			sym, ok := c.declareName(node.Name())
			if !ok {
				continue
			}
			c.reg.types[sym] = &MessageType{
				Name: sym,
				Span: node.Name().Span(),
			}
			c.messages = append(c.messages, node)
			c.log.Debug("declared message", "name", node.Name().Get())
		case *syntax.Bitfield:
			sym, ok := c.declareName(node.Name())
			if !ok {
				continue
			}
			bf := &BitfieldType{
				Name: sym,
				Span: node.Name().Span(),
			}
			for _, flag := range node.Flags() {
				bf.Flags = append(bf.Flags, Flag{
					Name:   c.reg.symbols.Insert(flag.Name().Get()),
					Offset: flag.BitOffset(),
				})
			}
			c.reg.types[sym] = bf
			c.log.Debug(
				"declared bitfield",
				"name", node.Name().Get(),
				"flags", len(bf.Flags),
			)
		default:
			panic("unreachable")
		}
	}
}

func (c *compiler) declareName(ident *syntax.Ident) (symbols.Symbol, bool) {
	name := ident.Get()
	if _, isNative := LookupNative(name); isNative {
		c.err(errNativeConflict(name, ident.Span()))
		return 0, false
	}
	if sym, found := c.reg.symbols.Find(name); found {
		if _, declared := c.reg.types[sym]; declared {
			c.err(errDuplicateDecl(name, ident.Span()))
			return 0, false
		}
	}
	sym := c.reg.symbols.Insert(name)
	c.reg.decls = append(c.reg.decls, sym)
	return sym, true
}

type association struct {
	array   symbols.Symbol
	lenType symbols.Symbol
}

func (c *compiler) compileMessage(node *syntax.Message) {
	msgName := node.Name().Get()
	sym, _ := c.reg.symbols.Find(msgName)
	msg := c.reg.types[sym].(*MessageType)

	fieldNodes := node.Fields()
	byName := make(map[string]int, len(fieldNodes))
	for ii, field := range fieldNodes {
		name := field.Name().Get()
		if _, dup := byName[name]; dup {
			c.err(errDuplicateField(msgName, name, field.Name().Span()))
			continue
		}
		byName[name] = ii
	}

	assocs := c.associate(msgName, fieldNodes, byName)

	for ii, node := range fieldNodes {
		name := node.Name().Get()
		if byName[name] != ii {
			continue
		}
		fieldType, ok := c.resolveFieldType(node, assocs)
		if !ok {
			continue
		}
		field := Field{
			Name: c.reg.symbols.Insert(name),
			Type: fieldType,
			Span: node.Span(),
		}
		if ann := node.Annotation(); ann != nil {
			field.Annotation = c.reg.symbols.Insert(ann.Name().Get())
			field.HasAnnotation = true
		}
		if assoc, ok := assocs[name]; ok {
			field.Folded = true
			field.FoldedInto = assoc.array
		}
		msg.Fields = append(msg.Fields, field)
	}
}

// associate finds every array whose length is supplied by a sibling field
// and maps the sibling's name to that array.
func (c *compiler) associate(
	msgName string,
	fieldNodes []*syntax.MessageField,
	byName map[string]int,
) map[string]association {
	assocs := make(map[string]association)
	claimedBy := make(map[string]string)
	for ii, node := range fieldNodes {
		lenIdent := node.FieldType().LenField()
		if lenIdent == nil {
			continue
		}
		arrayName := node.Name().Get()
		lenName := lenIdent.Get()

		lenIdx, ok := byName[lenName]
		if !ok {
			c.err(errUnknownLenField(msgName, lenName, lenIdent.Span()))
			continue
		}
		lenNode := fieldNodes[lenIdx]
		lenFieldType := lenNode.FieldType()
		if lenFieldType.IsArray() {
			c.err(errLenFieldNotInteger(
				arrayName, lenName,
				strings.TrimSpace(syntax.Unparse(lenFieldType)),
				lenIdent.Span(),
			))
			continue
		}
		lenTypeName := lenFieldType.TypeName().Get()
		kind, isNative := LookupNative(lenTypeName)
		if !isNative || !kind.Integer() {
			if _, _, declared := c.reg.Lookup(lenTypeName); declared || isNative {
				c.err(errLenFieldNotInteger(
					arrayName, lenName, lenTypeName, lenIdent.Span(),
				))
			}
			// An undeclared type is reported when the field itself is
			// resolved.
			continue
		}
		if prev, claimed := claimedBy[lenName]; claimed {
			c.err(errLenFieldShared(lenName, prev, arrayName, lenIdent.Span()))
			continue
		}
		claimedBy[lenName] = arrayName
		if lenIdx > ii {
			c.warn(warnLenFieldAfterArray(arrayName, lenName, lenIdent.Span()))
		}
		assocs[lenName] = association{
			array:   c.reg.symbols.Insert(arrayName),
			lenType: c.reg.natives[kind],
		}
	}
	return assocs
}

func (c *compiler) resolveFieldType(
	node *syntax.MessageField,
	assocs map[string]association,
) (symbols.Symbol, bool) {
	fieldType := node.FieldType()
	elem, ok := c.resolveTypeName(fieldType.TypeName())
	if !ok {
		return 0, false
	}
	if !fieldType.IsArray() {
		return elem, true
	}

	key := arrayKey{elem: elem, shape: ArrayDefault}
	if lenIdent := fieldType.LenField(); lenIdent != nil {
		assoc, ok := assocs[lenIdent.Get()]
		if !ok || assoc.array != c.reg.symbols.Insert(node.Name().Get()) {
			// Association failed and was reported.
			return 0, false
		}
		key.shape = ArrayFieldAssociated
		key.lenField = c.reg.symbols.Insert(lenIdent.Get())
		key.lenType = assoc.lenType
	}
	sym, created := c.reg.array(key)
	if created {
		c.log.Debug("synthesized array", "name", c.reg.Name(sym))
	}
	return sym, true
}

func (c *compiler) resolveTypeName(ident *syntax.Ident) (symbols.Symbol, bool) {
	name := ident.Get()
	if kind, ok := LookupNative(name); ok {
		if kind.Float() && !c.opts.floatTypes {
			c.err(errFloatDisabled(name, ident.Span()))
			return 0, false
		}
		return c.reg.natives[kind], true
	}
	sym, t, ok := c.reg.Lookup(name)
	if !ok {
		c.err(errUndefinedType(name, ident.Span()))
		return 0, false
	}
	switch t.(type) {
	case *MessageType, *BitfieldType:
		return sym, true
	}
	// Synthesized array names contain brackets and cannot be written as
	// identifiers.
	c.err(errUndefinedType(name, ident.Span()))
	return 0, false
}
