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

// Package syntax parses binlang schema source into a lossless syntax tree.
package syntax

import (
	"bytes"
)

type ParseOption interface {
	apply(*ParseOptions)
}

type parseOption func(*ParseOptions)

func (fn parseOption) apply(opts *ParseOptions) {
	fn(opts)
}

// DiscardTrivia drops spaces, newlines, and comments from the parsed tree.
// The resulting tree no longer unparses to the original source.
func DiscardTrivia() ParseOption {
	return parseOption(func(opts *ParseOptions) {
		opts.saveSpaces = false
		opts.saveNewlines = false
		opts.saveComments = false
	})
}

func Parse(src []uint8, opts ...ParseOption) (*Schema, error) {
	return NewParseOptions(opts...).ParseSchema(src)
}

type ParseOptions struct {
	saveSpaces   bool
	saveNewlines bool
	saveComments bool
}

func NewParseOptions(opts ...ParseOption) *ParseOptions {
	out := &ParseOptions{
		saveSpaces:   true,
		saveNewlines: true,
		saveComments: true,
	}
	for _, opt := range opts {
		opt.apply(out)
	}
	return out
}

func (opts *ParseOptions) ParseSchema(src []uint8) (*Schema, error) {
	ctx, err := newParseCtx[Schema](opts, src)
	if err != nil {
		return nil, err
	}
	return parseSchema(ctx)
}

func (opts *ParseOptions) ParseMessage(src []uint8) (*Message, error) {
	ctx, err := newParseCtx[Message](opts, src)
	if err != nil {
		return nil, err
	}
	return parseMessage(ctx)
}

func (opts *ParseOptions) ParseBitfield(src []uint8) (*Bitfield, error) {
	ctx, err := newParseCtx[Bitfield](opts, src)
	if err != nil {
		return nil, err
	}
	return parseBitfield(ctx)
}

type parseCtx[T any] struct {
	src        []uint8
	opts       *ParseOptions
	tokens     *Tokens
	childNodes []Node
	haveToken  bool
	token      Token
	err        error
	consumed   uint32
	offset     uint32
}

func newParseCtx[T any](opts *ParseOptions, src []uint8) (*parseCtx[T], error) {
	tokens, err := NewTokens(src)
	if err != nil {
		return nil, err
	}
	return &parseCtx[T]{
		src:    src,
		opts:   opts,
		tokens: tokens,
	}, nil
}

func (ctx *parseCtx[T]) ensureToken() error {
	if ctx.err != nil {
		return ctx.err
	}
	if ctx.haveToken {
		return nil
	}
	if err := ctx.tokens.Next(&ctx.token); err != nil {
		ctx.err = err
		return ctx.err
	}
	ctx.haveToken = true
	return nil
}

func (ctx *parseCtx[T]) readToken() []uint8 {
	return ctx.src[:ctx.token.Len]
}

func (ctx *parseCtx[T]) consumeToken(child Node) {
	ctx.src = ctx.src[ctx.token.Len:]
	ctx.consumed += uint32(ctx.token.Len)
	ctx.offset += uint32(ctx.token.Len)
	ctx.haveToken = false
	if child != nil {
		ctx.childNodes = append(ctx.childNodes, child)
	}
}

func (ctx *parseCtx[T]) tokenSpan() Span {
	return Span{
		start: ctx.offset,
		len:   uint32(ctx.token.Len),
	}
}

func (ctx *parseCtx[T]) loop(yield func(struct{}) bool) {
	if ctx.err != nil {
		return
	}
	for {
		consumed := ctx.consumed
		if !yield(struct{}{}) {
			return
		}
		if ctx.err != nil {
			return
		}
		if consumed == ctx.consumed {
			return
		}
	}
}

func (ctx *parseCtx[T]) space() {
	if err := ctx.ensureToken(); err != nil {
		return
	}
	if ctx.token.Kind != T_SPACE {
		return
	}
	ctx.consumeSpace()
}

func (ctx *parseCtx[T]) consumeSpace() {
	if !ctx.opts.saveSpaces {
		ctx.consumeToken(nil)
		return
	}

	tokenBytes := ctx.readToken()
	var token string
	if bytes.Equal(tokenBytes, []uint8{' '}) {
		token = " "
	} else {
		token = string(tokenBytes)
	}
	ctx.consumeToken(&Space{
		raw:   token,
		start: ctx.offset,
	})
}

// comments consumes any run of spaces, newlines, and line comments.
func (ctx *parseCtx[T]) comments() {
	for range ctx.loop {
		if err := ctx.ensureToken(); err != nil {
			return
		}
		switch ctx.token.Kind {
		case T_SPACE:
			ctx.consumeSpace()
		case T_NEWLINE:
			var child Node
			if ctx.opts.saveNewlines {
				child = &Newline{
					crlf:  ctx.token.Len == 2,
					start: ctx.offset,
				}
			}
			ctx.consumeToken(child)
		case T_COMMENT:
			var child Node
			if ctx.opts.saveComments {
				child = &Comment{
					raw:   string(ctx.readToken()),
					start: ctx.offset,
				}
			}
			ctx.consumeToken(child)
		default:
			return
		}
	}
}

func (ctx *parseCtx[T]) sigil(kind TokenKind) {
	if err := ctx.ensureToken(); err != nil {
		return
	}
	if ctx.token.Kind != kind {
		ctx.err = errExpectedSigil(
			kind,
			ctx.token.Kind,
			string(ctx.readToken()),
			ctx.tokenSpan(),
		)
		return
	}
	ctx.consumeToken(&Sigil{
		raw:   ctx.src[0],
		start: ctx.offset,
	})
}

func (ctx *parseCtx[T]) trySigil(kind TokenKind) bool {
	if err := ctx.ensureToken(); err != nil {
		return false
	}
	if ctx.token.Kind != kind {
		return false
	}
	ctx.consumeToken(&Sigil{
		raw:   ctx.src[0],
		start: ctx.offset,
	})
	return true
}

func (ctx *parseCtx[T]) tryKeyword(keyword string) bool {
	if err := ctx.ensureToken(); err != nil {
		return false
	}
	if ctx.token.Kind != T_IDENT {
		return false
	}
	if string(ctx.readToken()) != keyword {
		return false
	}
	ctx.consumeToken(&Keyword{
		raw:   keyword,
		start: ctx.offset,
	})
	return true
}

func (ctx *parseCtx[T]) ident() *Ident {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	token := string(ctx.readToken())
	if ctx.token.Kind != T_IDENT {
		ctx.err = errExpectedIdent(ctx.token.Kind, token, ctx.tokenSpan())
		return nil
	}
	ident := &Ident{
		raw:   token,
		start: ctx.offset,
	}
	ctx.consumeToken(ident)
	return ident
}

func (ctx *parseCtx[T]) int() *IntLit {
	if err := ctx.ensureToken(); err != nil {
		return nil
	}
	token := string(ctx.readToken())

	if !ctx.token.Kind.isIntLit() {
		ctx.err = errExpectedIntLit(ctx.token.Kind, token, ctx.tokenSpan())
		return nil
	}

	intNode, err := newIntLit(token, ctx.token.Kind, ctx.offset)
	if err != nil {
		ctx.err = err
		return nil
	}
	ctx.consumeToken(intNode)
	return intNode
}

func (ctx *parseCtx[T]) finish(
	build func(span Span, childNodes []Node) *T,
) (*T, error) {
	if ctx.err != nil {
		return nil, ctx.err
	}
	span := Span{
		start: ctx.offset - ctx.consumed,
		len:   ctx.consumed,
	}
	return build(span, ctx.childNodes), nil
}

func parseChild[P any, C any, PtrC interface {
	*C
	Node
}](
	ctx *parseCtx[P],
	parseChildFn func(*parseCtx[C]) (PtrC, error),
) (*C, bool) {
	if ctx.err != nil {
		return nil, false
	}
	childCtx := &parseCtx[C]{
		src:       ctx.src,
		opts:      ctx.opts,
		tokens:    ctx.tokens,
		haveToken: ctx.haveToken,
		token:     ctx.token,
		offset:    ctx.offset,
	}
	child, err := parseChildFn(childCtx)
	if err != nil {
		ctx.err = err
		return nil, false
	}

	ctx.haveToken = childCtx.haveToken
	ctx.token = childCtx.token

	if childCtx.consumed == 0 {
		return nil, false
	}
	ctx.src = ctx.src[childCtx.consumed:]
	ctx.consumed += childCtx.consumed
	ctx.offset = childCtx.offset
	ctx.childNodes = append(ctx.childNodes, child)
	return child, true
}

func parseSchema(ctx *parseCtx[Schema]) (*Schema, error) {
	var decls []Node
	for range ctx.loop {
		ctx.comments()
		if ctx.err != nil {
			return nil, ctx.err
		}
		if ctx.token.Kind == T_EOF {
			break
		}

		if msg, ok := parseChild(ctx, parseMessage); ok {
			decls = append(decls, msg)
			continue
		}
		if bf, ok := parseChild(ctx, parseBitfield); ok {
			decls = append(decls, bf)
			continue
		}
		if ctx.err != nil {
			return nil, ctx.err
		}
		token := string(ctx.readToken())
		span := ctx.tokenSpan()
		if ctx.token.Kind == T_IDENT {
			return nil, errUnknownDeclaration(token, span)
		}
		return nil, errExpectedDeclaration(ctx.token.Kind, token, span)
	}

	return ctx.finish(func(span Span, childNodes []Node) *Schema {
		return &Schema{
			span:       span,
			childNodes: childNodes,
			decls:      decls,
		}
	})
}

func parseMessage(ctx *parseCtx[Message]) (*Message, error) {
	if !ctx.tryKeyword("message") {
		return nil, ctx.err
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()

	var fields []*MessageField
	ctx.sigil(T_OPEN_CURL)
	ctx.comments()
	for range ctx.loop {
		if ctx.trySigil(T_CLOSE_CURL) {
			break
		}
		if field, ok := parseChild(ctx, parseMessageField); ok {
			fields = append(fields, field)
		}
		ctx.comments()
	}

	return ctx.finish(func(span Span, childNodes []Node) *Message {
		return &Message{
			span:       span,
			childNodes: childNodes,
			name:       name,
			fields:     fields,
		}
	})
}

func parseMessageField(ctx *parseCtx[MessageField]) (*MessageField, error) {
	annotation, _ := parseChild(ctx, parseAnnotation)
	ctx.comments()
	name := ctx.ident()
	ctx.comments()
	ctx.sigil(T_COLON)
	ctx.comments()
	fieldType, _ := parseChild(ctx, parseFieldType)
	ctx.comments()
	ctx.sigil(T_COMMA)

	return ctx.finish(func(span Span, childNodes []Node) *MessageField {
		return &MessageField{
			span:       span,
			childNodes: childNodes,
			annotation: annotation,
			name:       name,
			fieldType:  fieldType,
		}
	})
}

func parseAnnotation(ctx *parseCtx[Annotation]) (*Annotation, error) {
	if !ctx.trySigil(T_AT) {
		return nil, ctx.err
	}
	ctx.space()
	name := ctx.ident()

	return ctx.finish(func(span Span, childNodes []Node) *Annotation {
		return &Annotation{
			span:       span,
			childNodes: childNodes,
			name:       name,
		}
	})
}

func parseFieldType(ctx *parseCtx[FieldType]) (*FieldType, error) {
	typeName := ctx.ident()
	ctx.space()

	isArray := false
	var lenField *Ident
	if ctx.trySigil(T_OPEN_SQUARE) {
		isArray = true
		ctx.space()
		if !ctx.trySigil(T_CLOSE_SQUARE) {
			lenField = ctx.ident()
			ctx.space()
			ctx.sigil(T_CLOSE_SQUARE)
		}
	}

	return ctx.finish(func(span Span, childNodes []Node) *FieldType {
		return &FieldType{
			span:       span,
			childNodes: childNodes,
			typeName:   typeName,
			isArray:    isArray,
			lenField:   lenField,
		}
	})
}

func parseBitfield(ctx *parseCtx[Bitfield]) (*Bitfield, error) {
	if !ctx.tryKeyword("bitfield") {
		return nil, ctx.err
	}
	ctx.comments()
	name := ctx.ident()
	ctx.comments()

	var flags []*BitfieldFlag
	ctx.sigil(T_OPEN_CURL)
	ctx.comments()
	for range ctx.loop {
		if ctx.trySigil(T_CLOSE_CURL) {
			break
		}
		if flag, ok := parseChild(ctx, parseBitfieldFlag); ok {
			flags = append(flags, flag)
		}
		ctx.comments()
	}

	return ctx.finish(func(span Span, childNodes []Node) *Bitfield {
		return &Bitfield{
			span:       span,
			childNodes: childNodes,
			name:       name,
			flags:      flags,
		}
	})
}

func parseBitfieldFlag(ctx *parseCtx[BitfieldFlag]) (*BitfieldFlag, error) {
	name := ctx.ident()
	ctx.comments()
	ctx.sigil(T_COLON)
	ctx.comments()
	offset := ctx.int()
	if offset != nil {
		if _, ok := offset.GetUint8(); !ok {
			return nil, errBitOffsetTooLarge(offset.raw, offset.start)
		}
	}
	ctx.comments()
	ctx.sigil(T_COMMA)

	return ctx.finish(func(span Span, childNodes []Node) *BitfieldFlag {
		return &BitfieldFlag{
			span:       span,
			childNodes: childNodes,
			name:       name,
			offset:     offset,
		}
	})
}
