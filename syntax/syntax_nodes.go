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

package syntax

import (
	"bytes"
	"iter"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Span struct {
	start, len uint32
}

func NewSpan(start, len uint32) Span {
	return Span{start, len}
}

func (s Span) Start() uint32 {
	return s.start
}

func (s Span) End() uint32 {
	return s.start + s.len
}

func (s Span) Len() uint32 {
	return s.len
}

// Position returns the 1-based line and column of the byte at offset.
// Columns count runes, and an offset past the end of src is clamped.
func Position(src []byte, offset uint32) (line, column int) {
	if uint64(offset) > uint64(len(src)) {
		offset = uint32(len(src))
	}
	prefix := src[:offset]
	line = 1 + bytes.Count(prefix, []byte{'\n'})
	if nl := bytes.LastIndexByte(prefix, '\n'); nl >= 0 {
		prefix = prefix[nl+1:]
	}
	column = 1 + utf8.RuneCount(prefix)
	return line, column
}

type Node interface {
	Span() Span

	ChildNodes() iter.Seq[Node]

	privChildren() []Node

	UnparseTo(buf *bytes.Buffer)
}

func Unparse(node Node) string {
	var buf bytes.Buffer
	node.UnparseTo(&buf)
	return buf.String()
}

// Walk calls walkFn for node and each of its descendants in source order.
// Returning false skips the children of that node. After the children of a
// visited node, walkFn is called with nil.
func Walk(node Node, walkFn func(Node) bool) {
	if node == nil || !walkFn(node) {
		return
	}
	for _, child := range node.privChildren() {
		Walk(child, walkFn)
	}
	walkFn(nil)
}

func iterChildren(childNodes []Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, child := range childNodes {
			if !yield(child) {
				return
			}
		}
	}
}

func unparseChildren(childNodes []Node, buf *bytes.Buffer) {
	for _, childNode := range childNodes {
		childNode.UnparseTo(buf)
	}
}

type leafNode struct{}

func (*leafNode) ChildNodes() iter.Seq[Node] {
	return func(_yield func(Node) bool) {}
}

func (*leafNode) privChildren() []Node {
	return nil
}

type Space struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Space)(nil)

func (n *Space) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Space) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

type Newline struct {
	leafNode
	start uint32
	crlf  bool
}

var _ Node = (*Newline)(nil)

func (n *Newline) Span() Span {
	var len uint32
	if n.crlf {
		len = 2
	} else {
		len = 1
	}
	return Span{
		start: n.start,
		len:   len,
	}
}

func (n *Newline) UnparseTo(buf *bytes.Buffer) {
	if n.crlf {
		buf.WriteString("\r\n")
	} else {
		buf.WriteByte('\n')
	}
}

type Comment struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Comment)(nil)

func (n *Comment) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Comment) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

// Text returns the comment body without the leading "//".
func (n *Comment) Text() string {
	return strings.TrimPrefix(n.raw, "//")
}

type IntLit struct {
	leafNode
	raw   string
	value uint64
	start uint32
}

var _ Node = (*IntLit)(nil)

func (n *IntLit) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *IntLit) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func newIntLit(token string, kind TokenKind, start uint32) (*IntLit, error) {
	base := 10
	valueStr := token
	switch kind {
	case T_BIN_INT_LIT:
		base = 2
		valueStr = valueStr[2:]
	case T_OCT_INT_LIT:
		base = 8
		valueStr = valueStr[2:]
	case T_HEX_INT_LIT:
		base = 16
		valueStr = valueStr[2:]
	}
	valueStr = strings.ReplaceAll(valueStr, "_", "")

	value, err := strconv.ParseUint(valueStr, base, 64)
	if err != nil {
		return nil, errIntLitInvalid(start, []byte(token))
	}
	return &IntLit{
		raw:   token,
		value: value,
		start: start,
	}, nil
}

func (n *IntLit) GetUint8() (uint8, bool) {
	if n.value <= math.MaxUint8 {
		return uint8(n.value), true
	}
	return 0, false
}

func (n *IntLit) GetUint64() uint64 {
	return n.value
}

type Sigil struct {
	leafNode
	raw   byte
	start uint32
}

var _ Node = (*Sigil)(nil)

func (n *Sigil) Span() Span {
	return Span{
		start: n.start,
		len:   1,
	}
}

func (n *Sigil) UnparseTo(buf *bytes.Buffer) {
	buf.WriteByte(n.raw)
}

type Ident struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Ident)(nil)

func (n *Ident) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Ident) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

func (n *Ident) Get() string {
	return n.raw
}

type Keyword struct {
	leafNode
	raw   string
	start uint32
}

var _ Node = (*Keyword)(nil)

func (n *Keyword) Span() Span {
	return Span{
		start: n.start,
		len:   uint32(len(n.raw)),
	}
}

func (n *Keyword) UnparseTo(buf *bytes.Buffer) {
	buf.WriteString(n.raw)
}

type Schema struct {
	span       Span
	childNodes []Node
	decls      []Node
}

var _ Node = (*Schema)(nil)

func (n *Schema) Span() Span {
	return n.span
}

func (n *Schema) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *Schema) privChildren() []Node {
	return n.childNodes
}

func (n *Schema) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

// Declarations yields each *Message and *Bitfield in source order.
func (n *Schema) Declarations() iter.Seq[Node] {
	return iterChildren(n.decls)
}

func (n *Schema) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, decl := range n.decls {
			if msg, ok := decl.(*Message); ok {
				if !yield(msg) {
					return
				}
			}
		}
	}
}

func (n *Schema) Bitfields() iter.Seq[*Bitfield] {
	return func(yield func(*Bitfield) bool) {
		for _, decl := range n.decls {
			if bf, ok := decl.(*Bitfield); ok {
				if !yield(bf) {
					return
				}
			}
		}
	}
}

type Message struct {
	span       Span
	childNodes []Node
	name       *Ident
	fields     []*MessageField
}

var _ Node = (*Message)(nil)

func (n *Message) Span() Span {
	return n.span
}

func (n *Message) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *Message) privChildren() []Node {
	return n.childNodes
}

func (n *Message) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

func (n *Message) Name() *Ident {
	return n.name
}

func (n *Message) Fields() []*MessageField {
	return n.fields
}

type MessageField struct {
	span       Span
	childNodes []Node
	annotation *Annotation
	name       *Ident
	fieldType  *FieldType
}

var _ Node = (*MessageField)(nil)

func (n *MessageField) Span() Span {
	return n.span
}

func (n *MessageField) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *MessageField) privChildren() []Node {
	return n.childNodes
}

func (n *MessageField) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

// Annotation returns the field's `@name` annotation, or nil.
func (n *MessageField) Annotation() *Annotation {
	return n.annotation
}

func (n *MessageField) Name() *Ident {
	return n.name
}

func (n *MessageField) FieldType() *FieldType {
	return n.fieldType
}

type Annotation struct {
	span       Span
	childNodes []Node
	name       *Ident
}

var _ Node = (*Annotation)(nil)

func (n *Annotation) Span() Span {
	return n.span
}

func (n *Annotation) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *Annotation) privChildren() []Node {
	return n.childNodes
}

func (n *Annotation) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

func (n *Annotation) Name() *Ident {
	return n.name
}

type FieldType struct {
	span       Span
	childNodes []Node

	typeName *Ident
	isArray  bool
	lenField *Ident
}

var _ Node = (*FieldType)(nil)

func (n *FieldType) Span() Span {
	return n.span
}

func (n *FieldType) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *FieldType) privChildren() []Node {
	return n.childNodes
}

func (n *FieldType) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

func (n *FieldType) TypeName() *Ident {
	return n.typeName
}

func (n *FieldType) IsArray() bool {
	return n.isArray
}

// LenField names the sibling field holding the element count of an
// array, or is nil for arrays carrying their own length prefix.
func (n *FieldType) LenField() *Ident {
	return n.lenField
}

type Bitfield struct {
	span       Span
	childNodes []Node
	name       *Ident
	flags      []*BitfieldFlag
}

var _ Node = (*Bitfield)(nil)

func (n *Bitfield) Span() Span {
	return n.span
}

func (n *Bitfield) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *Bitfield) privChildren() []Node {
	return n.childNodes
}

func (n *Bitfield) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

func (n *Bitfield) Name() *Ident {
	return n.name
}

func (n *Bitfield) Flags() []*BitfieldFlag {
	return n.flags
}

type BitfieldFlag struct {
	span       Span
	childNodes []Node
	name       *Ident
	offset     *IntLit
}

var _ Node = (*BitfieldFlag)(nil)

func (n *BitfieldFlag) Span() Span {
	return n.span
}

func (n *BitfieldFlag) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.childNodes)
}

func (n *BitfieldFlag) privChildren() []Node {
	return n.childNodes
}

func (n *BitfieldFlag) UnparseTo(buf *bytes.Buffer) {
	unparseChildren(n.childNodes, buf)
}

func (n *BitfieldFlag) Name() *Ident {
	return n.name
}

func (n *BitfieldFlag) Offset() *IntLit {
	return n.offset
}

// BitOffset is the flag's offset; the parser rejects offsets above 255.
func (n *BitfieldFlag) BitOffset() uint8 {
	off, _ := n.offset.GetUint8()
	return off
}
