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

package main

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strings"

	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/internal/plugin/protocol"
)

const wireImport = "github.com/maxleiko/binlang/wire"

type codegen struct {
	schema  *compiler.SchemaDesc
	pkg     string
	types   map[string]*compiler.TypeDesc
	buf     bytes.Buffer
	output  []byte
	outPath []string
}

// generate answers one framed request.
func generate(requestBuf []byte) (*protocol.Response, uint8) {
	var request protocol.Request
	if err := protocol.Decode(requestBuf, &request); err != nil {
		return &protocol.Response{Error: fmt.Sprintf("Decode[Request]: %v", err)}, 1
	}
	c, err := newCodegen(&request)
	if err != nil {
		return &protocol.Response{Error: err.Error()}, 1
	}
	if err := c.emitSchema(); err != nil {
		return &protocol.Response{Error: err.Error()}, 1
	}
	return &protocol.Response{
		Files: []protocol.OutputFile{
			{Path: c.outPath, Content: string(c.output)},
		},
	}, 0
}

func newCodegen(req *protocol.Request) (*codegen, error) {
	if req.Version != protocol.Version {
		return nil, fmt.Errorf("unsupported request version %d", req.Version)
	}
	if req.Schema == nil {
		return nil, fmt.Errorf("request has no schema")
	}
	pkg := req.Options["package"]
	if pkg == "" {
		pkg = strings.ToLower(req.Namespace)
	}
	if pkg == "" {
		pkg = "schema"
	}
	if !token.IsIdentifier(pkg) || token.IsKeyword(pkg) {
		return nil, fmt.Errorf("invalid Go package name %q", pkg)
	}
	c := &codegen{
		schema:  req.Schema,
		pkg:     pkg,
		types:   make(map[string]*compiler.TypeDesc, len(req.Schema.Types)),
		outPath: strings.Split(pkg+".go", "/"),
	}
	for ii := range req.Schema.Types {
		td := &req.Schema.Types[ii]
		c.types[td.Name] = td
	}
	return c, nil
}

func (c *codegen) emitSchema() error {
	c.printf("// Code generated by binlang-codegen-go. DO NOT EDIT.\n\n")
	c.printf("package %s\n", c.pkg)
	if len(c.schema.Types) > 0 {
		c.printf("\nimport %q\n", wireImport)
	}

	for _, td := range c.schema.Types {
		switch td.Kind {
		case "bitfield":
			c.emitBitfield(&td)
		case "message":
			if err := c.emitMessage(&td); err != nil {
				return err
			}
		default:
			return fmt.Errorf("type %s: unsupported kind %q", td.Name, td.Kind)
		}
	}

	formatted, err := format.Source(c.buf.Bytes())
	if err != nil {
		return fmt.Errorf("formatting generated code: %w", err)
	}
	c.output = formatted
	return nil
}

func (c *codegen) printf(format string, args ...any) {
	fmt.Fprintf(&c.buf, format, args...)
}

func (c *codegen) emitBitfield(td *compiler.TypeDesc) {
	name := goName(td.Name)
	c.printf("\ntype %s uint8\n", name)
	if len(td.Flags) > 0 {
		c.printf("\nconst (\n")
		for _, flag := range td.Flags {
			c.printf("%s%s %s = 1 << %d\n", name, goName(flag.Name), name, flag.Offset)
		}
		c.printf(")\n")
	}
	c.printf("\nfunc Read%s(r *wire.Reader, v *%s) error {\n", name, name)
	c.printf("x, err := r.ReadU8()\nif err != nil {\nreturn err\n}\n")
	c.printf("*v = %s(x)\nreturn nil\n}\n", name)
}

func (c *codegen) emitMessage(td *compiler.TypeDesc) error {
	name := goName(td.Name)

	c.printf("\ntype %s struct {\n", name)
	for _, field := range td.Fields {
		if field.FoldedInto != "" {
			continue
		}
		if field.Annotation != "" {
			c.printf("// @%s\n", field.Annotation)
		}
		goType, err := c.fieldType(&field)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", td.Name, field.Name, err)
		}
		c.printf("%s %s\n", goName(field.Name), goType)
	}
	c.printf("}\n")

	c.printf("\nfunc Read%s(r *wire.Reader, v *%s) error {\n", name, name)
	for _, field := range td.Fields {
		if field.Array != nil && field.Array.LenField != "" {
			c.printf("var %s uint32\n", sizeVar(field.Name))
		}
	}
	for _, field := range td.Fields {
		if err := c.readField(&field); err != nil {
			return fmt.Errorf("%s.%s: %w", td.Name, field.Name, err)
		}
	}
	c.printf("return nil\n}\n")
	return nil
}

func sizeVar(arrayField string) string {
	return "size" + goName(arrayField)
}

func (c *codegen) fieldType(field *compiler.FieldDesc) (string, error) {
	if field.Array == nil {
		return c.typeName(field.Type)
	}
	if field.Array.Elem == "u8" {
		return "[]byte", nil
	}
	elem, err := c.typeName(field.Array.Elem)
	if err != nil {
		return "", err
	}
	return "[]" + elem, nil
}

func (c *codegen) typeName(name string) (string, error) {
	if _, ok := c.types[name]; ok {
		return goName(name), nil
	}
	kind, ok := compiler.LookupNative(name)
	if !ok {
		return "", fmt.Errorf("unknown type %q", name)
	}
	return nativeGoType(kind), nil
}

func (c *codegen) readField(field *compiler.FieldDesc) error {
	member := "v." + goName(field.Name)
	c.printf("{\n")
	defer c.printf("}\n")

	if field.Array == nil {
		dest := member
		if field.FoldedInto != "" {
			dest = sizeVar(field.FoldedInto)
		}
		return c.readValue(field.Type, func(expr string) string {
			if field.FoldedInto != "" {
				return fmt.Sprintf("%s = uint32(%s)", dest, expr)
			}
			return fmt.Sprintf("%s = %s", dest, expr)
		}, "&"+member)
	}

	if field.Array.LenField == "" {
		c.printf("n, err := r.ReadU32()\nif err != nil {\nreturn err\n}\n")
	} else {
		c.printf("n := %s\n", sizeVar(field.Name))
	}

	if field.Array.Elem == "u8" {
		c.printf("b, err := r.ReadExact(int(n))\nif err != nil {\nreturn err\n}\n")
		c.printf("%s = b\n", member)
		return nil
	}
	goType, err := c.fieldType(field)
	if err != nil {
		return err
	}
	c.printf("%s = make(%s, 0, min(int(n), r.Len()))\n", member, goType)
	c.printf("for range n {\n")
	elemType, err := c.typeName(field.Array.Elem)
	if err != nil {
		return err
	}
	c.printf("var elem %s\n", elemType)
	err = c.readValue(field.Array.Elem, func(expr string) string {
		return "elem = " + expr
	}, "&elem")
	c.printf("%s = append(%s, elem)\n", member, member)
	c.printf("}\n")
	return err
}

// readValue reads one non-array value of the named type. Natives and
// bitfields are read into a local and stored with assign; messages are
// read in place through ptr.
func (c *codegen) readValue(name string, assign func(expr string) string, ptr string) error {
	if td, ok := c.types[name]; ok {
		c.printf("if err := Read%s(r, %s); err != nil {\nreturn err\n}\n", goName(td.Name), ptr)
		return nil
	}
	kind, ok := compiler.LookupNative(name)
	if !ok {
		return fmt.Errorf("unknown type %q", name)
	}
	c.printf("x, err := r.Read%s()\nif err != nil {\nreturn err\n}\n", strings.ToUpper(kind.String()))
	c.printf("%s\n", assign("x"))
	return nil
}

func nativeGoType(kind compiler.NativeKind) string {
	switch {
	case kind.Float():
		return fmt.Sprintf("float%d", kind.Width()*8)
	case kind.Signed():
		return fmt.Sprintf("int%d", kind.Width()*8)
	default:
		return fmt.Sprintf("uint%d", kind.Width()*8)
	}
}

// goName converts a schema identifier to an exported Go identifier:
// "type_flags" becomes "TypeFlags".
func goName(name string) string {
	var buf strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		buf.WriteString(strings.ToUpper(part[:1]))
		buf.WriteString(part[1:])
	}
	out := buf.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "X" + out
	}
	return out
}
