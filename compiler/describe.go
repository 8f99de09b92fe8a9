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
)

// SchemaDesc is a symbol-free description of a compiled schema, with
// types listed in emission order.
type SchemaDesc struct {
	Types []TypeDesc `yaml:"types" json:"types"`
}

type TypeDesc struct {
	Name   string      `yaml:"name" json:"name"`
	Kind   string      `yaml:"kind" json:"kind"`
	Fields []FieldDesc `yaml:"fields,omitempty" json:"fields,omitempty"`
	Flags  []FlagDesc  `yaml:"flags,omitempty" json:"flags,omitempty"`
}

type FieldDesc struct {
	Name       string     `yaml:"name" json:"name"`
	Type       string     `yaml:"type" json:"type"`
	Array      *ArrayDesc `yaml:"array,omitempty" json:"array,omitempty"`
	FoldedInto string     `yaml:"folded_into,omitempty" json:"folded_into,omitempty"`
	Annotation string     `yaml:"annotation,omitempty" json:"annotation,omitempty"`
}

type ArrayDesc struct {
	Elem     string `yaml:"elem" json:"elem"`
	LenField string `yaml:"len_field,omitempty" json:"len_field,omitempty"`
	LenType  string `yaml:"len_type,omitempty" json:"len_type,omitempty"`
}

type FlagDesc struct {
	Name   string `yaml:"name" json:"name"`
	Offset uint8  `yaml:"offset" json:"offset"`
}

// Describe returns nil if res holds no registry.
func Describe(res *CompileResult) *SchemaDesc {
	reg := res.Registry
	if reg == nil {
		return nil
	}
	desc := &SchemaDesc{
		Types: make([]TypeDesc, 0, len(res.Order)),
	}
	for _, sym := range res.Order {
		switch t := reg.Type(sym).(type) {
		case *MessageType:
			td := TypeDesc{
				Name:   reg.Name(sym),
				Kind:   KindName(t),
				Fields: make([]FieldDesc, 0, len(t.Fields)),
			}
			for _, field := range t.Fields {
				td.Fields = append(td.Fields, describeField(reg, field))
			}
			desc.Types = append(desc.Types, td)
		case *BitfieldType:
			td := TypeDesc{
				Name:  reg.Name(sym),
				Kind:  KindName(t),
				Flags: make([]FlagDesc, 0, len(t.Flags)),
			}
			for _, flag := range t.Flags {
				td.Flags = append(td.Flags, FlagDesc{
					Name:   reg.Name(flag.Name),
					Offset: flag.Offset,
				})
			}
			desc.Types = append(desc.Types, td)
		default:
			panic(fmt.Sprintf("unexpected type %T in emission order", t))
		}
	}
	return desc
}

func describeField(reg *Registry, field Field) FieldDesc {
	fd := FieldDesc{
		Name: reg.Name(field.Name),
		Type: reg.Name(field.Type),
	}
	if arr, ok := reg.Array(field.Type); ok {
		fd.Array = &ArrayDesc{Elem: reg.Name(arr.Elem)}
		if arr.Shape == ArrayFieldAssociated {
			fd.Array.LenField = reg.Name(arr.LenField)
			fd.Array.LenType = reg.Name(arr.LenType)
		}
	}
	if field.Folded {
		fd.FoldedInto = reg.Name(field.FoldedInto)
	}
	if field.HasAnnotation {
		fd.Annotation = reg.Name(field.Annotation)
	}
	return fd
}
