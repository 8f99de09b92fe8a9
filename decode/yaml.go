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
	"encoding/base64"
	"strconv"

	"gopkg.in/yaml.v3"
)

var _ yaml.Marshaler = (*Value)(nil)

// MarshalYAML renders v with message fields in declaration order.
func (v *Value) MarshalYAML() (any, error) {
	return v.Node(), nil
}

// Node converts v to a YAML node tree. Byte arrays render as !!binary
// scalars and bitfields as a mapping of their raw value and set flags.
func (v *Value) Node() *yaml.Node {
	switch v.Kind {
	case KindUint:
		return scalar("!!int", strconv.FormatUint(v.Uint, 10))
	case KindInt:
		return scalar("!!int", strconv.FormatInt(v.Int, 10))
	case KindFloat:
		return scalar("!!float", strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindBytes:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(v.Bytes))
	case KindBitfield:
		flags := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, flag := range v.Flags {
			flags.Content = append(flags.Content, scalar("!!str", flag))
		}
		return &yaml.Node{
			Kind:  yaml.MappingNode,
			Tag:   "!!map",
			Style: yaml.FlowStyle,
			Content: []*yaml.Node{
				scalar("!!str", "value"), scalar("!!int", strconv.FormatUint(v.Uint, 10)),
				scalar("!!str", "flags"), flags,
			},
		}
	case KindArray:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range v.Elems {
			node.Content = append(node.Content, elem.Node())
		}
		return node
	case KindMessage:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, field := range v.Fields {
			node.Content = append(node.Content, scalar("!!str", field.Name), field.Value.Node())
		}
		return node
	}
	panic("unknown value kind " + v.Kind.String())
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
