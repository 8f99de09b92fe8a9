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

package testutil

import (
	"fmt"
	"strings"

	"github.com/maxleiko/binlang/compiler"
)

// DumpRegistry renders a successful compile result as text: the emission
// order, then each ordered type, then synthesized arrays in order of first
// use.
func DumpRegistry(res *compiler.CompileResult) string {
	reg := res.Registry
	var buf strings.Builder
	buf.WriteString("order:")
	for _, sym := range res.Order {
		buf.WriteString(" " + reg.Name(sym))
	}
	buf.WriteString("\n")

	for _, sym := range res.Order {
		switch t := reg.Type(sym).(type) {
		case *compiler.MessageType:
			fmt.Fprintf(&buf, "message %s\n", reg.Name(sym))
			for _, field := range t.Fields {
				buf.WriteString("  field ")
				if field.HasAnnotation {
					fmt.Fprintf(&buf, "@%s ", reg.Name(field.Annotation))
				}
				fmt.Fprintf(&buf, "%s: %s", reg.Name(field.Name), reg.Name(field.Type))
				if field.Folded {
					fmt.Fprintf(&buf, " (folded into %s)", reg.Name(field.FoldedInto))
				}
				buf.WriteString("\n")
			}
		case *compiler.BitfieldType:
			fmt.Fprintf(&buf, "bitfield %s\n", reg.Name(sym))
			for _, flag := range t.Flags {
				fmt.Fprintf(&buf, "  flag %s: %d\n", reg.Name(flag.Name), flag.Offset)
			}
		}
	}

	for _, sym := range reg.Arrays() {
		fmt.Fprintf(&buf, "array %s\n", reg.Name(sym))
	}
	return buf.String()
}
