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
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/maxleiko/binlang/syntax"
)

type SyntaxError struct {
	code    uint32
	message string
	pattern *regexp.Regexp
}

func (err *SyntaxError) Code() uint32 {
	return err.code
}

func (err *SyntaxError) Message() string {
	return err.message
}

func (err *SyntaxError) MessagePattern() *regexp.Regexp {
	return err.pattern
}

func LoadSyntaxErrors(testdata fs.FS) (map[string]*SyntaxError, error) {
	type syntaxError struct {
		Code    uint32 `json:"code"`
		Message string `json:"message"`
		Pattern string `json:"message_pattern"`
	}

	jsonData, err := fs.ReadFile(testdata, "diagnostics/syntax_errors.json")
	if err != nil {
		return nil, err
	}

	var rawErrors map[string]syntaxError
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.UseNumber()
	if err := decoder.Decode(&rawErrors); err != nil {
		return nil, err
	}

	out := make(map[string]*SyntaxError, len(rawErrors))
	codes := make(map[uint32]struct{}, len(rawErrors))
	for key, raw := range rawErrors {
		if raw.Code == 0 {
			return nil, fmt.Errorf("syntax error %q has no error code", key)
		}
		if _, conflict := codes[raw.Code]; conflict {
			return nil, fmt.Errorf("duplicate syntax error code %d", raw.Code)
		}
		codes[raw.Code] = struct{}{}

		var pattern *regexp.Regexp
		if raw.Pattern != "" {
			pattern, err = regexp.Compile("(?i)" + raw.Pattern)
			if err != nil {
				return nil, err
			}
		}
		out[key] = &SyntaxError{
			code:    raw.Code,
			message: raw.Message,
			pattern: pattern,
		}
	}

	return out, nil
}

// SpanOrDie converts a decoded `{"start": N, "len": N}` object into a Span.
func SpanOrDie(t *testing.T, raw any) syntax.Span {
	t.Helper()
	obj, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("invalid span %#v", raw)
	}
	return syntax.NewSpan(uint32OrDie(t, obj["start"]), uint32OrDie(t, obj["len"]))
}

func uint32OrDie(t *testing.T, raw any) uint32 {
	t.Helper()
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		t.Fatalf("invalid span component %#v", raw)
	}
	n, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		t.Fatalf("invalid span component %q: %v", text, err)
	}
	return uint32(n)
}

// DumpOutline renders the declarations of a schema as an indented outline,
// one line per declaration, field, and flag. Trivia is omitted.
func DumpOutline(schema *syntax.Schema) string {
	var buf strings.Builder
	buf.WriteString("schema\n")
	for decl := range schema.Declarations() {
		switch decl := decl.(type) {
		case *syntax.Message:
			fmt.Fprintf(&buf, "  message %s\n", decl.Name().Get())
			for _, field := range decl.Fields() {
				buf.WriteString("    field ")
				if ann := field.Annotation(); ann != nil {
					fmt.Fprintf(&buf, "@%s ", ann.Name().Get())
				}
				fieldType := field.FieldType()
				fmt.Fprintf(&buf, "%s: %s", field.Name().Get(), fieldType.TypeName().Get())
				if fieldType.IsArray() {
					buf.WriteString("[")
					if lenField := fieldType.LenField(); lenField != nil {
						buf.WriteString(lenField.Get())
					}
					buf.WriteString("]")
				}
				buf.WriteString("\n")
			}
		case *syntax.Bitfield:
			fmt.Fprintf(&buf, "  bitfield %s\n", decl.Name().Get())
			for _, flag := range decl.Flags() {
				fmt.Fprintf(&buf, "    flag %s: %d\n", flag.Name().Get(), flag.BitOffset())
			}
		}
	}
	return buf.String()
}
