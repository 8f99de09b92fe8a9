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

package codegen

import (
	"path/filepath"
	"strings"

	"github.com/maxleiko/binlang/compiler"
)

// CName converts a schema name to C snake case: "TypeAttr" becomes
// "type_attr". An underscore is inserted before an upper-case letter
// only when it follows a lower-case letter or digit.
func CName(name string) string {
	var buf strings.Builder
	buf.Grow(len(name) + 4)
	prevLower := false
	for ii := 0; ii < len(name); ii++ {
		c := name[ii]
		if c >= 'A' && c <= 'Z' {
			if prevLower {
				buf.WriteByte('_')
			}
			buf.WriteByte(c + ('a' - 'A'))
			prevLower = false
			continue
		}
		buf.WriteByte(c)
		prevLower = (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	return buf.String()
}

// CTypeName is the typedef name of a declared message or bitfield.
func CTypeName(name string) string {
	return CName(name) + "_t"
}

// FlagConstant is the macro name of one bitfield flag: the upper-cased C
// names of the bitfield and the flag, so "TypeFlags" and "isNullable"
// give "TYPE_FLAGS_IS_NULLABLE".
func FlagConstant(bitfield, flag string) string {
	return strings.ToUpper(CName(bitfield)) + "_" + strings.ToUpper(CName(flag))
}

// NamespaceFromPath derives a C identifier from a schema file name:
// "schemas/greycat-abi.bl" becomes "greycat_abi".
func NamespaceFromPath(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return sanitizeIdent(base)
}

func sanitizeIdent(s string) string {
	var buf strings.Builder
	for ii := 0; ii < len(s); ii++ {
		c := s[ii]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			buf.WriteByte(c)
		case c >= '0' && c <= '9':
			if ii == 0 {
				buf.WriteByte('_')
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte('_')
		}
	}
	if buf.Len() == 0 {
		return defaultNamespace
	}
	return buf.String()
}

func nativeCType(kind compiler.NativeKind) string {
	switch kind {
	case compiler.U8:
		return "uint8_t"
	case compiler.U16:
		return "uint16_t"
	case compiler.U32, compiler.VU32:
		return "uint32_t"
	case compiler.U64, compiler.VU64:
		return "uint64_t"
	case compiler.I8:
		return "int8_t"
	case compiler.I16:
		return "int16_t"
	case compiler.I32, compiler.VI32:
		return "int32_t"
	case compiler.I64, compiler.VI64:
		return "int64_t"
	case compiler.F32:
		return "f32_t"
	case compiler.F64:
		return "f64_t"
	}
	panic("unknown native kind " + kind.String())
}

// nativeReader is the runtime function reading one value of kind.
func nativeReader(kind compiler.NativeKind) string {
	return "bl_slice__read_" + kind.String()
}
