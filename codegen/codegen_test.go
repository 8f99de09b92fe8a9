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

package codegen_test

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/maxleiko/binlang/codegen"
	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/internal/testutil"
	"github.com/maxleiko/binlang/syntax"
)

var testdata fs.FS

func init() {
	var err error
	testdata, err = testutil.TestdataFS()
	if err != nil {
		panic(err)
	}
}

func compile(t *testing.T, src []byte, opts ...compiler.CompileOption) *compiler.CompileResult {
	t.Helper()
	parsed, err := syntax.Parse(src)
	testutil.AssertNoError(t, err)
	result := compiler.Compile(parsed, opts...)
	for _, err := range result.Errors {
		testutil.ExpectNoError(t, err)
	}
	if len(result.Errors) > 0 {
		t.FailNow()
	}
	return &result
}

func TestGenerateC(t *testing.T) {
	t.Parallel()

	testDirs, err := fs.ReadDir(testdata, "codegen")
	testutil.AssertNoError(t, err)

	for _, testDir := range testDirs {
		if !testDir.IsDir() {
			continue
		}
		testName := testDir.Name()
		t.Run(testName, func(t *testing.T) {
			t.Parallel()
			dir := "codegen/" + testName
			src, err := fs.ReadFile(testdata, dir+"/input.bl")
			testutil.AssertNoError(t, err)
			expectH, err := fs.ReadFile(testdata, dir+"/expect.h")
			testutil.AssertNoError(t, err)
			expectC, err := fs.ReadFile(testdata, dir+"/expect.c")
			testutil.AssertNoError(t, err)

			out, err := codegen.GenerateC(
				compile(t, src),
				codegen.WithSourcePath(fmt.Sprintf("schemas/%s.bl", testName)),
			)
			testutil.AssertNoError(t, err)
			testutil.ExpectEq(t, testName, out.Namespace)
			testutil.ExpectEq(t, testName+".h", out.HeaderName)
			testutil.ExpectEq(t, testName+".c", out.SourceName)
			testutil.ExpectNoDiff(t, string(expectH), out.Header)
			testutil.ExpectNoDiff(t, string(expectC), out.Source)
		})
	}
}

func TestMemberOrderFollowsDeclarations(t *testing.T) {
	src := []byte(`message AllNatives {
  a: u8, b: u16, c: u32, d: u64,
  e: i8, f: i16, g: i32, h: i64,
  n: vu32, i: vu32, j: vu64, k: vi32, l: vi64,
  xs: u16[n],
}`)
	out, err := codegen.GenerateC(compile(t, src))
	testutil.AssertNoError(t, err)

	testutil.ExpectContains(t, out.Header, `struct AllNatives {
  uint8_t a;
  uint16_t b;
  uint32_t c;
  uint64_t d;
  int8_t e;
  int16_t f;
  int32_t g;
  int64_t h;
  uint32_t i;
  uint64_t j;
  int32_t k;
  int64_t l;
  BlArray(uint16_t) xs;
};`)
	testutil.ExpectContains(t, out.Source, `  BL_TRY(bl_slice__read_i64(b, &value->h));
  BL_TRY(bl_slice__read_vu32(b, &value->xs.size));
  BL_TRY(bl_slice__read_vu32(b, &value->i));`)
	testutil.ExpectContains(t, out.Source, `  BL_TRY(bl_slice__read_vi64(b, &value->l));
  array_reserve(&value->xs, value->xs.size);
  for (uint32_t i = 0; i < value->xs.size; i++) {
    BL_TRY(bl_slice__read_u16(b, &value->xs.elems[i]));
  }
  return bl_result_ok;`)
	testutil.ExpectEq(t, "schema", out.Namespace)
}

func TestFoldedSignedCarrier(t *testing.T) {
	src := []byte(`message M { n: i64, data: u8[n], }`)
	out, err := codegen.GenerateC(compile(t, src), codegen.WithNamespace("wire"))
	testutil.AssertNoError(t, err)
	testutil.ExpectContains(t, out.Source, `bl_result_t wire__read_m(bl_slice_t *b, m_t *value) {
  {
    int64_t len;
    BL_TRY(bl_slice__read_i64(b, &len));
    value->data.size = (uint32_t)len;
  }
  array_reserve(&value->data, value->data.size);
  BL_TRY(bl_slice__read_exact(b, value->data.elems, value->data.size));
  return bl_result_ok;
}`)
}

func TestFloatTypes(t *testing.T) {
	src := []byte(`message Point { x: f32, y: f64, more: f32[], }`)
	out, err := codegen.GenerateC(
		compile(t, src, compiler.WithFloatTypes(true)),
		codegen.WithNamespace("geo"),
	)
	testutil.AssertNoError(t, err)
	testutil.ExpectContains(t, out.Header, "#ifndef FLOAT\n#define FLOAT\n#endif\n#include \"binlang.h\"\n")
	testutil.ExpectContains(t, out.Header, "  f32_t x;\n  f64_t y;\n  BlArray(f32_t) more;\n")
	testutil.ExpectContains(t, out.Source, "BL_TRY(bl_slice__read_f64(b, &value->y));")

	out, err = codegen.GenerateC(compile(t, []byte(`message P { x: u8, }`)))
	testutil.AssertNoError(t, err)
	testutil.ExpectFalse(t, strings.Contains(out.Header, "FLOAT"))
}

func TestForwardReference(t *testing.T) {
	src := []byte("message A {\n  b: B,\n}\n\nmessage B {\n  x: u8,\n}\n")
	out, err := codegen.GenerateC(compile(t, src))
	testutil.AssertNoError(t, err)

	bodyB := strings.Index(out.Header, "struct B {")
	bodyA := strings.Index(out.Header, "struct A {")
	testutil.ExpectTrue(t, bodyB >= 0 && bodyA > bodyB)

	readB := strings.Index(out.Source, "schema__read_b(bl_slice_t")
	readA := strings.Index(out.Source, "schema__read_a(bl_slice_t")
	testutil.ExpectTrue(t, readB >= 0 && readA > readB)
	testutil.ExpectContains(t, out.Source, "BL_TRY(schema__read_b(b, &value->b));")
}

func TestCompileErrors(t *testing.T) {
	parsed, err := syntax.Parse([]byte(`message A { b: B, } message B { a: A, }`))
	testutil.AssertNoError(t, err)
	result := compiler.Compile(parsed)
	testutil.ExpectEq(t, 1, len(result.Errors))

	out, err := codegen.GenerateC(&result)
	testutil.ExpectTrue(t, out == nil)
	testutil.ExpectTrue(t, errors.Is(err, codegen.ErrCompileFailed))

	_, err = codegen.GenerateC(nil)
	testutil.ExpectTrue(t, errors.Is(err, codegen.ErrCompileFailed))
}

func TestCName(t *testing.T) {
	tests := map[string]string{
		"TypeAttr":    "type_attr",
		"Abi":         "abi",
		"fn_param":    "fn_param",
		"HTTPServer":  "httpserver",
		"Utf8String":  "utf8_string",
		"already_low": "already_low",
		"M":           "m",
	}
	for in, want := range tests {
		testutil.ExpectEq(t, want, codegen.CName(in))
	}
	testutil.ExpectEq(t, "type_attr_t", codegen.CTypeName("TypeAttr"))
	testutil.ExpectEq(t, "TYPE_FLAGS_RETURN_NULLABLE", codegen.FlagConstant("TypeFlags", "return_nullable"))
	testutil.ExpectEq(t, "TYPE_ATTR_FLAGS_IS_NULLABLE", codegen.FlagConstant("TypeAttrFlags", "isNullable"))
	testutil.ExpectEq(t, "F_A", codegen.FlagConstant("F", "a"))
}

func TestNamespaceFromPath(t *testing.T) {
	tests := map[string]string{
		"greycat_abi.bl":         "greycat_abi",
		"schemas/greycat-abi.bl": "greycat_abi",
		"/abs/v2.schema.bl":      "v2_schema",
		"3d.bl":                  "_3d",
		"noext":                  "noext",
		".bl":                    "_bl",
	}
	for in, want := range tests {
		testutil.ExpectEq(t, want, codegen.NamespaceFromPath(in))
	}
}
