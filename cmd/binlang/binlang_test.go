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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, env map[string]string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	getenv := func(key string) string {
		return env[key]
	}
	code := run(context.Background(), args, &stdout, &stderr, getenv)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const abiSchema = `
bitfield Flags { nullable: 0, array: 3, }

message Header {
  magic: u16,
  flags: Flags,
  count: vu32,
  items: Item[count],
  trailer: Trailer,
}

message Item { id: u8, name: u8[], }

message Trailer { crc: u32, }
`

func TestNoCommand(t *testing.T) {
	res := runCLI(t, nil)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Usage:")
}

func TestGen(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "greycat_abi.bl", abiSchema)
	outDir := filepath.Join(dir, "out")

	res := runCLI(t, nil, "gen", "-o", outDir, schema)
	require.Equal(t, 0, res.code, res.stderr)

	header, err := os.ReadFile(filepath.Join(outDir, "greycat_abi.h"))
	require.NoError(t, err)
	assert.Contains(t, string(header), "#define FLAGS_ARRAY (1 << 3)")
	assert.Contains(t, string(header), "typedef struct Header header_t;")

	source, err := os.ReadFile(filepath.Join(outDir, "greycat_abi.c"))
	require.NoError(t, err)
	assert.Contains(t, string(source), `#include "greycat_abi.h"`)
	assert.Contains(t, string(source), "greycat_abi__read_item")
}

func TestGenErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeTemp(t, dir, "good.bl", "message A { x: u8, }\n")
	bad := writeTemp(t, dir, "bad.bl", "message B {\n  x: Nope,\n}\n")
	outDir := filepath.Join(dir, "out")

	res := runCLI(t, map[string]string{"NO_COLOR": "1"}, "gen", "-o", outDir, good, bad)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, bad+":2:6: E3000: Use of undefined type 'Nope'")

	// No output is written when any file fails.
	_, err := os.Stat(filepath.Join(outDir, "good.h"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	late := writeTemp(t, dir, "late.bl", "message M {\n  xs: u8[n],\n  n: u8,\n}\n")
	cycle := writeTemp(t, dir, "cycle.bl", "message A { b: B, }\nmessage B { a: A, }\n")
	env := map[string]string{"NO_COLOR": "1"}

	res := runCLI(t, env, "check", late)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stderr, late+":2:10: W4000: Length field 'n' is declared after array 'xs'")

	res = runCLI(t, env, "check", late, cycle)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, cycle+":1:9: E3100: Cyclic dependency between message types: A -> B -> A")
}

func TestCheckMissingFile(t *testing.T) {
	res := runCLI(t, nil, "check", filepath.Join(t.TempDir(), "missing.bl"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "missing.bl")
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "greycat_abi.bl", abiSchema)

	res := runCLI(t, nil, "dump", schema)
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "namespace: greycat_abi\ntypes:\n"), res.stdout)
	assert.Contains(t, res.stdout, "folded_into: items")

	// Header nests Trailer directly, so Trailer is emitted first.
	assert.Less(t, strings.Index(res.stdout, "name: Trailer"), strings.Index(res.stdout, "name: Header"))

	outPath := filepath.Join(dir, "dump", "abi.yaml")
	res = runCLI(t, nil, "dump", "-o", outPath, schema)
	require.Equal(t, 0, res.code, res.stderr)
	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "kind: bitfield")
}

func TestTypes(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "abi.bl", abiSchema)

	res := runCLI(t, map[string]string{"NO_COLOR": "1"}, "types", schema)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Name")
	assert.Contains(t, res.stdout, "Header")
	assert.Contains(t, res.stdout, "count (len of items)")
	assert.Contains(t, res.stdout, "array@3")
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "abi.bl", abiSchema)
	data := writeTemp(t, dir, "header.bin", string([]byte{
		// magic, flags, count
		0x34, 0x12, 0x09, 0x01,
		// items[0]
		0x07, 0x02, 0x00, 0x00, 0x00, 'o', 'k',
		// trailer
		0x78, 0x56, 0x34, 0x12,
	}))

	res := runCLI(t, nil, "decode", "--type", "Header", schema, data)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "magic: 4660\n")
	assert.Contains(t, res.stdout, "flags: {value: 9, flags: [nullable, array]}\n")
	assert.Contains(t, res.stdout, "id: 7")
	assert.Contains(t, res.stdout, "crc: 305419896")
	assert.NotContains(t, res.stdout, "count")
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "abi.bl", abiSchema)
	short := writeTemp(t, dir, "short.bin", string([]byte{0x34}))
	long := writeTemp(t, dir, "long.bin", string([]byte{0x01, 0xFF}))

	res := runCLI(t, nil, "decode", schema, short)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--type")

	res = runCLI(t, nil, "decode", "--type", "Header", schema, short)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "decode Header.magic at offset 0: unexpected EOF")

	res = runCLI(t, nil, "decode", "--type", "Flags", schema, long)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "trailing data")

	res = runCLI(t, nil, "decode", "--type", "Flags", "--allow-trailing", schema, long)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "value: 1")
}

func TestCodegenPluginNotFound(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "abi.bl", abiSchema)

	res := runCLI(t, nil, "codegen", "--language", "go", "-o", dir, schema)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "no plugin path set")

	res = runCLI(t, nil, "codegen", "--language", "go", "-o", dir, "--plugin-path", dir, schema)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "binlang-codegen-go.wasm")
}

func TestLogLevel(t *testing.T) {
	dir := t.TempDir()
	schema := writeTemp(t, dir, "a.bl", "message A { x: u8, }\n")

	res := runCLI(t, nil, "--log-level", "loud", "check", schema)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown log level "loud"`)

	res = runCLI(t, map[string]string{"BINLANG_LOG": "debug"}, "--log-format", "json", "check", schema)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stderr, `"msg":"schema ok"`)

	res = runCLI(t, map[string]string{"BINLANG_LOG": "debug"}, "--log-level", "silent", "check", schema)
	assert.Equal(t, 0, res.code)
	assert.Empty(t, res.stderr)
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())

	level, err = parseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())

	_, err = parseLogLevel("verbose")
	assert.ErrorIs(t, err, errUsage)
}
