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

package plugin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxleiko/binlang/internal/plugin"
	"github.com/maxleiko/binlang/internal/plugin/protocol"
	"github.com/maxleiko/binlang/internal/testutil"
)

// Minimal WebAssembly encoder for building test plugins.

func uleb(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(n int32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, content []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

const (
	i32     = 0x7F
	funcTyp = 0x60
)

// testPlugin builds a module whose generate function always answers with
// response and rc. Allocation bumps a heap pointer starting at 1024;
// the response frame is stored at offset 16.
func testPlugin(t *testing.T, response *protocol.Response, rc int32) []byte {
	t.Helper()
	frame, err := protocol.Encode(response)
	testutil.AssertNoError(t, err)
	if len(frame) > 1024-16 {
		t.Fatalf("response frame too large: %d bytes", len(frame))
	}

	const dataOffset = 16
	allocateBody := concat(
		vec([]byte{0x01, i32}),
		[]byte{0x23, 0x00, 0x21, 0x01},       // heap -> $ret
		[]byte{0x23, 0x00, 0x20, 0x00, 0x6A}, // heap + len
		[]byte{0x24, 0x00},                   // -> heap
		[]byte{0x20, 0x01, 0x0B},             // return $ret
	)
	generateBody := concat(
		vec(),
		[]byte{0x20, 0x01, 0x41}, sleb(dataOffset),
		[]byte{0x36, 0x02, 0x00}, // i32.store
		[]byte{0x41}, sleb(rc),
		[]byte{0x0B},
	)
	return concat(
		[]byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00},
		section(1, vec(
			[]byte{funcTyp, 0x01, i32, 0x01, i32},
			[]byte{funcTyp, 0x02, i32, i32, 0x01, i32},
		)),
		section(3, vec([]byte{0x00}, []byte{0x01})),
		section(5, vec([]byte{0x00, 0x01})),
		section(6, vec(concat([]byte{i32, 0x01, 0x41}, sleb(1024), []byte{0x0B}))),
		section(7, vec(
			concat(name("memory"), []byte{0x02, 0x00}),
			concat(name("binlang_codegen_allocate"), []byte{0x00, 0x00}),
			concat(name("binlang_codegen_generate"), []byte{0x00, 0x01}),
		)),
		section(10, vec(
			concat(uleb(uint32(len(allocateBody))), allocateBody),
			concat(uleb(uint32(len(generateBody))), generateBody),
		)),
		section(11, vec(concat(
			[]byte{0x00, 0x41}, sleb(dataOffset), []byte{0x0B},
			uleb(uint32(len(frame))), frame,
		))),
	)
}

func request() *protocol.Request {
	return &protocol.Request{
		Version:   protocol.Version,
		Language:  "test",
		Namespace: "schema",
	}
}

func TestRun(t *testing.T) {
	bin := testPlugin(t, &protocol.Response{
		Files: []protocol.OutputFile{
			{Path: []string{"out.txt"}, Content: "hello"},
		},
	}, 0)

	resp, err := plugin.Run(context.Background(), bin, request())
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 1, len(resp.Files))
	testutil.ExpectSliceEq(t, []string{"out.txt"}, resp.Files[0].Path)
	testutil.ExpectEq(t, "hello", resp.Files[0].Content)
}

func TestRunPluginError(t *testing.T) {
	bin := testPlugin(t, &protocol.Response{Error: "unsupported schema\n"}, 1)

	_, err := plugin.Run(context.Background(), bin, request())
	testutil.AssertError(t, err)
	testutil.ExpectTrue(t, errors.Is(err, plugin.ErrPluginFailed))
	testutil.ExpectEq(t, "plugin failed: unsupported schema", err.Error())
}

func TestRunInvalidModule(t *testing.T) {
	_, err := plugin.Run(context.Background(), []byte("not wasm"), request())
	testutil.AssertError(t, err)
	testutil.ExpectContains(t, err.Error(), "compiling plugin")
}

func TestRunMissingExports(t *testing.T) {
	empty := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	_, err := plugin.Run(context.Background(), empty, request())
	testutil.AssertError(t, err)
	testutil.ExpectTrue(t, errors.Is(err, plugin.ErrMissingExport))
}

func TestLocate(t *testing.T) {
	empty := t.TempDir()
	withPlugin := t.TempDir()
	decoy := t.TempDir()

	want := filepath.Join(withPlugin, "binlang-codegen-go.wasm")
	testutil.AssertNoError(t, os.WriteFile(want, []byte{}, 0o644))
	testutil.AssertNoError(t, os.Mkdir(filepath.Join(decoy, "binlang-codegen-go.wasm"), 0o755))

	searchPath := empty + string(filepath.ListSeparator) +
		decoy + string(filepath.ListSeparator) +
		withPlugin

	got, err := plugin.Locate("go", searchPath)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, want, got)

	_, err = plugin.Locate("rust", searchPath)
	testutil.ExpectTrue(t, errors.Is(err, plugin.ErrNotFound))

	t.Setenv(plugin.PathEnv, withPlugin)
	got, err = plugin.Locate("go", "")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, want, got)

	t.Setenv(plugin.PathEnv, "")
	_, err = plugin.Locate("go", "")
	testutil.ExpectTrue(t, errors.Is(err, plugin.ErrNoPluginPath))
}

func TestFileName(t *testing.T) {
	testutil.ExpectEq(t, "binlang-codegen-go.wasm", plugin.FileName("go"))
}
