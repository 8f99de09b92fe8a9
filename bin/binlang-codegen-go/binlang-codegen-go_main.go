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

//go:build !tinygo.wasm

package main

import (
	"log"
	"os"

	"github.com/maxleiko/binlang"
	"github.com/maxleiko/binlang/codegen"
	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/internal/plugin/protocol"
)

// Run natively, the plugin compiles a schema itself and prints the
// generated Go source.
func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		log.Fatalf("usage: %s SCHEMA", os.Args[0])
	}
	schemaPath := args[0]

	src, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatalf("ReadFile(%q): %v", schemaPath, err)
	}
	compiled, err := binlang.Compile(binlang.Source{Path: schemaPath, Content: src})
	if err != nil {
		log.Fatal(err)
	}

	c, err := newCodegen(&protocol.Request{
		Version:   protocol.Version,
		Language:  "go",
		Namespace: codegen.NamespaceFromPath(schemaPath),
		Schema:    compiler.Describe(compiled),
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := c.emitSchema(); err != nil {
		log.Fatal(err)
	}
	if _, err := os.Stdout.Write(c.output); err != nil {
		log.Fatal(err)
	}
}
