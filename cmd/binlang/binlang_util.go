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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"

	"github.com/maxleiko/binlang"
	"github.com/maxleiko/binlang/compiler"
)

func readSource(path string) (binlang.Source, error) {
	var (
		content []byte
		err     error
	)
	if path == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return binlang.Source{}, err
	}
	return binlang.Source{Path: path, Content: content}, nil
}

// compileFile reads and compiles one schema, printing its diagnostics.
func (c *cli) compileFile(
	path string,
	diags *diagPrinter,
	opts ...binlang.Option,
) (*compiler.CompileResult, bool) {
	src, err := readSource(path)
	if err != nil {
		diags.printError(err)
		return nil, false
	}
	opts = append([]binlang.Option{binlang.WithLogger(c.logger)}, opts...)
	res, err := binlang.Compile(src, opts...)
	if err != nil {
		diags.printError(err)
		return nil, false
	}
	diags.print(path, binlang.Warnings(src, res))
	return res, true
}

// diagPrinter writes diagnostics to stderr. Concurrent compilations share
// one printer, so each file's diagnostics stay together.
type diagPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *diagPrinter) print(path string, diags []binlang.Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, diag := range diags {
		var code string
		switch diag.Severity {
		case binlang.SeverityWarning:
			code = color.YellowString("W%d", diag.Code)
		default:
			code = color.RedString("E%d", diag.Code)
		}
		fmt.Fprintf(p.w, "%s:%d:%d: %s: %s\n", path, diag.Line, diag.Column, code, diag.Message)
	}
}

func (p *diagPrinter) warnings(path string, diags []binlang.Diagnostic) {
	p.print(path, diags)
}

// printError reports err, which may join the failures of many files.
func (p *diagPrinter) printError(err error) {
	switch err := err.(type) {
	case *binlang.FileError:
		p.print(err.Path, err.Diagnostics)
		return
	case interface{ Unwrap() []error }:
		for _, err := range err.Unwrap() {
			p.printError(err)
		}
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, err)
}

// writeFile creates the parent directories of path as needed.
func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
