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

// Command tinygo_build compiles a code generator plugin to WebAssembly:
//
//	go run ./internal/build -output=plugins/binlang-codegen-go.wasm
//
// The module is built as a WASI reactor, so the host can call its
// exports after _initialize without running main.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

var (
	tinygo  = flag.String("tinygo", "tinygo", "TinyGo executable")
	output  = flag.String("output", "binlang-codegen-go.wasm", "Path of the built plugin")
	chdir   = flag.String("chdir", "bin/binlang-codegen-go", "Directory of the plugin's Go module")
	wasmOpt = flag.String("wasm-opt", "", "wasm-opt executable (default: TinyGo's choice)")
)

func tinygoArgs(outPath string, extra []string) []string {
	args := []string{
		"build",
		"-target=wasi",
		"-buildmode=c-shared",
		"-no-debug",
		"-o=" + outPath,
	}
	args = append(args, extra...)
	if len(extra) == 0 {
		args = append(args, ".")
	}
	return args
}

func main() {
	flag.Parse()
	pwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	outPath := *output
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(pwd, outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cmd := exec.Command(*tinygo, tinygoArgs(outPath, flag.Args())...)
	cmd.Env = os.Environ()
	if *wasmOpt != "" {
		cmd.Env = append(cmd.Env, "WASMOPT="+*wasmOpt)
	}
	cmd.Dir = filepath.Join(pwd, *chdir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
