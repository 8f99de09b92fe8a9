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
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxleiko/binlang"
)

type cmdGen struct {
	*cli
	outDir      string
	namespace   string
	floatTypes  bool
	parallelism int
}

func (*cmdGen) help() *commandHelp {
	return &commandHelp{
		usage:   "gen [-o DIR] FILE...",
		summary: "Generate a C header and source file for each schema",
		args:    cobra.MinimumNArgs(1),
	}
}

func (cmd *cmdGen) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.outDir, "output", "o", ".", "Directory to write generated files into")
	flags.StringVar(&cmd.namespace, "namespace", "", "Namespace for generated names (default: schema file name)")
	flags.BoolVar(&cmd.floatTypes, "float-types", false, "Allow f32 and f64 fields")
	flags.IntVarP(&cmd.parallelism, "jobs", "j", 0, "Number of schemas to compile at once (default: GOMAXPROCS)")
}

func (cmd *cmdGen) run(ctx context.Context, argv []string) int {
	diags := &diagPrinter{w: cmd.stderr}

	srcs := make([]binlang.Source, 0, len(argv))
	for _, path := range argv {
		src, err := readSource(path)
		if err != nil {
			diags.printError(err)
			return 1
		}
		srcs = append(srcs, src)
	}

	opts := []binlang.Option{
		binlang.WithLogger(cmd.logger),
		binlang.WithFloatTypes(cmd.floatTypes),
		binlang.WithNamespace(cmd.namespace),
		binlang.WithWarnings(diags.warnings),
	}
	if cmd.parallelism > 0 {
		opts = append(opts, binlang.WithParallelism(cmd.parallelism))
	}
	outputs, err := binlang.GenerateAll(ctx, srcs, opts...)
	if err != nil {
		diags.printError(err)
		return 1
	}

	for _, out := range outputs {
		for name, content := range map[string]string{
			out.HeaderName: out.Header,
			out.SourceName: out.Source,
		} {
			path := filepath.Join(cmd.outDir, name)
			if err := writeFile(path, []byte(content)); err != nil {
				diags.printError(err)
				return 1
			}
			cmd.logger.Info("wrote file", "path", path)
		}
	}
	return 0
}
