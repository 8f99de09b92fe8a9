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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/maxleiko/binlang"
	"github.com/maxleiko/binlang/codegen"
	"github.com/maxleiko/binlang/compiler"
)

type cmdDump struct {
	*cli
	outPath    string
	floatTypes bool
}

type dumpDoc struct {
	Namespace           string `yaml:"namespace"`
	compiler.SchemaDesc `yaml:",inline"`
}

func (*cmdDump) help() *commandHelp {
	return &commandHelp{
		usage:   "dump [-o FILE] FILE",
		summary: "Print the resolved types in emission order as YAML",
		args:    cobra.ExactArgs(1),
	}
}

func (cmd *cmdDump) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.outPath, "output", "o", "", "Write to FILE instead of stdout")
	flags.BoolVar(&cmd.floatTypes, "float-types", false, "Allow f32 and f64 fields")
}

func (cmd *cmdDump) run(_ context.Context, argv []string) int {
	diags := &diagPrinter{w: cmd.stderr}
	path := argv[0]
	res, ok := cmd.compileFile(path, diags, binlang.WithFloatTypes(cmd.floatTypes))
	if !ok {
		return 1
	}

	doc := dumpDoc{
		Namespace:  codegen.NamespaceFromPath(path),
		SchemaDesc: *compiler.Describe(res),
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		diags.printError(err)
		return 1
	}
	if err := enc.Close(); err != nil {
		diags.printError(err)
		return 1
	}

	if cmd.outPath == "" {
		if _, err := cmd.stdout.Write(buf.Bytes()); err != nil {
			diags.printError(err)
			return 1
		}
		return 0
	}
	if err := writeFile(cmd.outPath, buf.Bytes()); err != nil {
		diags.printError(err)
		return 1
	}
	return 0
}
