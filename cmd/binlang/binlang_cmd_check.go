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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxleiko/binlang"
)

type cmdCheck struct {
	*cli
	floatTypes bool
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check FILE...",
		summary: "Report errors and warnings without generating code",
		args:    cobra.MinimumNArgs(1),
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.floatTypes, "float-types", false, "Allow f32 and f64 fields")
}

func (cmd *cmdCheck) run(_ context.Context, argv []string) int {
	diags := &diagPrinter{w: cmd.stderr}
	exitCode := 0
	for _, path := range argv {
		res, ok := cmd.compileFile(path, diags, binlang.WithFloatTypes(cmd.floatTypes))
		if !ok {
			exitCode = 1
			continue
		}
		cmd.logger.Info("schema ok", "path", path, "types", len(res.Order))
	}
	return exitCode
}
