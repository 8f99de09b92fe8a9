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
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxleiko/binlang"
	"github.com/maxleiko/binlang/compiler"
)

type cmdTypes struct {
	*cli
	floatTypes bool
}

func (*cmdTypes) help() *commandHelp {
	return &commandHelp{
		usage:   "types FILE",
		summary: "List declared types in emission order",
		args:    cobra.ExactArgs(1),
	}
}

func (cmd *cmdTypes) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.floatTypes, "float-types", false, "Allow f32 and f64 fields")
}

func (cmd *cmdTypes) run(_ context.Context, argv []string) int {
	diags := &diagPrinter{w: cmd.stderr}
	res, ok := cmd.compileFile(argv[0], diags, binlang.WithFloatTypes(cmd.floatTypes))
	if !ok {
		return 1
	}

	headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	tbl := table.New("#", "Name", "Kind", "Members").WithWriter(cmd.stdout)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)

	for ii, td := range compiler.Describe(res).Types {
		tbl.AddRow(ii+1, td.Name, td.Kind, members(td))
	}
	tbl.Print()
	return 0
}

func members(td compiler.TypeDesc) string {
	var parts []string
	for _, field := range td.Fields {
		if field.FoldedInto != "" {
			parts = append(parts, fmt.Sprintf("%s (len of %s)", field.Name, field.FoldedInto))
			continue
		}
		parts = append(parts, field.Name+": "+field.Type)
	}
	for _, flag := range td.Flags {
		parts = append(parts, fmt.Sprintf("%s@%d", flag.Name, flag.Offset))
	}
	return strings.Join(parts, ", ")
}
