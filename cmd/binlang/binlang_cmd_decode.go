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
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/maxleiko/binlang"
	"github.com/maxleiko/binlang/decode"
	"github.com/maxleiko/binlang/wire"
)

type cmdDecode struct {
	*cli
	typeName      string
	floatTypes    bool
	allowTrailing bool
	maxDepth      int
}

func (*cmdDecode) help() *commandHelp {
	return &commandHelp{
		usage:   "decode --type NAME SCHEMA DATA",
		summary: "Decode binary DATA ('-' for stdin) as a schema type and print it as YAML",
		args:    cobra.ExactArgs(2),
	}
}

func (cmd *cmdDecode) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.typeName, "type", "t", "", "Message or bitfield to decode (required)")
	flags.BoolVar(&cmd.floatTypes, "float-types", false, "Allow f32 and f64 fields")
	flags.BoolVar(&cmd.allowTrailing, "allow-trailing", false, "Ignore bytes after the decoded value")
	flags.IntVar(&cmd.maxDepth, "max-depth", 0, "Maximum nesting depth (default 1000)")
}

func (cmd *cmdDecode) run(_ context.Context, argv []string) int {
	diags := &diagPrinter{w: cmd.stderr}
	if cmd.typeName == "" {
		diags.printError(errors.New("no type selected (set --type=)"))
		return 1
	}
	res, ok := cmd.compileFile(argv[0], diags, binlang.WithFloatTypes(cmd.floatTypes))
	if !ok {
		return 1
	}

	var (
		data []byte
		err  error
	)
	if argv[1] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(argv[1])
	}
	if err != nil {
		diags.printError(err)
		return 1
	}

	opts := []decode.Option{decode.WithLogger(cmd.logger)}
	if cmd.maxDepth > 0 {
		opts = append(opts, decode.WithMaxDepth(cmd.maxDepth))
	}
	var value *decode.Value
	if cmd.allowTrailing {
		r := wire.NewReader(data)
		value, err = decode.NewDecoder(res.Registry, opts...).Read(r, cmd.typeName)
		if err == nil && r.Len() > 0 {
			cmd.logger.Warn("ignoring trailing data", "bytes", r.Len())
		}
	} else {
		value, err = decode.Decode(res.Registry, cmd.typeName, data, opts...)
	}
	if err != nil {
		diags.printError(err)
		return 1
	}

	enc := yaml.NewEncoder(cmd.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		diags.printError(err)
		return 1
	}
	if err := enc.Close(); err != nil {
		diags.printError(err)
		return 1
	}
	return 0
}
