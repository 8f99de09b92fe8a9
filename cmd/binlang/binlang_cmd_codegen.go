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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxleiko/binlang"
	"github.com/maxleiko/binlang/codegen"
	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/internal/plugin"
	"github.com/maxleiko/binlang/internal/plugin/protocol"
)

type cmdCodegen struct {
	*cli
	language   string
	outDir     string
	pluginPath string
	namespace  string
	floatTypes bool
	options    map[string]string
}

func (*cmdCodegen) help() *commandHelp {
	return &commandHelp{
		usage:   "codegen --language LANG -o DIR FILE",
		summary: "Generate code for another language with a WebAssembly plugin",
		args:    cobra.ExactArgs(1),
	}
}

func (cmd *cmdCodegen) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.language, "language", "l", "", "Target language; selects binlang-codegen-LANG.wasm (required)")
	flags.StringVarP(&cmd.outDir, "output", "o", "", "Directory to write generated files into (required)")
	flags.StringVar(&cmd.pluginPath, "plugin-path", "", "Colon-separated plugin directories (default $"+plugin.PathEnv+")")
	flags.StringVar(&cmd.namespace, "namespace", "", "Namespace for generated names (default: schema file name)")
	flags.BoolVar(&cmd.floatTypes, "float-types", false, "Allow f32 and f64 fields")
	flags.StringToStringVar(&cmd.options, "plugin-opt", nil, "Option passed to the plugin as KEY=VALUE")
}

func (cmd *cmdCodegen) run(ctx context.Context, argv []string) int {
	diags := &diagPrinter{w: cmd.stderr}
	switch {
	case cmd.language == "":
		diags.printError(errors.New("no language selected (set --language=)"))
		return 1
	case cmd.outDir == "":
		diags.printError(errors.New("no output directory specified (set --output=)"))
		return 1
	}

	schemaPath := argv[0]
	res, ok := cmd.compileFile(schemaPath, diags, binlang.WithFloatTypes(cmd.floatTypes))
	if !ok {
		return 1
	}
	namespace := cmd.namespace
	if namespace == "" {
		namespace = codegen.NamespaceFromPath(schemaPath)
	}

	searchPath := cmd.pluginPath
	if searchPath == "" {
		searchPath = cmd.getenv(plugin.PathEnv)
	}
	if searchPath == "" {
		diags.printError(plugin.ErrNoPluginPath)
		return 1
	}
	pluginPath, err := plugin.Locate(cmd.language, searchPath)
	if err != nil {
		diags.printError(err)
		return 1
	}
	pluginBin, err := os.ReadFile(pluginPath)
	if err != nil {
		diags.printError(err)
		return 1
	}
	cmd.logger.Debug("running plugin", "path", pluginPath)

	response, err := plugin.Run(ctx, pluginBin, &protocol.Request{
		Version:   protocol.Version,
		Language:  cmd.language,
		Namespace: namespace,
		Schema:    compiler.Describe(res),
		Options:   cmd.options,
	}, plugin.WithLogger(cmd.logger), plugin.WithStderr(cmd.stderr))
	if err != nil {
		diags.printError(err)
		return 1
	}

	if len(response.Files) == 0 {
		diags.printError(errors.New("plugin did not generate any output files"))
		return 1
	}
	// Validate every path before writing anything.
	paths := make([]string, len(response.Files))
	for ii := range response.Files {
		paths[ii], err = response.Files[ii].Join(cmd.outDir)
		if err != nil {
			diags.printError(err)
			return 1
		}
	}
	for ii, file := range response.Files {
		if err := writeFile(paths[ii], []byte(file.Content)); err != nil {
			diags.printError(err)
			return 1
		}
		cmd.logger.Info("wrote file", "path", paths[ii])
	}
	return 0
}
