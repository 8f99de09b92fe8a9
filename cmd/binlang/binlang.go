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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
	args    cobra.PositionalArgs
}

// cli holds what every subcommand shares: output streams and the logger
// configured from the global flags.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	logger *slog.Logger

	logLevel  string
	logFormat string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	getenv func(string) string,
) int {
	c := &cli{
		stdout: stdout,
		stderr: stderr,
		getenv: getenv,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	exitCode := 0

	rootCmd := &cobra.Command{
		Use:           "binlang [options] COMMAND",
		Short:         "Compile binary wire format schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		fmt.Fprint(stderr, cmd.UsageString())
		exitCode = 1
		return nil
	}
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		logger, err := c.newLogger()
		if err != nil {
			return err
		}
		c.logger = logger
		return nil
	}

	globals := rootCmd.PersistentFlags()
	globals.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error or silent (default $BINLANG_LOG, else warn)")
	globals.StringVar(&c.logFormat, "log-format", "text", "Log format: text or json")

	commands := []command{
		&cmdGen{cli: c},
		&cmdCheck{cli: c},
		&cmdDump{cli: c},
		&cmdTypes{cli: c},
		&cmdDecode{cli: c},
		&cmdCodegen{cli: c},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			Args:  help.args,
			RunE: func(cobraCmd *cobra.Command, argv []string) error {
				exitCode = cmd.run(cobraCmd.Context(), argv)
				return nil
			},
		}
		cmd.flags(cobraCmd.Flags())
		rootCmd.AddCommand(cobraCmd)
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

var errUsage = errors.New("invalid usage")
