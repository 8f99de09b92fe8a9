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

// Package binlang compiles schema files into C declarations and read
// functions. Each file is compiled on its own; GenerateAll runs many
// files concurrently.
package binlang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/maxleiko/binlang/codegen"
	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/syntax"
)

// Source is one schema file. Path is used for diagnostics and to derive
// the output namespace; the file is never read from disk.
type Source struct {
	Path    string
	Content []byte
}

type Option interface {
	apply(*options)
}

type option func(*options)

func (f option) apply(opts *options) { f(opts) }

type options struct {
	logger      *slog.Logger
	floatTypes  bool
	namespace   string
	parallelism int
	onWarnings  func(path string, diags []Diagnostic)
}

func newOptions(opts []Option) *options {
	o := &options{parallelism: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}

func WithLogger(logger *slog.Logger) Option {
	return option(func(opts *options) {
		opts.logger = logger
	})
}

func WithFloatTypes(enabled bool) Option {
	return option(func(opts *options) {
		opts.floatTypes = enabled
	})
}

// WithNamespace overrides the namespace derived from each source path.
func WithNamespace(namespace string) Option {
	return option(func(opts *options) {
		opts.namespace = namespace
	})
}

// WithParallelism bounds how many files GenerateAll compiles at once.
// The default is GOMAXPROCS.
func WithParallelism(n int) Option {
	return option(func(opts *options) {
		opts.parallelism = n
	})
}

// WithWarnings registers a callback for the warnings of each file that
// compiles successfully. GenerateAll may call it concurrently.
func WithWarnings(fn func(path string, diags []Diagnostic)) Option {
	return option(func(opts *options) {
		opts.onWarnings = fn
	})
}

// Compile parses and resolves src and computes its emission order. Any
// syntax, resolution or ordering error is reported as a *FileError and
// no result is returned.
func Compile(src Source, opts ...Option) (*compiler.CompileResult, error) {
	return compile(src, newOptions(opts))
}

func compile(src Source, o *options) (*compiler.CompileResult, error) {
	log := o.logger.With("path", src.Path)
	log.Debug("compiling schema", "bytes", len(src.Content))

	parsed, err := syntax.Parse(src.Content)
	if err != nil {
		return nil, newFileError(src, []error{err})
	}
	result := compiler.Compile(
		parsed,
		compiler.WithLogger(log),
		compiler.WithFloatTypes(o.floatTypes),
	)
	if len(result.Errors) > 0 {
		errs := make([]error, 0, len(result.Errors))
		for _, err := range result.Errors {
			errs = append(errs, err)
		}
		return nil, newFileError(src, errs)
	}
	log.Debug("compiled schema", "types", len(result.Order), "warnings", len(result.Warnings))
	if o.onWarnings != nil && len(result.Warnings) > 0 {
		o.onWarnings(src.Path, Warnings(src, &result))
	}
	return &result, nil
}

// Generate compiles src and emits its C header and source.
func Generate(src Source, opts ...Option) (*codegen.Output, error) {
	return generate(src, newOptions(opts))
}

func generate(src Source, o *options) (*codegen.Output, error) {
	result, err := compile(src, o)
	if err != nil {
		return nil, err
	}
	genOpts := []codegen.Option{
		codegen.WithSourcePath(src.Path),
		codegen.WithLogger(o.logger.With("path", src.Path)),
	}
	if o.namespace != "" {
		genOpts = append(genOpts, codegen.WithNamespace(o.namespace))
	}
	out, err := codegen.GenerateC(result, genOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}
	return out, nil
}

// GenerateAll runs Generate for every source concurrently. The returned
// slice is parallel to srcs; a file that fails has a nil entry, and every
// failure is included in the joined error. A file whose namespace was
// already produced by an earlier file also fails, since their outputs
// would overwrite each other.
func GenerateAll(ctx context.Context, srcs []Source, opts ...Option) ([]*codegen.Output, error) {
	o := newOptions(opts)
	outputs := make([]*codegen.Output, len(srcs))
	errs := make([]error, len(srcs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for ii, src := range srcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outputs[ii], errs[ii] = generate(src, o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	for ii, out := range outputs {
		if out == nil {
			continue
		}
		if prev, ok := seen[out.Namespace]; ok {
			errs = append(errs, fmt.Errorf(
				"%w: %q is generated by both %s and %s",
				ErrNamespaceCollision, out.Namespace, prev, srcs[ii].Path,
			))
			outputs[ii] = nil
			continue
		}
		seen[out.Namespace] = srcs[ii].Path
	}
	return outputs, errors.Join(errs...)
}
