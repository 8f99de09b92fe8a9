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

// Package plugin runs code generator plugins compiled to WebAssembly.
//
// A plugin exports its linear memory and two functions:
//
//	binlang_codegen_allocate(len u32) -> ptr u32
//	binlang_codegen_generate(request_ptr u32, response_ptr_ptr u32) -> rc u8
//
// The host allocates a buffer for the request frame, then calls generate,
// which stores the address of the response frame at response_ptr_ptr. A
// non-zero rc means the response describes an error.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/maxleiko/binlang/internal/plugin/protocol"
)

const (
	PathEnv = "BINLANG_CODEGEN_PLUGIN_PATH"

	exportAllocate = "binlang_codegen_allocate"
	exportGenerate = "binlang_codegen_generate"

	// 1 GiB
	defaultMemoryLimitPages = 16384
)

var (
	ErrNoPluginPath   = errors.New("no plugin path set, use --plugin-path= or $" + PathEnv)
	ErrNotFound       = errors.New("plugin not found")
	ErrMissingExport  = errors.New("plugin is missing a required export")
	ErrPluginFailed   = errors.New("plugin failed")
	ErrBadMemoryRange = errors.New("plugin returned an out-of-bounds pointer")
)

// FileName is the file name of the plugin for language.
func FileName(language string) string {
	return fmt.Sprintf("binlang-codegen-%s.wasm", language)
}

// Locate searches a colon-separated list of directories for the plugin
// implementing language. An empty searchPath falls back to $BINLANG_CODEGEN_PLUGIN_PATH.
func Locate(language, searchPath string) (string, error) {
	if searchPath == "" {
		searchPath = os.Getenv(PathEnv)
	}
	if searchPath == "" {
		return "", ErrNoPluginPath
	}
	basename := FileName(language)
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		pluginPath := filepath.Join(dir, basename)
		if info, err := os.Stat(pluginPath); err == nil && !info.IsDir() {
			return pluginPath, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not in plugin path %q", ErrNotFound, basename, searchPath)
}

type Option interface {
	apply(*options)
}

type option func(*options)

func (f option) apply(opts *options) { f(opts) }

type options struct {
	logger      *slog.Logger
	stderr      io.Writer
	memoryPages uint32
}

func WithLogger(logger *slog.Logger) Option {
	return option(func(opts *options) {
		opts.logger = logger
	})
}

// WithStderr receives anything the plugin writes to its standard error.
func WithStderr(w io.Writer) Option {
	return option(func(opts *options) {
		opts.stderr = w
	})
}

// WithMemoryLimitPages caps plugin memory, in 64 KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return option(func(opts *options) {
		opts.memoryPages = pages
	})
}

// Run instantiates the plugin module in wasmBin, sends it req, and
// returns its response. A response reporting an error is returned as
// ErrPluginFailed.
func Run(ctx context.Context, wasmBin []byte, req *protocol.Request, opts ...Option) (*protocol.Response, error) {
	o := &options{memoryPages: defaultMemoryLimitPages}
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.stderr == nil {
		o.stderr = io.Discard
	}

	requestBuf, err := protocol.Encode(req)
	if err != nil {
		return nil, err
	}

	runtimeConfig := wazero.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(o.memoryPages)
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, err
	}
	compiled, err := runtime.CompileModule(ctx, wasmBin)
	if err != nil {
		return nil, fmt.Errorf("compiling plugin: %w", err)
	}
	moduleConfig := wazero.NewModuleConfig().
		WithStderr(o.stderr).
		WithStartFunctions("_initialize")
	mod, err := runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiating plugin: %w", err)
	}
	o.logger.Debug("plugin instantiated", "language", req.Language, "request_bytes", len(requestBuf))

	allocate := mod.ExportedFunction(exportAllocate)
	if allocate == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, exportAllocate)
	}
	generate := mod.ExportedFunction(exportGenerate)
	if generate == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, exportGenerate)
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		return nil, fmt.Errorf("%w: memory", ErrMissingExport)
	}

	requestPtr, err := call32(ctx, allocate, uint64(len(requestBuf)))
	if err != nil {
		return nil, err
	}
	if !mem.Write(requestPtr, requestBuf) {
		return nil, fmt.Errorf("%w: request buffer at %#x", ErrBadMemoryRange, requestPtr)
	}
	responsePtrPtr, err := call32(ctx, allocate, 4)
	if err != nil {
		return nil, err
	}

	results, err := generate.Call(ctx, uint64(requestPtr), uint64(responsePtrPtr))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exportGenerate, err)
	}
	rc := uint8(results[0])

	responseBuf, err := readFrame(mem, responsePtrPtr)
	if err != nil {
		return nil, err
	}
	var response protocol.Response
	if err := protocol.Decode(responseBuf, &response); err != nil {
		return nil, err
	}
	o.logger.Debug("plugin returned", "rc", rc, "files", len(response.Files))

	if rc != 0 {
		msg := strings.TrimSpace(strings.ToValidUTF8(response.Error, "\uFFFD"))
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", rc)
		}
		return nil, fmt.Errorf("%w: %s", ErrPluginFailed, msg)
	}
	return &response, nil
}

func call32(ctx context.Context, fn api.Function, params ...uint64) (uint32, error) {
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fn.Definition().Name(), err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%s: returned %d results", fn.Definition().Name(), len(results))
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, fmt.Errorf("%s: allocation failed", fn.Definition().Name())
	}
	return ptr, nil
}

// readFrame copies the response frame out of plugin memory, since the
// memory is released when the runtime closes.
func readFrame(mem api.Memory, ptrPtr uint32) ([]byte, error) {
	ptr, ok := mem.ReadUint32Le(ptrPtr)
	if !ok {
		return nil, fmt.Errorf("%w: response pointer at %#x", ErrBadMemoryRange, ptrPtr)
	}
	header, ok := mem.Read(ptr, 4)
	if !ok {
		return nil, fmt.Errorf("%w: response at %#x", ErrBadMemoryRange, ptr)
	}
	n, err := protocol.FrameLen(header)
	if err != nil {
		return nil, err
	}
	buf, ok := mem.Read(ptr, n)
	if !ok {
		return nil, fmt.Errorf("%w: response of %d bytes at %#x", ErrBadMemoryRange, n, ptr)
	}
	return append([]byte(nil), buf...), nil
}
