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

// Package protocol defines the messages exchanged between binlang and a
// code generator plugin. Both sides link it: the host in
// internal/plugin, guests under bin/.
//
// Each message is a frame: a 4-byte little-endian length, counting the
// length itself, followed by a JSON document.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/maxleiko/binlang/compiler"
)

const Version = 1

var (
	ErrFrame      = errors.New("protocol: malformed frame")
	ErrOutputPath = errors.New("protocol: invalid output path")
)

type Request struct {
	Version   int                  `json:"version"`
	Language  string               `json:"language"`
	Namespace string               `json:"namespace"`
	Schema    *compiler.SchemaDesc `json:"schema"`
	Options   map[string]string    `json:"options,omitempty"`
}

// Response carries either output files or a non-empty Error.
type Response struct {
	Files []OutputFile `json:"files,omitempty"`
	Error string       `json:"error,omitempty"`
}

type OutputFile struct {
	Path    []string `json:"path"`
	Content string   `json:"content"`
}

// Encode frames the JSON encoding of v.
func Encode(v any) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if uint64(len(doc)) > math.MaxUint32-4 {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum", ErrFrame, len(doc))
	}
	buf := make([]byte, 4, 4+len(doc))
	binary.LittleEndian.PutUint32(buf, uint32(4+len(doc)))
	return append(buf, doc...), nil
}

// FrameLen reads the total length of the frame starting at buf.
func FrameLen(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("%w: missing length", ErrFrame)
	}
	n := binary.LittleEndian.Uint32(buf)
	if n < 4 {
		return 0, fmt.Errorf("%w: length %d is shorter than its header", ErrFrame, n)
	}
	return n, nil
}

// Decode parses one frame from buf into v. Bytes after the frame are
// ignored.
func Decode(buf []byte, v any) error {
	n, err := FrameLen(buf)
	if err != nil {
		return err
	}
	if uint64(n) > uint64(len(buf)) {
		return fmt.Errorf("%w: length %d exceeds buffer (%d bytes)", ErrFrame, n, len(buf))
	}
	if err := json.Unmarshal(buf[4:n], v); err != nil {
		return fmt.Errorf("%w: %v", ErrFrame, err)
	}
	return nil
}

// Join validates file's path component by component and returns it
// joined under dir.
func (file *OutputFile) Join(dir string) (string, error) {
	parts := file.Path
	if len(parts) == 0 {
		return "", fmt.Errorf("%w %q: empty", ErrOutputPath, parts)
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("%w %q: bad path component %q", ErrOutputPath, parts, part)
		}
		if filepath.IsAbs(part) {
			return "", fmt.Errorf("%w %q: absolute path component %q", ErrOutputPath, parts, part)
		}
		if strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w %q: component %q contains a separator", ErrOutputPath, parts, part)
		}
	}
	return filepath.Join(append([]string{dir}, parts...)...), nil
}
