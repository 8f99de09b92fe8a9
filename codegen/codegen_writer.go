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

package codegen

import (
	"fmt"
	"io"
	"strings"
)

// writer emits indented lines. The first write error is kept and later
// writes are dropped.
type writer struct {
	w      io.Writer
	indent int
	err    error
}

func (e *writer) write(s string) {
	if e.err != nil {
		return
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		e.err = err
	}
}

func (e *writer) line(s string) {
	if indent := strings.Repeat("  ", e.indent); indent != "" {
		e.write(indent)
	}
	e.write(s)
	e.write("\n")
}

func (e *writer) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *writer) blank() {
	e.write("\n")
}

// block writes open, runs body one level deeper, then writes end.
func (e *writer) block(open, end string, body func()) {
	e.line(open)
	e.indent++
	body()
	e.indent--
	e.line(end)
}
