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

package binlang

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maxleiko/binlang/compiler"
	"github.com/maxleiko/binlang/syntax"
)

var ErrNamespaceCollision = errors.New("binlang: namespace collision")

type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return fmt.Sprintf("Severity(%d)", uint8(s))
}

// Diagnostic is an error or warning located by 1-based line and column.
type Diagnostic struct {
	Severity Severity
	Code     uint32
	Message  string
	Line     int
	Column   int
}

func (d Diagnostic) String() string {
	prefix := "E"
	if d.Severity == SeverityWarning {
		prefix = "W"
	}
	return fmt.Sprintf("%d:%d: %s%d: %s", d.Line, d.Column, prefix, d.Code, d.Message)
}

// FileError collects every error reported for one source file.
type FileError struct {
	Path        string
	Diagnostics []Diagnostic

	errs []error
}

func (err *FileError) Error() string {
	var sb strings.Builder
	for ii, diag := range err.Diagnostics {
		if ii > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(err.Path)
		sb.WriteByte(':')
		sb.WriteString(diag.String())
	}
	return sb.String()
}

// Unwrap returns the underlying *syntax.Error or *compiler.Error values.
func (err *FileError) Unwrap() []error {
	return err.errs
}

func newFileError(src Source, errs []error) *FileError {
	fileErr := &FileError{Path: src.Path, errs: errs}
	for _, err := range errs {
		fileErr.Diagnostics = append(fileErr.Diagnostics, diagnose(src.Content, err))
	}
	return fileErr
}

func diagnose(content []byte, err error) Diagnostic {
	var (
		syntaxErr   *syntax.Error
		compilerErr *compiler.Error
	)
	switch {
	case errors.As(err, &syntaxErr):
		line, col := syntax.Position(content, syntaxErr.Span().Start())
		return Diagnostic{
			Code:    syntaxErr.Code(),
			Message: syntaxErr.Message(),
			Line:    line,
			Column:  col,
		}
	case errors.As(err, &compilerErr):
		line, col := syntax.Position(content, compilerErr.Span().Start())
		return Diagnostic{
			Code:    compilerErr.Code(),
			Message: compilerErr.Message(),
			Line:    line,
			Column:  col,
		}
	}
	return Diagnostic{Message: err.Error(), Line: 1, Column: 1}
}

// Warnings locates the warnings of a successful compilation in src.
func Warnings(src Source, res *compiler.CompileResult) []Diagnostic {
	var diags []Diagnostic
	for _, warn := range res.Warnings {
		line, col := syntax.Position(src.Content, warn.Span().Start())
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     warn.Code(),
			Message:  warn.Message(),
			Line:     line,
			Column:   col,
		})
	}
	return diags
}
