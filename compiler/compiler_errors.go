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

package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maxleiko/binlang/syntax"
)

type Error struct {
	code    uint32
	message string
	span    syntax.Span
	names   []string
	cause   error
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	return fmt.Sprintf("E%d: %s", err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

func (err *Error) Span() syntax.Span {
	return err.span
}

// Names lists the schema names the error is about, for diagnostics that
// want to point at more than one place.
func (err *Error) Names() []string {
	return err.names
}

func (err *Error) Unwrap() error {
	return err.cause
}

func errUndefinedType(name string, span syntax.Span) error {
	return &Error{
		code:    3000,
		message: fmt.Sprintf("Use of undefined type '%s'", name),
		span:    span,
		names:   []string{name},
	}
}

func errUnknownLenField(msg, field string, span syntax.Span) error {
	return &Error{
		code: 3001,
		message: fmt.Sprintf(
			"Referenced field '%s' is unknown in message '%s'",
			field, msg,
		),
		span:  span,
		names: []string{msg, field},
	}
}

func errDuplicateDecl(name string, span syntax.Span) error {
	return &Error{
		code: 3002,
		message: fmt.Sprintf(
			"Declaration of '%s' conflicts with an earlier declaration",
			name,
		),
		span:  span,
		names: []string{name},
	}
}

func errNativeConflict(name string, span syntax.Span) error {
	return &Error{
		code: 3003,
		message: fmt.Sprintf(
			"Declaration of '%s' conflicts with a native type",
			name,
		),
		span:  span,
		names: []string{name},
	}
}

func errDuplicateField(msg, field string, span syntax.Span) error {
	return &Error{
		code:    3004,
		message: fmt.Sprintf("Duplicate field '%s' in message '%s'", field, msg),
		span:    span,
		names:   []string{msg, field},
	}
}

func errLenFieldNotInteger(array, field, fieldType string, span syntax.Span) error {
	return &Error{
		code: 3005,
		message: fmt.Sprintf(
			"Length field '%s' of array '%s' must have an integer type, got '%s'",
			field, array, fieldType,
		),
		span:  span,
		names: []string{array, field},
	}
}

func errLenFieldShared(field, prevArray, array string, span syntax.Span) error {
	return &Error{
		code: 3006,
		message: fmt.Sprintf(
			"Length field '%s' of array '%s' is already associated with array '%s'",
			field, array, prevArray,
		),
		span:  span,
		names: []string{field, prevArray, array},
	}
}

func errFloatDisabled(name string, span syntax.Span) error {
	return &Error{
		code: 3007,
		message: fmt.Sprintf(
			"Floating-point type '%s' requires float types to be enabled",
			name,
		),
		span:  span,
		names: []string{name},
	}
}

// CycleError reports message types that nest each other, directly or
// through intermediate messages, and so have no emission order.
type CycleError struct {
	cycle   []string
	pending []string
}

func (err *CycleError) Error() string {
	return "cyclic dependency: " + formatCycle(err.cycle)
}

// Cycle names one dependency cycle. Each type contains the next one, and
// the last contains the first.
func (err *CycleError) Cycle() []string {
	return err.cycle
}

// Pending names every type that could not be ordered, in declaration
// order. It includes types that only depend on a cycle.
func (err *CycleError) Pending() []string {
	return err.pending
}

func errCycle(cycle, pending []string, span syntax.Span) error {
	return &Error{
		code: 3100,
		message: fmt.Sprintf(
			"Cyclic dependency between message types: %s",
			formatCycle(cycle),
		),
		span:  span,
		names: cycle,
		cause: &CycleError{
			cycle:   cycle,
			pending: pending,
		},
	}
}

func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ") + " -> " + cycle[0]
}

// AsCycleError returns the *CycleError in err's chain, if any.
func AsCycleError(err error) (*CycleError, bool) {
	var cycleErr *CycleError
	if errors.As(err, &cycleErr) {
		return cycleErr, true
	}
	return nil, false
}
