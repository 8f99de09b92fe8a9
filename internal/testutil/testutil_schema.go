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

package testutil

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"testing"

	"github.com/maxleiko/binlang/syntax"
)

// Diagnostic describes one registered error or warning code.
type Diagnostic struct {
	Key     string
	Code    uint32
	Message string
	Pattern *regexp.Regexp
}

func LoadSchemaErrors(testdata fs.FS) (map[string]*Diagnostic, error) {
	return loadDiagnostics(testdata, "diagnostics/schema_errors.json", "schema error")
}

func LoadSchemaWarnings(testdata fs.FS) (map[string]*Diagnostic, error) {
	return loadDiagnostics(testdata, "diagnostics/schema_warnings.json", "schema warning")
}

func loadDiagnostics(testdata fs.FS, path, what string) (map[string]*Diagnostic, error) {
	type raw struct {
		Code    uint32 `json:"code"`
		Message string `json:"message"`
		Pattern string `json:"message_pattern"`
	}

	jsonData, err := fs.ReadFile(testdata, path)
	if err != nil {
		return nil, err
	}

	var rawDiags map[string]raw
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.UseNumber()
	if err := decoder.Decode(&rawDiags); err != nil {
		return nil, err
	}

	out := make(map[string]*Diagnostic, len(rawDiags))
	codes := make(map[uint32]struct{}, len(rawDiags))
	for key, raw := range rawDiags {
		if raw.Code == 0 {
			return nil, fmt.Errorf("%s %q has no code", what, key)
		}
		if _, conflict := codes[raw.Code]; conflict {
			return nil, fmt.Errorf("duplicate %s code %d", what, raw.Code)
		}
		codes[raw.Code] = struct{}{}

		var pattern *regexp.Regexp
		if raw.Pattern != "" {
			pattern, err = regexp.Compile("(?i)" + raw.Pattern)
			if err != nil {
				return nil, err
			}
		}
		out[key] = &Diagnostic{
			Key:     key,
			Code:    raw.Code,
			Message: raw.Message,
			Pattern: pattern,
		}
	}

	return out, nil
}

type ExpectedDiagnostic struct {
	Diagnostic
	Span syntax.Span
}

// LoadExpected reads the "errors" (or "warnings") list of an expect_err.json
// file, sorted by span start and then code.
func LoadExpected(
	t *testing.T,
	registry map[string]*Diagnostic,
	testdata fs.FS,
	jsonPath string,
	listKey string,
) []*ExpectedDiagnostic {
	t.Helper()

	jsonData, err := fs.ReadFile(testdata, jsonPath)
	if err != nil {
		t.Fatal(err)
	}

	type entry struct {
		Name string `json:"name"`
		Span struct {
			Start uint32 `json:"start"`
			Len   uint32 `json:"len"`
		} `json:"span"`
	}

	var raw map[string][]entry
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		t.Fatal(err)
	}

	var out []*ExpectedDiagnostic
	for _, e := range raw[listKey] {
		diag, ok := registry[e.Name]
		if !ok {
			t.Fatalf("unknown diagnostic name %q", e.Name)
		}
		out = append(out, &ExpectedDiagnostic{
			Diagnostic: *diag,
			Span:       syntax.NewSpan(e.Span.Start, e.Span.Len),
		})
	}

	slices.SortFunc(out, func(a, b *ExpectedDiagnostic) int {
		if x := cmp.Compare(a.Span.Start(), b.Span.Start()); x != 0 {
			return x
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}
