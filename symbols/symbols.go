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

// Package symbols interns identifier text into small dense ids.
package symbols

import (
	"fmt"
	"iter"
)

// Symbol identifies one piece of interned text within a single Table.
type Symbol uint32

// Table deduplicates strings. Ids are assigned densely in insertion order,
// starting at zero. A Table is not safe for concurrent mutation.
type Table struct {
	strs []string
	ids  map[string]Symbol
}

func NewTable() *Table {
	return &Table{
		ids: make(map[string]Symbol),
	}
}

// Insert returns the symbol for text, interning it on first use.
func (t *Table) Insert(text string) Symbol {
	if sym, ok := t.ids[text]; ok {
		return sym
	}
	sym := Symbol(len(t.strs))
	t.strs = append(t.strs, text)
	t.ids[text] = sym
	return sym
}

// Get returns the text of sym. It panics if sym was not produced by t.
func (t *Table) Get(sym Symbol) string {
	if int(sym) >= len(t.strs) {
		panic(fmt.Sprintf("symbols: invalid symbol %d (table has %d entries)", sym, len(t.strs)))
	}
	return t.strs[sym]
}

func (t *Table) Find(text string) (Symbol, bool) {
	sym, ok := t.ids[text]
	return sym, ok
}

func (t *Table) Len() int {
	return len(t.strs)
}

func (t *Table) All() iter.Seq2[Symbol, string] {
	return func(yield func(Symbol, string) bool) {
		for ii, text := range t.strs {
			if !yield(Symbol(ii), text) {
				return
			}
		}
	}
}
