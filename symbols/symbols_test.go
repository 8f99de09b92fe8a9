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

package symbols_test

import (
	"fmt"
	"testing"

	"github.com/maxleiko/binlang/internal/testutil"
	"github.com/maxleiko/binlang/symbols"
)

func TestInsertIsIdempotent(t *testing.T) {
	table := symbols.NewTable()
	a := table.Insert("hello")
	b := table.Insert("hello")
	testutil.ExpectEq(t, a, b)
	testutil.ExpectEq(t, 1, table.Len())
	testutil.ExpectEq(t, "hello", table.Get(a))
}

func TestFindBeforeInsert(t *testing.T) {
	table := symbols.NewTable()
	_, ok := table.Find("missing")
	testutil.ExpectFalse(t, ok)

	sym := table.Insert("missing")
	found, ok := table.Find("missing")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, sym, found)
}

func TestDenseIds(t *testing.T) {
	table := symbols.NewTable()
	testutil.ExpectEq(t, symbols.Symbol(0), table.Insert(""))
	testutil.ExpectEq(t, symbols.Symbol(1), table.Insert("u8"))
	testutil.ExpectEq(t, symbols.Symbol(2), table.Insert("u16"))
	testutil.ExpectEq(t, symbols.Symbol(1), table.Insert("u8"))

	var got []string
	for sym, text := range table.All() {
		got = append(got, fmt.Sprintf("%d=%s", sym, text))
	}
	testutil.ExpectSliceEq(t, []string{"0=", "1=u8", "2=u16"}, got)
}

func TestManyDistinctStrings(t *testing.T) {
	table := symbols.NewTable()
	const n = 50_000
	syms := make([]symbols.Symbol, n)
	for ii := range n {
		syms[ii] = table.Insert(fmt.Sprintf("name_%d", ii))
	}
	testutil.ExpectEq(t, n, table.Len())

	seen := make(map[symbols.Symbol]struct{}, n)
	for ii, sym := range syms {
		if _, dup := seen[sym]; dup {
			t.Fatalf("symbol %d assigned twice", sym)
		}
		seen[sym] = struct{}{}
		testutil.ExpectEq(t, fmt.Sprintf("name_%d", ii), table.Get(sym))
	}

	for range 10_000 {
		testutil.ExpectEq(t, syms[42], table.Insert("name_42"))
	}
	testutil.ExpectEq(t, n, table.Len())
}

func TestGetInvalidSymbolPanics(t *testing.T) {
	table := symbols.NewTable()
	table.Insert("only")

	defer func() {
		testutil.ExpectTrue(t, recover() != nil)
	}()
	table.Get(symbols.Symbol(7))
}
