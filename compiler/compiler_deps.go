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
	"io"
	"log/slog"
	"slices"

	"github.com/maxleiko/binlang/symbols"
)

// Order computes the emission order of a registry's declared types. Every
// message follows the messages it contains directly. Within each round
// of ready types, lower symbol ids (earlier declarations) come first.
//
// Arrays and bitfields add no ordering constraints. A set of messages that
// contain each other yields an error wrapping a *CycleError.
func Order(reg *Registry) ([]symbols.Symbol, error) {
	return order(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type depGraph struct {
	// deps[s] is the set of types s must follow, root included.
	deps map[symbols.Symbol][]symbols.Symbol

	// dependents[s] lists the types waiting on s.
	dependents map[symbols.Symbol][]symbols.Symbol
}

func newDepGraph(reg *Registry) *depGraph {
	g := &depGraph{
		deps:       make(map[symbols.Symbol][]symbols.Symbol, len(reg.decls)),
		dependents: make(map[symbols.Symbol][]symbols.Symbol),
	}
	for _, sym := range reg.decls {
		deps := []symbols.Symbol{reg.root}
		switch t := reg.types[sym].(type) {
		case *MessageType:
			for _, field := range t.Fields {
				if _, ok := reg.types[field.Type].(*MessageType); !ok {
					continue
				}
				if !slices.Contains(deps, field.Type) {
					deps = append(deps, field.Type)
				}
			}
		case *BitfieldType:
		default:
			panic("unreachable")
		}
		g.deps[sym] = deps
		for _, dep := range deps {
			g.dependents[dep] = append(g.dependents[dep], sym)
		}
	}
	return g
}

func order(reg *Registry, log *slog.Logger) ([]symbols.Symbol, error) {
	g := newDepGraph(reg)

	waiting := make(map[symbols.Symbol]int, len(g.deps))
	for sym, deps := range g.deps {
		waiting[sym] = len(deps)
	}

	out := make([]symbols.Symbol, 0, len(reg.decls))
	frontier := []symbols.Symbol{reg.root}
	for len(frontier) > 0 {
		slices.Sort(frontier)
		var next []symbols.Symbol
		for _, sym := range frontier {
			if sym != reg.root {
				out = append(out, sym)
			}
			for _, dependent := range g.dependents[sym] {
				waiting[dependent]--
				if waiting[dependent] == 0 {
					next = append(next, dependent)
				}
			}
			delete(waiting, sym)
		}
		if frontier[0] != reg.root {
			log.Debug("emission frontier", "types", names(reg, frontier))
		}
		frontier = next
	}

	if len(out) == len(reg.decls) {
		return out, nil
	}

	var pending []symbols.Symbol
	for _, sym := range reg.decls {
		if waiting[sym] > 0 {
			pending = append(pending, sym)
		}
	}
	cycle := findCycle(g, pending, waiting)
	span := reg.types[cycle[0]].(*MessageType).Span
	return nil, errCycle(names(reg, cycle), names(reg, pending), span)
}

// findCycle follows unscheduled dependencies from the first pending type
// until a type repeats. Every pending type has at least one pending
// dependency, so the walk always closes a cycle.
func findCycle(
	g *depGraph,
	pending []symbols.Symbol,
	waiting map[symbols.Symbol]int,
) []symbols.Symbol {
	onPath := make(map[symbols.Symbol]int)
	var path []symbols.Symbol
	sym := pending[0]
	for {
		if idx, seen := onPath[sym]; seen {
			return path[idx:]
		}
		onPath[sym] = len(path)
		path = append(path, sym)

		deps := slices.Clone(g.deps[sym])
		slices.Sort(deps)
		for _, dep := range deps {
			if waiting[dep] > 0 {
				sym = dep
				break
			}
		}
	}
}

func names(reg *Registry, syms []symbols.Symbol) []string {
	out := make([]string, len(syms))
	for ii, sym := range syms {
		out[ii] = reg.Name(sym)
	}
	return out
}
