// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package localgraph computes, for one function, the connections between
// local.gets and local.sets: a classical forward reaching-definitions
// dataflow over the function's basic-block CFG, directly grounded on
// original_source/src/ir/local-graph.h. It is the "LG" component: built
// once per function and consumed by the dead-store finder (to compare
// address-computing sub-expressions for equivalence) and the local
// subtyper (to enumerate writes/reads and detect default-value usage).
package localgraph

import (
	"github.com/wasmopt/localflow/internal/cfg"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/smallset"
)

// defKind distinguishes the three shapes a reaching definition can take.
type defKind int

const (
	defBottom defKind = iota // the variable's zero-initialized default
	defParam                 // a parameter's incoming argument
	defSet                   // a real local.set
)

// Def is one element of a get's reaching-definitions set: either a real
// LocalSet, or one of the two entry sentinels (⊥ for a var's default, or
// a parameter's implicit incoming value). Comparable, so it can live in
// smallset.Set.
type Def struct {
	kind defKind
	set  *ir.LocalSet
	idx  ir.VarIndex
}

// Bottom is the ⊥ sentinel: "the entry default value could reach here."
var Bottom = Def{kind: defBottom}

// IsBottom reports whether d is the ⊥ sentinel.
func (d Def) IsBottom() bool { return d.kind == defBottom }

// Set returns the underlying local.set and true, if d names a real set.
func (d Def) Set() (*ir.LocalSet, bool) {
	if d.kind == defSet {
		return d.set, true
	}
	return nil, false
}

func paramSource(idx ir.VarIndex) Def { return Def{kind: defParam, idx: idx} }
func fromSet(s *ir.LocalSet) Def      { return Def{kind: defSet, set: s} }

// Sets is the reaching-definitions set for one get: a small set of Def,
// with inline capacity for the common singleton/phi-of-2 case.
type Sets = smallset.Set[Def]

// Graph holds the per-function artefacts: getSetses, locations, and the
// on-demand influence maps and SSA index set.
type Graph struct {
	fn *ir.Function
	c  *cfg.CFG

	GetSetses map[*ir.LocalGet]*Sets
	Locations map[ir.Expr]ir.Slot

	getInfluences map[*ir.LocalGet]*smallset.Set[*ir.LocalSet]
	setInfluences map[*ir.LocalSet]*smallset.Set[*ir.LocalGet]
	ssaIndexes    map[ir.VarIndex]bool
}

// CFG returns the control-flow graph built alongside this LocalGraph, so
// that consumers (the dead-store finder) do not need to walk the
// function a second time.
func (g *Graph) CFG() *cfg.CFG { return g.c }

// Build computes getSetses and locations for fn. Influences and SSA
// indexes are computed on demand via ComputeInfluences/ComputeSSAIndexes.
func Build(fn *ir.Function) *Graph {
	g := &Graph{
		fn:        fn,
		c:         cfg.Build(fn),
		GetSetses: map[*ir.LocalGet]*Sets{},
		Locations: map[ir.Expr]ir.Slot{},
	}
	g.run()
	return g
}

// blockState maps a local index to the set of defs reaching it at a
// given program point.
type blockState map[ir.VarIndex]*Sets

func (g *Graph) entryState() blockState {
	st := blockState{}
	for i := 0; i < g.fn.NumLocals(); i++ {
		idx := ir.VarIndex(i)
		if g.fn.IsParam(idx) {
			st[idx] = smallset.Of(paramSource(idx))
		} else {
			st[idx] = smallset.Of(Bottom)
		}
	}
	return st
}

// emptyState returns a state with a present-but-empty set for every
// local index, so that blocks unreachable from entry (which never
// receive a union from any predecessor) still answer every index lookup
// with a valid, if empty, set rather than a nil pointer.
func (g *Graph) emptyState() blockState {
	st := make(blockState, g.fn.NumLocals())
	for i := 0; i < g.fn.NumLocals(); i++ {
		st[ir.VarIndex(i)] = &Sets{}
	}
	return st
}

func cloneState(st blockState) blockState {
	out := make(blockState, len(st))
	for k, v := range st {
		out[k] = v.Clone()
	}
	return out
}

func unionInto(dst blockState, src blockState) bool {
	changed := false
	for idx, s := range src {
		cur, ok := dst[idx]
		if !ok {
			dst[idx] = s.Clone()
			changed = true
			continue
		}
		before := cur.Len()
		cur.Union(s)
		if cur.Len() != before {
			changed = true
		}
	}
	return changed
}

func statesEqual(a, b blockState) bool {
	if len(a) != len(b) {
		return false
	}
	for idx, sa := range a {
		sb, ok := b[idx]
		if !ok || !sa.Equal(sb) {
			return false
		}
	}
	return true
}

// run computes the fixed point of the reaching-definitions dataflow and
// records the locations of every get and set visited.
func (g *Graph) run() {
	in := make(map[cfg.BlockID]blockState, len(g.c.Blocks))
	out := make(map[cfg.BlockID]blockState, len(g.c.Blocks))
	for _, b := range g.c.Blocks {
		in[b.ID] = g.emptyState()
		out[b.ID] = g.emptyState()
	}
	in[g.c.Entry.ID] = g.entryState()

	changed := true
	for changed {
		changed = false
		for _, b := range g.c.Blocks {
			st := cloneState(in[b.ID])
			for _, v := range b.Exprs {
				switch n := v.Expr.(type) {
				case *ir.LocalGet:
					g.Locations[n] = v.Slot
				case *ir.LocalSet:
					g.Locations[n] = v.Slot
					st[n.Index] = smallset.Of(fromSet(n))
					continue
				}
			}
			if !statesEqual(st, out[b.ID]) {
				out[b.ID] = st
				changed = true
			}
			for _, succ := range b.Succs {
				if unionInto(in[succ.ID], out[b.ID]) {
					changed = true
				}
			}
		}
	}

	// Second pass: now that in-states are at fixed point, record the
	// actual getSetses answer for every get, replaying each block once
	// more with its final in-state.
	for _, b := range g.c.Blocks {
		st := cloneState(in[b.ID])
		for _, v := range b.Exprs {
			switch n := v.Expr.(type) {
			case *ir.LocalGet:
				g.GetSetses[n] = st[n.Index].Clone()
			case *ir.LocalSet:
				st[n.Index] = smallset.Of(fromSet(n))
			}
		}
	}
}

// Equivalent reports whether two reads definitely observe the same
// value: both index the same local, have identical reaching-definitions
// sets, and that set is either a non-⊥ singleton, or a ⊥ singleton for a
// parameter (the incoming argument always dominates, so every read of a
// parameter that never passes through a set observes the same value).
func (g *Graph) Equivalent(a, b *ir.LocalGet) bool {
	if a.Index != b.Index {
		return false
	}
	sa, ok := g.GetSetses[a]
	if !ok {
		return false
	}
	sb, ok := g.GetSetses[b]
	if !ok {
		return false
	}
	if !sa.Equal(sb) {
		return false
	}
	single, ok := sa.Single()
	if !ok {
		return false
	}
	if !single.IsBottom() {
		return true
	}
	return g.fn.IsParam(a.Index)
}

// ComputeInfluences populates getInfluences and setInfluences.
func (g *Graph) ComputeInfluences() {
	g.computeSetInfluences()
	g.computeGetInfluences()
}

// computeSetInfluences: for each set, the gets reachable from it (the
// reverse of getSetses, with ⊥ elided).
func (g *Graph) computeSetInfluences() {
	g.setInfluences = map[*ir.LocalSet]*smallset.Set[*ir.LocalGet]{}
	for get, sets := range g.GetSetses {
		sets.ForEach(func(d Def) {
			set, ok := d.Set()
			if !ok {
				return
			}
			s, ok := g.setInfluences[set]
			if !ok {
				s = &smallset.Set[*ir.LocalGet]{}
				g.setInfluences[set] = s
			}
			s.Insert(get)
		})
	}
}

// computeGetInfluences: for each get, the sets whose value expression
// transitively contains that get.
func (g *Graph) computeGetInfluences() {
	g.getInfluences = map[*ir.LocalGet]*smallset.Set[*ir.LocalSet]{}
	for loc := range g.Locations {
		set, ok := loc.(*ir.LocalSet)
		if !ok {
			continue
		}
		walkContains(set.Value, func(e ir.Expr) {
			get, ok := e.(*ir.LocalGet)
			if !ok {
				return
			}
			s, ok := g.getInfluences[get]
			if !ok {
				s = &smallset.Set[*ir.LocalSet]{}
				g.getInfluences[get] = s
			}
			s.Insert(set)
		})
	}
}

// SetInfluences returns the reads reachable from s; call ComputeInfluences first.
func (g *Graph) SetInfluences(s *ir.LocalSet) *smallset.Set[*ir.LocalGet] {
	return g.setInfluences[s]
}

// GetInfluences returns the sets whose value lexically contains g; call
// ComputeInfluences first.
func (g *Graph) GetInfluences(gt *ir.LocalGet) *smallset.Set[*ir.LocalSet] {
	return g.getInfluences[gt]
}

// ComputeSSAIndexes populates the set of indices with SSA-like shape.
func (g *Graph) ComputeSSAIndexes() {
	g.ssaIndexes = map[ir.VarIndex]bool{}

	setCount := map[ir.VarIndex]int{}
	var onlySet map[ir.VarIndex]*ir.LocalSet
	onlySet = map[ir.VarIndex]*ir.LocalSet{}
	for loc := range g.Locations {
		set, ok := loc.(*ir.LocalSet)
		if !ok {
			continue
		}
		setCount[set.Index]++
		onlySet[set.Index] = set
	}

	candidates := map[ir.VarIndex]bool{}
	for idx, n := range setCount {
		if n == 1 {
			candidates[idx] = true
		}
	}

	for get, sets := range g.GetSetses {
		idx := get.Index
		if !candidates[idx] {
			continue
		}
		single, ok := sets.Single()
		if !ok || single.IsBottom() {
			candidates[idx] = false
			continue
		}
		set, ok := single.Set()
		if !ok || set != onlySet[idx] {
			candidates[idx] = false
		}
	}

	for idx, ok := range candidates {
		if ok {
			g.ssaIndexes[idx] = true
		}
	}
}

// IsSSA reports whether index x has exactly one lexical set and no read
// with ⊥ in its reaching set. Call ComputeSSAIndexes first.
func (g *Graph) IsSSA(x ir.VarIndex) bool {
	return g.ssaIndexes[x]
}

// walkContains visits e and every descendant expression, in no
// particular order, calling visit on each.
func walkContains(e ir.Expr, visit func(ir.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *ir.LocalSet:
		walkContains(n.Value, visit)
	case *ir.GlobalSet:
		walkContains(n.Value, visit)
	case *ir.Load:
		walkContains(n.Ptr, visit)
	case *ir.Store:
		walkContains(n.Ptr, visit)
		walkContains(n.Value, visit)
	case *ir.StructGet:
		walkContains(n.Ref, visit)
	case *ir.StructSet:
		walkContains(n.Ref, visit)
		walkContains(n.Value, visit)
	case *ir.Return:
		walkContains(n.Value, visit)
	case *ir.Call:
		for _, a := range n.Args {
			walkContains(a, visit)
		}
	case *ir.Drop:
		walkContains(n.Value, visit)
	case *ir.Sequence:
		walkContains(n.A, visit)
		walkContains(n.B, visit)
	case *ir.Block:
		for _, c := range n.List {
			walkContains(c, visit)
		}
	case *ir.If:
		walkContains(n.Cond, visit)
		walkContains(n.Then, visit)
		walkContains(n.Else, visit)
	case *ir.Loop:
		walkContains(n.Body, visit)
	}
}
