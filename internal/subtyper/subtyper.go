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

// Package subtyper implements the local subtyper (LS): it iteratively
// refines each non-parameter local's declared type to the least upper
// bound of the types actually assigned to it, subject to defaultability
// and nullability constraints. Directly grounded on
// original_source/src/passes/LocalSubtyping.cpp.
package subtyper

import (
	"errors"
	"fmt"

	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/localgraph"
	"github.com/wasmopt/localflow/internal/types"
)

// ErrInvariantViolated is returned when a refinement step finds no least
// upper bound, or computes a type that is not a subtype of the type it
// is meant to replace — a programming-contract violation (spec §7),
// never expected on valid input.
var ErrInvariantViolated = errors.New("subtyper: invariant violated")

// Run refines fn's variable types to a fixed point. It is a no-op unless
// the module has GC features enabled (spec §4.3 precondition).
func Run(fn *ir.Function, features ir.FeatureSet) error {
	if !features.HasGC() {
		return nil
	}

	for {
		// Refinalize first: recompute LUB-typed structured expressions
		// (If) bottom-up, potentially exposing a more specific set value
		// type before this iteration's per-variable refinement.
		refinalize(fn.Body)

		graph := localgraph.Build(fn)

		setsForLocal, getsForLocal := collect(fn, graph)
		usesDefault := computeUsesDefault(fn, features, graph)

		more, err := refineOnce(fn, features, setsForLocal, getsForLocal, usesDefault)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// collect groups every lexical set and get by local index, from
// graph.Locations, which holds every get and set the CFG walker visited,
// including those in blocks unreachable from entry.
func collect(fn *ir.Function, graph *localgraph.Graph) (sets [][]*ir.LocalSet, gets [][]*ir.LocalGet) {
	n := fn.NumLocals()
	sets = make([][]*ir.LocalSet, n)
	gets = make([][]*ir.LocalGet, n)
	for loc := range graph.Locations {
		switch e := loc.(type) {
		case *ir.LocalSet:
			sets[e.Index] = append(sets[e.Index], e)
		case *ir.LocalGet:
			gets[e.Index] = append(gets[e.Index], e)
		}
	}
	return sets, gets
}

// computeUsesDefault finds which variable indices have some read whose
// reaching set contains ⊥ (the entry default). When non-nullable locals
// are not a module feature, the set is treated as empty: the default's
// precise type cannot matter, since under structural subtyping all
// nulls compare equally regardless of their static type.
func computeUsesDefault(fn *ir.Function, features ir.FeatureSet, graph *localgraph.Graph) map[ir.VarIndex]bool {
	usesDefault := map[ir.VarIndex]bool{}
	if !features.HasNonNullableLocals() {
		return usesDefault
	}
	for get, sets := range graph.GetSetses {
		if fn.IsParam(get.Index) {
			continue
		}
		found := false
		sets.ForEach(func(d localgraph.Def) {
			if d.IsBottom() {
				found = true
			}
		})
		if found {
			usesDefault[get.Index] = true
		}
	}
	return usesDefault
}

// refineOnce performs one pass over every variable index, in increasing
// index order (§5's deterministic ordering guarantee), and reports
// whether any type changed.
func refineOnce(fn *ir.Function, features ir.FeatureSet, setsForLocal [][]*ir.LocalSet, getsForLocal [][]*ir.LocalGet, usesDefault map[ir.VarIndex]bool) (bool, error) {
	more := false
	varBase := fn.VarBase()
	for i := int(varBase); i < fn.NumLocals(); i++ {
		idx := ir.VarIndex(i)
		sets := setsForLocal[i]
		if len(sets) == 0 {
			// Nothing assigned to this local; leave it for other passes
			// to remove.
			continue
		}

		seen := map[types.Type]bool{}
		var assigned []types.Type
		for _, s := range sets {
			t := s.Value.Type()
			if !seen[t] {
				seen[t] = true
				assigned = append(assigned, t)
			}
		}

		oldType := fn.LocalType(idx)
		newType, err := leastUpperBound(assigned)
		if err != nil {
			return false, err
		}

		if newType.IsNonNullable() {
			if !features.HasNonNullableLocals() || usesDefault[idx] {
				// Either locals cannot be declared non-nullable in this
				// module, or some path reaches a read without ever
				// assigning this local, so its default value is
				// observable: the refined type must stay nullable even
				// though every explicit assignment is non-null.
				newType = newType.AsNullable()
			}
		} else if !newType.IsDefaultable() {
			continue
		}

		if newType == oldType {
			continue
		}
		if !types.IsSubType(newType, oldType) {
			return false, fmt.Errorf("%w: refined type %v is not a subtype of declared type %v for local %d", ErrInvariantViolated, newType, oldType, idx)
		}

		fn.SetVarType(idx, newType)
		more = true

		for _, g := range getsForLocal[i] {
			g.SetType(newType)
		}
		for _, s := range sets {
			if s.IsTee {
				s.SetType(newType)
				s.Finalize()
			}
		}
	}
	return more, nil
}

func leastUpperBound(ts []types.Type) (newType types.Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvariantViolated, r)
		}
	}()
	return types.LeastUpperBound(ts), nil
}

// refinalize recomputes the memoized type of every If expression
// bottom-up, mirroring ReFinalize in the original: block/if types are a
// least upper bound of their arm types, and may have become more
// specific now that a nested local's type was refined on a previous
// iteration.
func refinalize(e ir.Expr) {
	switch n := e.(type) {
	case *ir.If:
		refinalize(n.Cond)
		refinalize(n.Then)
		refinalize(n.Else)
		if n.Else == nil {
			n.SetType(types.None)
			return
		}
		thenT, elseT := n.Then.Type(), n.Else.Type()
		if thenT == types.Unreachable {
			n.SetType(elseT)
			return
		}
		if elseT == types.Unreachable {
			n.SetType(thenT)
			return
		}
		n.SetType(types.LeastUpperBound([]types.Type{thenT, elseT}))
	case *ir.Block:
		for _, c := range n.List {
			refinalize(c)
		}
	case *ir.Sequence:
		refinalize(n.A)
		refinalize(n.B)
	case *ir.Loop:
		refinalize(n.Body)
	case *ir.LocalSet:
		refinalize(n.Value)
	case *ir.GlobalSet:
		refinalize(n.Value)
	case *ir.Store:
		refinalize(n.Ptr)
		refinalize(n.Value)
	case *ir.StructSet:
		refinalize(n.Ref)
		refinalize(n.Value)
	case *ir.StructGet:
		refinalize(n.Ref)
	case *ir.Load:
		refinalize(n.Ptr)
	case *ir.Drop:
		refinalize(n.Value)
	case *ir.Return:
		refinalize(n.Value)
	case *ir.Call:
		for _, a := range n.Args {
			refinalize(a)
		}
	}
}
