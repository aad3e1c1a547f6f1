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

package localgraph

import (
	"testing"

	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/types"
)

// simpleFunction builds: var 1 = get(param 0); return get(1) + get(1)
// (the two reads of var 1 are represented as two separate LocalGets
// passed to a Call, since this IR has no arithmetic node).
func simpleFunction() (fn *ir.Function, set *ir.LocalSet, get1, get2 *ir.LocalGet) {
	paramGet := ir.NewLocalGet(0, types.I32)
	set = ir.NewLocalSet(1, paramGet, false)
	get1 = ir.NewLocalGet(1, types.I32)
	get2 = ir.NewLocalGet(1, types.I32)
	call := &ir.Call{Target: "add", Args: []ir.Expr{get1, get2}}
	ret := &ir.Return{Value: call}
	body := &ir.Sequence{A: set, B: ret}
	fn = &ir.Function{
		Name:   "simple",
		Params: []types.Type{types.I32},
		Vars:   []types.Type{types.I32},
		Body:   body,
	}
	return fn, set, get1, get2
}

func TestReachingDefinitionsSingleAssignment(t *testing.T) {
	fn, set, get1, get2 := simpleFunction()
	g := Build(fn)

	for name, get := range map[string]*ir.LocalGet{"get1": get1, "get2": get2} {
		sets, ok := g.GetSetses[get]
		if !ok {
			t.Fatalf("%s: no getSetses entry recorded", name)
		}
		single, ok := sets.Single()
		if !ok {
			t.Fatalf("%s: reaching set is not a singleton: %v", name, sets.ToSlice())
		}
		got, ok := single.Set()
		if !ok || got != set {
			t.Errorf("%s: reaching def = %v, want the function's sole local.set", name, single)
		}
	}
}

func TestEquivalentTwoReadsOfSameSSALocal(t *testing.T) {
	fn, _, get1, get2 := simpleFunction()
	g := Build(fn)

	if !g.Equivalent(get1, get2) {
		t.Errorf("Equivalent(get1, get2) = false, want true: both read local 1 with no intervening set")
	}
}

func TestEquivalentDifferentIndicesNeverEquivalent(t *testing.T) {
	fn, _, get1, _ := simpleFunction()
	paramGet := ir.NewLocalGet(0, types.I32)
	g := Build(fn)
	// paramGet was never visited by this graph's CFG, so it has no
	// getSetses entry and must not spuriously compare equal.
	if g.Equivalent(get1, paramGet) {
		t.Errorf("Equivalent() = true for reads of different indices")
	}
}

func TestParamNeverObservesBottom(t *testing.T) {
	// A read of a parameter with no intervening set reaches only the
	// param-source sentinel, never the bare ⊥ used for uninitialized vars.
	paramGet := ir.NewLocalGet(0, types.I32)
	ret := &ir.Return{Value: paramGet}
	fn := &ir.Function{
		Name:   "paramOnly",
		Params: []types.Type{types.I32},
		Body:   ret,
	}
	g := Build(fn)
	sets, ok := g.GetSetses[paramGet]
	if !ok {
		t.Fatalf("no getSetses entry recorded for parameter read")
	}
	single, ok := sets.Single()
	if !ok {
		t.Fatalf("reaching set is not a singleton: %v", sets.ToSlice())
	}
	if single.IsBottom() {
		t.Errorf("parameter's reaching def is ⊥, want the distinct param-source sentinel")
	}
}

func TestUnreachableBlockToleratesAbsentEntries(t *testing.T) {
	// A local.get in the statement right after an unconditional return
	// is unreachable; Build must not panic looking up its local index in
	// a block with no predecessor.
	innerGet := ir.NewLocalGet(0, types.I32)
	unreachable := &ir.Drop{Value: innerGet}
	ret := &ir.Return{Value: nil}
	body := &ir.Sequence{A: ret, B: unreachable}
	fn := &ir.Function{
		Name:   "deadCode",
		Params: []types.Type{types.I32},
		Body:   body,
	}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Build panicked on unreachable code: %v", r)
		}
	}()
	Build(fn)
}

func TestComputeInfluences(t *testing.T) {
	fn, set, get1, get2 := simpleFunction()
	g := Build(fn)
	g.ComputeInfluences()

	influenced := g.SetInfluences(set)
	if influenced == nil || !influenced.Contains(get1) || !influenced.Contains(get2) {
		t.Errorf("SetInfluences(set) = %v, want it to contain both get1 and get2", influenced)
	}
}

func TestComputeSSAIndexes(t *testing.T) {
	fn, _, _, _ := simpleFunction()
	g := Build(fn)
	g.ComputeSSAIndexes()

	if !g.IsSSA(1) {
		t.Errorf("IsSSA(1) = false, want true: local 1 has exactly one set and no ⊥ reads")
	}
	if g.IsSSA(0) {
		t.Errorf("IsSSA(0) = true, want false: local 0 is a parameter, never assigned via local.set")
	}
}
