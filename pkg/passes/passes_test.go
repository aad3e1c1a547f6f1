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

package passes

import (
	"testing"

	"github.com/wasmopt/localflow/internal/config"
	"github.com/wasmopt/localflow/internal/deadstore"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/types"
)

func deadGlobalFunction(name string) *ir.Function {
	first := &ir.GlobalSet{Name: "g", Value: ir.NewConst(1, types.I32)}
	second := &ir.GlobalSet{Name: "g", Value: ir.NewConst(2, types.I32)}
	body := &ir.Sequence{A: first, B: &ir.Sequence{A: second, B: &ir.Return{}}}
	return &ir.Function{Name: name, Body: body}
}

func TestSelectedPreservesRegistrationOrder(t *testing.T) {
	sel := config.PassSelection{DeadStoreElimination: true, LocalSubtyping: true}
	got := Selected(sel)
	if len(got) != 2 || got[0] != DeadStoreElimination || got[1] != LocalSubtyping {
		t.Fatalf("Selected() = %v, want [DeadStoreElimination, LocalSubtyping] in order", got)
	}
}

func TestSelectedHonorsDisabledPass(t *testing.T) {
	sel := config.PassSelection{DeadStoreElimination: true}
	got := Selected(sel)
	if len(got) != 1 || got[0] != DeadStoreElimination {
		t.Fatalf("Selected() = %v, want only [DeadStoreElimination]", got)
	}
}

func TestRunFunctionParallelAppliesDeadStoreElimination(t *testing.T) {
	mod := &ir.Module{
		Functions: []*ir.Function{
			deadGlobalFunction("a"),
			deadGlobalFunction("b"),
			deadGlobalFunction("c"),
		},
	}

	results := RunFunctionParallel(mod, []*Pass{DeadStoreElimination}, 2)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: unexpected error: %v", r.Function.Name, r.Err)
		}
		res, ok := r.Results[DeadStoreElimination].(deadstore.Result)
		if !ok {
			t.Fatalf("%s: DeadStoreElimination result has type %T, want deadstore.Result", r.Function.Name, r.Results[DeadStoreElimination])
		}
		if res.Globals != 1 {
			t.Errorf("%s: Globals eliminated = %d, want 1", r.Function.Name, res.Globals)
		}
	}

	ordered := StableOrder(results)
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Function.Name > ordered[i].Function.Name {
			t.Errorf("StableOrder() not sorted: %s before %s", ordered[i-1].Function.Name, ordered[i].Function.Name)
		}
	}
}
