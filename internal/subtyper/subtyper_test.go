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

package subtyper

import (
	"testing"

	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/types"
)

var (
	anyHeap    = &types.HeapType{Name: "any"}
	animalHeap = &types.HeapType{Name: "animal", Super: anyHeap}
	dogHeap    = &types.HeapType{Name: "dog", Super: animalHeap}

	dogNonNull      = types.Ref(dogHeap, types.NonNullable)
	animalNullable  = types.Ref(animalHeap, types.Nullable)
	dogNullableType = types.Ref(dogHeap, types.Nullable)
)

// Scenario E: a variable declared as a nullable animal reference, but
// only ever assigned a non-null dog value and never observed to hold
// the default, narrows all the way to a non-nullable dog reference.
func TestRefineNarrowsToAssignedType(t *testing.T) {
	paramGet := ir.NewLocalGet(0, dogNonNull)
	set := ir.NewLocalSet(1, paramGet, false)
	get := ir.NewLocalGet(1, animalNullable)
	ret := &ir.Return{Value: get}
	body := &ir.Sequence{A: set, B: ret}

	fn := &ir.Function{
		Name:   "refine",
		Params: []types.Type{dogNonNull},
		Vars:   []types.Type{animalNullable},
		Body:   body,
	}

	if err := Run(fn, ir.FeatureSet{GC: true, NonNullableLocals: true}); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if fn.Vars[0] != dogNonNull {
		t.Errorf("Vars[0] = %v, want %v (narrowed to the only type ever assigned)", fn.Vars[0], dogNonNull)
	}
	if get.Type() != dogNonNull {
		t.Errorf("read's type = %v, want %v (updated to match the narrowed declaration)", get.Type(), dogNonNull)
	}
}

// Scenario F: a variable that may still hold its default on some path
// (here, an if with no else) cannot narrow to non-nullable even though
// every explicit assignment is non-null; it narrows to a nullable dog
// reference instead of staying at the wider nullable animal type.
func TestRefineBlockedToNullableByDefaultPath(t *testing.T) {
	paramGet := ir.NewLocalGet(0, dogNonNull)
	thenSet := ir.NewLocalSet(1, paramGet, false)
	cond := ir.NewConst(1, types.I32)
	ifNode := &ir.If{Cond: cond, Then: thenSet, Else: nil}
	get := ir.NewLocalGet(1, animalNullable)
	ret := &ir.Return{Value: get}
	body := &ir.Sequence{A: ifNode, B: ret}

	fn := &ir.Function{
		Name:   "blockedByDefault",
		Params: []types.Type{dogNonNull},
		Vars:   []types.Type{animalNullable},
		Body:   body,
	}

	if err := Run(fn, ir.FeatureSet{GC: true, NonNullableLocals: true}); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if fn.Vars[0] != dogNullableType {
		t.Errorf("Vars[0] = %v, want %v (narrowed heap type, but kept nullable)", fn.Vars[0], dogNullableType)
	}
	if get.Type() != dogNullableType {
		t.Errorf("read's type = %v, want %v", get.Type(), dogNullableType)
	}
}

// With GC features disabled, the pass must not touch the function at all.
func TestRunNoOpWithoutGC(t *testing.T) {
	paramGet := ir.NewLocalGet(0, dogNonNull)
	set := ir.NewLocalSet(1, paramGet, false)
	get := ir.NewLocalGet(1, animalNullable)
	body := &ir.Sequence{A: set, B: &ir.Return{Value: get}}
	fn := &ir.Function{
		Name:   "noGC",
		Params: []types.Type{dogNonNull},
		Vars:   []types.Type{animalNullable},
		Body:   body,
	}

	if err := Run(fn, ir.FeatureSet{}); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if fn.Vars[0] != animalNullable {
		t.Errorf("Vars[0] changed to %v despite GC features being disabled", fn.Vars[0])
	}
}
