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

package deadstore

import (
	"testing"

	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/types"
)

// Scenario A: a global store immediately overwritten by another store to
// the same cell, with no load in between, must be eliminated.
func TestDeadGlobalStoreEliminated(t *testing.T) {
	first := &ir.GlobalSet{Name: "g", Value: ir.NewConst(1, types.I32)}
	second := &ir.GlobalSet{Name: "g", Value: ir.NewConst(2, types.I32)}
	body := &ir.Sequence{A: first, B: &ir.Sequence{A: second, B: &ir.Return{}}}
	fn := &ir.Function{Name: "deadGlobal", Body: body}

	res := Run(fn, ir.FeatureSet{})
	if res.Globals != 1 {
		t.Fatalf("Globals eliminated = %d, want 1", res.Globals)
	}
	if _, isDrop := body.A.(*ir.Drop); !isDrop {
		t.Errorf("first store was not replaced with a drop: %T", body.A)
	}
}

// Scenario B: a global store observed by a later load of the same cell
// must be kept.
func TestLiveGlobalStoreKept(t *testing.T) {
	store := &ir.GlobalSet{Name: "g", Value: ir.NewConst(1, types.I32)}
	load := &ir.GlobalGet{Name: "g"}
	body := &ir.Sequence{A: store, B: &ir.Return{Value: load}}
	fn := &ir.Function{Name: "liveGlobal", Body: body}

	res := Run(fn, ir.FeatureSet{})
	if res.Globals != 0 {
		t.Fatalf("Globals eliminated = %d, want 0 (store is observed by a later load)", res.Globals)
	}
	if _, isSet := body.A.(*ir.GlobalSet); !isSet {
		t.Errorf("live store was rewritten: %T", body.A)
	}
}

// Scenario C: an atomic store is not provably overwritten-or-observed by
// a non-atomic load of the same address, since the non-atomic load
// cannot be trusted to witness the atomic store's ordering guarantees;
// the store must be conservatively kept.
func TestAtomicStoreGuardsAgainstNonAtomicLoad(t *testing.T) {
	ptr := func() ir.Expr { return ir.NewLocalGet(0, types.I32) }
	store := &ir.Store{Ptr: ptr(), Value: ir.NewConst(1, types.I32), Bytes: 4, IsAtomic: true}
	load := &ir.Load{Ptr: ptr(), Bytes: 4, IsAtomic: false}
	load.SetType(types.I32)
	body := &ir.Sequence{A: store, B: &ir.Return{Value: load}}
	fn := &ir.Function{Name: "atomicGuard", Params: []types.Type{types.I32}, Body: body}

	res := Run(fn, ir.FeatureSet{})
	if res.Memory != 0 {
		t.Fatalf("Memory eliminated = %d, want 0 (atomic store must survive a non-atomic observer)", res.Memory)
	}
	if _, isStore := body.A.(*ir.Store); !isStore {
		t.Errorf("atomic store was rewritten: %T", body.A)
	}
}

// Scenario D: a call between two global stores to the same cell may
// reenter the function (or otherwise observe module state), so it halts
// the analysis and the earlier store must be kept.
func TestCallInterferesWithGlobalStore(t *testing.T) {
	first := &ir.GlobalSet{Name: "g", Value: ir.NewConst(1, types.I32)}
	call := &ir.Call{Target: "reenter"}
	second := &ir.GlobalSet{Name: "g", Value: ir.NewConst(2, types.I32)}
	body := &ir.Sequence{A: first, B: &ir.Sequence{A: call, B: &ir.Sequence{A: second, B: &ir.Return{}}}}
	fn := &ir.Function{Name: "callInterferes", Body: body}

	res := Run(fn, ir.FeatureSet{})
	if res.Globals != 0 {
		t.Fatalf("Globals eliminated = %d, want 0 (an intervening call must halt the analysis)", res.Globals)
	}
	if _, isSet := body.A.(*ir.GlobalSet); !isSet {
		t.Errorf("store preceding a call was rewritten: %T", body.A)
	}
}

// A heap struct-field store trampled by another store to the same field
// of a provably-equivalent reference is eliminated, but only when GC
// features are enabled.
func TestDeadHeapStoreEliminatedOnlyWithGC(t *testing.T) {
	dog := &types.HeapType{Name: "dog"}
	refType := types.Ref(dog, types.NonNullable)

	newRef := func() ir.Expr { return ir.NewLocalGet(0, refType) }
	first := &ir.StructSet{Ref: newRef(), Index: 0, Value: ir.NewConst(1, types.I32)}
	second := &ir.StructSet{Ref: newRef(), Index: 0, Value: ir.NewConst(2, types.I32)}
	body := &ir.Sequence{A: first, B: &ir.Sequence{A: second, B: &ir.Return{}}}
	fn := &ir.Function{Name: "deadHeapNoGC", Params: []types.Type{refType}, Body: body}

	res := Run(fn, ir.FeatureSet{GC: false})
	if res.Heap != 0 {
		t.Fatalf("Heap eliminated = %d with GC disabled, want 0 (heap family must not run)", res.Heap)
	}

	// Rebuild since the first run may have mutated body in place (it
	// didn't, but this keeps the two assertions independent).
	first2 := &ir.StructSet{Ref: newRef(), Index: 0, Value: ir.NewConst(1, types.I32)}
	second2 := &ir.StructSet{Ref: newRef(), Index: 0, Value: ir.NewConst(2, types.I32)}
	body2 := &ir.Sequence{A: first2, B: &ir.Sequence{A: second2, B: &ir.Return{}}}
	fn2 := &ir.Function{Name: "deadHeapGC", Params: []types.Type{refType}, Body: body2}

	res2 := Run(fn2, ir.FeatureSet{GC: true})
	if res2.Heap != 1 {
		t.Fatalf("Heap eliminated = %d with GC enabled, want 1", res2.Heap)
	}
	seq, isSeq := body2.A.(*ir.Sequence)
	if !isSeq {
		t.Fatalf("first heap store was not replaced with a sequence of drops: %T", body2.A)
	}
	if _, isDrop := seq.A.(*ir.Drop); !isDrop {
		t.Errorf("reference operand of the dead heap store was not dropped: %T", seq.A)
	}
	if _, isDrop := seq.B.(*ir.Drop); !isDrop {
		t.Errorf("value operand of the dead heap store was not dropped: %T", seq.B)
	}
}
