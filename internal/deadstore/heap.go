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
	"github.com/wasmopt/localflow/internal/effect"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/localgraph"
)

// HeapPolicy finds dead writes to managed-heap record fields (StructSet).
type HeapPolicy struct {
	Graph *localgraph.Graph
}

func (HeapPolicy) IsStore(e ir.Expr) bool {
	_, ok := e.(*ir.StructSet)
	return ok
}

func (HeapPolicy) IsRelevant(e ir.Expr, eff effect.Effects) bool {
	_, ok := e.(*ir.StructGet)
	return ok
}

func (p HeapPolicy) IsLoadFrom(e ir.Expr, eff effect.Effects, storeE ir.Expr) bool {
	load, ok := e.(*ir.StructGet)
	if !ok {
		return false
	}
	store := storeE.(*ir.StructSet)
	return load.Index == store.Index &&
		load.Ref.Type() == store.Ref.Type() &&
		Equivalent(p.Graph, load.Ref, store.Ref)
}

func (p HeapPolicy) Tramples(e ir.Expr, eff effect.Effects, storeE ir.Expr) bool {
	other, ok := e.(*ir.StructSet)
	if !ok {
		return false
	}
	store := storeE.(*ir.StructSet)
	return other.Index == store.Index &&
		other.Ref.Type() == store.Ref.Type() &&
		Equivalent(p.Graph, other.Ref, store.Ref)
}

func (HeapPolicy) MayInteract(e ir.Expr, eff effect.Effects, store ir.Expr) bool {
	return eff.ReadsHeap || eff.WritesHeap
}

func (HeapPolicy) ReplaceStoreWithDrops(store ir.Expr, b ir.Builder) ir.Expr {
	s := store.(*ir.StructSet)
	return b.MakeSequence(b.MakeDrop(s.Ref), b.MakeDrop(s.Value))
}
