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
	"github.com/wasmopt/localflow/internal/types"
)

// MemoryPolicy finds dead writes to linear memory (Store). Unlike
// globals, pointers can alias in ways we cannot always prove, so
// mayInteract conservatively flags any unclassified memory access.
type MemoryPolicy struct {
	Graph *localgraph.Graph
}

func (MemoryPolicy) IsStore(e ir.Expr) bool {
	_, ok := e.(*ir.Store)
	return ok
}

func (MemoryPolicy) IsRelevant(e ir.Expr, eff effect.Effects) bool {
	return eff.ReadsMemory || eff.WritesMemory
}

func (p MemoryPolicy) IsLoadFrom(e ir.Expr, eff effect.Effects, storeE ir.Expr) bool {
	if e.Type() == types.Unreachable {
		return false
	}
	load, ok := e.(*ir.Load)
	if !ok {
		return false
	}
	store := storeE.(*ir.Store)
	// Atomic stores trap on unaligned addresses; a non-atomic load can't
	// be trusted to have observed that trapping behavior, so a non-atomic
	// load cannot stand in for an atomic store (the reverse is fine).
	if store.IsAtomic && !load.IsAtomic {
		return false
	}
	return load.Bytes == store.Bytes &&
		load.Bytes == load.Type().ByteSize() &&
		load.Offset == store.Offset &&
		Equivalent(p.Graph, load.Ptr, store.Ptr)
}

func (p MemoryPolicy) Tramples(e ir.Expr, eff effect.Effects, storeE ir.Expr) bool {
	other, ok := e.(*ir.Store)
	if !ok {
		return false
	}
	store := storeE.(*ir.Store)
	if store.IsAtomic && !other.IsAtomic {
		return false
	}
	return other.Bytes == store.Bytes &&
		other.Offset == store.Offset &&
		Equivalent(p.Graph, other.Ptr, store.Ptr)
}

func (MemoryPolicy) MayInteract(e ir.Expr, eff effect.Effects, store ir.Expr) bool {
	return eff.ReadsMemory || eff.WritesMemory
}

func (MemoryPolicy) ReplaceStoreWithDrops(store ir.Expr, b ir.Builder) ir.Expr {
	s := store.(*ir.Store)
	return b.MakeSequence(b.MakeDrop(s.Ptr), b.MakeDrop(s.Value))
}
