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

// Package deadstore implements the dead-store finder (DSF): a generic
// forward-flow CFG analysis, parameterized by a store-family policy,
// that identifies stores whose every downstream observation is a
// complete overwrite (trample) before any matching load, and replaces
// them with drops of their children. Directly grounded on
// original_source/src/passes/DeadStoreElimination.cpp's
// DeadStoreFinder<T> template and its three policy structs.
package deadstore

import (
	"github.com/wasmopt/localflow/internal/effect"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/localgraph"
)

// Policy is one store-family's rules. Per the design note on avoiding
// dynamic dispatch in the inner scan loop, the driver is a generic
// function parameterized by a concrete Policy implementation rather than
// an interface value held by the driver — Go generics monomorphize each
// instantiation, so GlobalPolicy/MemoryPolicy/HeapPolicy calls compile to
// direct calls, not a vtable indirection, inside the hot scan.
type Policy interface {
	// IsStore reports whether e is a store of this family.
	IsStore(e ir.Expr) bool
	// IsRelevant reports whether e (not a store) may load from or
	// otherwise interact with this family and must be retained in the
	// block's expression stream for analysis.
	IsRelevant(e ir.Expr, eff effect.Effects) bool
	// IsLoadFrom reports whether e definitely loads exactly the value
	// store wrote.
	IsLoadFrom(e ir.Expr, eff effect.Effects, store ir.Expr) bool
	// Tramples reports whether e completely overwrites store's
	// footprint. Not called if IsLoadFrom already returned true.
	Tramples(e ir.Expr, eff effect.Effects, store ir.Expr) bool
	// MayInteract reports any residual interaction. Called only if
	// IsLoadFrom and Tramples both returned false.
	MayInteract(e ir.Expr, eff effect.Effects, store ir.Expr) bool
	// ReplaceStoreWithDrops builds a replacement for a dead store that
	// evaluates its children for side effects and discards the results.
	ReplaceStoreWithDrops(store ir.Expr, b ir.Builder) ir.Expr
}

// Equivalent reports whether two expressions are value-equivalent: after
// stripping passthrough wrappers, either two reads the local graph
// judges equivalent, or two constants with bitwise-equal values. Shared
// by every policy's IsLoadFrom/Tramples address comparison.
func Equivalent(g *localgraph.Graph, a, b ir.Expr) bool {
	a = ir.Fallthrough(a)
	b = ir.Fallthrough(b)
	if ag, ok := a.(*ir.LocalGet); ok {
		if bg, ok := b.(*ir.LocalGet); ok {
			return g.Equivalent(ag, bg)
		}
	}
	if ac, ok := a.(*ir.Const); ok {
		if bc, ok := b.(*ir.Const); ok {
			return ac.Value == bc.Value
		}
	}
	return false
}
