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
)

// GlobalPolicy finds dead writes to module-wide mutable cells (GlobalSet).
// Name-disjoint globals can never alias, so mayInteract is always false:
// isRelevant/isLoadFrom/tramples fully classify every GlobalGet/GlobalSet.
type GlobalPolicy struct{}

func (GlobalPolicy) IsStore(e ir.Expr) bool {
	_, ok := e.(*ir.GlobalSet)
	return ok
}

func (GlobalPolicy) IsRelevant(e ir.Expr, eff effect.Effects) bool {
	_, ok := e.(*ir.GlobalGet)
	return ok
}

func (GlobalPolicy) IsLoadFrom(e ir.Expr, eff effect.Effects, store ir.Expr) bool {
	load, ok := e.(*ir.GlobalGet)
	if !ok {
		return false
	}
	return load.Name == store.(*ir.GlobalSet).Name
}

func (GlobalPolicy) Tramples(e ir.Expr, eff effect.Effects, store ir.Expr) bool {
	other, ok := e.(*ir.GlobalSet)
	if !ok {
		return false
	}
	return other.Name == store.(*ir.GlobalSet).Name
}

func (GlobalPolicy) MayInteract(e ir.Expr, eff effect.Effects, store ir.Expr) bool {
	// isLoadFrom/tramples already cover every GlobalGet/GlobalSet; a
	// name-disjoint global cannot alias with any other.
	return false
}

func (GlobalPolicy) ReplaceStoreWithDrops(store ir.Expr, b ir.Builder) ir.Expr {
	return b.MakeDrop(store.(*ir.GlobalSet).Value)
}
