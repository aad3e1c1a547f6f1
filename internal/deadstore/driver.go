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
	"github.com/wasmopt/localflow/internal/cfg"
	"github.com/wasmopt/localflow/internal/effect"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/localgraph"
)

// storeRecord tracks the analysis state for one candidate store.
type storeRecord struct {
	slot        ir.Slot
	loads       []ir.Expr
	optimizable bool
}

// Finder runs one store family's analysis over one function's CFG.
// Instantiated once per policy (Global/Memory/Heap), so the compiler
// generates a dedicated, non-virtual copy of Optimize per family.
type Finder[P Policy] struct {
	policy P
	graph  *localgraph.Graph
	c      *cfg.CFG
}

// NewFinder builds a Finder for the given policy over fn's CFG, reusing
// an already-built LocalGraph for value-equivalence queries.
func NewFinder[P Policy](policy P, graph *localgraph.Graph, c *cfg.CFG) *Finder[P] {
	return &Finder[P]{policy: policy, graph: graph, c: c}
}

// Optimize runs the analysis and rewrites every store found dead (no
// loads, only tramples/clean paths) in place via its recorded slot. It
// returns the number of stores replaced.
func (f *Finder[P]) Optimize() int {
	builder := ir.Builder{}
	replaced := 0
	for _, b := range f.c.Blocks {
		for k, v := range b.Exprs {
			if !f.policy.IsStore(v.Expr) {
				continue
			}
			rec := f.analyzeStore(b, k, v)
			if rec.optimizable && len(rec.loads) == 0 {
				rec.slot.Replace(f.policy.ReplaceStoreWithDrops(v.Expr, builder))
				replaced++
			}
		}
	}
	return replaced
}

// analyzeStore flows store forward from its position (k+1 in b) through
// the CFG, classifying every downstream expression relevant to this
// store family as a load, a trample (ends this path), a halting
// interaction (ends the whole analysis for this store), or irrelevant.
func (f *Finder[P]) analyzeStore(b *cfg.Block, k int, v cfg.Visited) storeRecord {
	rec := storeRecord{slot: v.Slot, optimizable: true}
	store := v.Expr

	visited := map[*cfg.Block]bool{}
	var work []*cfg.Block

	halt := func() {
		work = nil
		rec.optimizable = false
	}

	scanBlock := func(blk *cfg.Block, from int) {
		for i := from; i < len(blk.Exprs); i++ {
			e := blk.Exprs[i].Expr
			eff := effect.Analyze(e)

			if f.policy.IsLoadFrom(e, eff, store) {
				rec.loads = append(rec.loads, e)
				continue
			}
			if f.policy.Tramples(e, eff, store) {
				return // Trampled: this path is done, do not enqueue successors.
			}
			if effect.ReachesGlobalCode(e, eff) || f.policy.MayInteract(e, eff, store) {
				halt()
				return
			}
		}
		for _, succ := range blk.Succs {
			if !visited[succ] {
				visited[succ] = true
				work = append(work, succ)
			}
		}
		if blk == f.c.Exit {
			// The value may escape the function; conservatively halt.
			halt()
		}
	}

	scanBlock(b, k+1)
	for len(work) > 0 && rec.optimizable {
		next := work[0]
		work = work[1:]
		scanBlock(next, 0)
	}

	return rec
}
