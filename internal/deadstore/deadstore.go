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
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/localgraph"
)

// Result reports how many stores each family eliminated.
type Result struct {
	Globals int
	Memory  int
	Heap    int
}

// Run applies the three dead-store families to fn, strictly in sequence
// — globals, then memory, then managed heap — rebuilding the LocalGraph
// between families since each one may have mutated the IR that the
// previous family's analysis was computed against. The heap family only
// runs when the module has GC features enabled.
func Run(fn *ir.Function, features ir.FeatureSet) Result {
	var res Result

	g := localgraph.Build(fn)
	res.Globals = NewFinder[GlobalPolicy](GlobalPolicy{}, g, g.CFG()).Optimize()

	g = localgraph.Build(fn)
	res.Memory = NewFinder[MemoryPolicy](MemoryPolicy{Graph: g}, g, g.CFG()).Optimize()

	if features.HasGC() {
		g = localgraph.Build(fn)
		res.Heap = NewFinder[HeapPolicy](HeapPolicy{Graph: g}, g, g.CFG()).Optimize()
	}

	return res
}
