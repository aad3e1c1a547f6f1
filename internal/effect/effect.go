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

// Package effect implements the non-recursive effect analyzer consumed
// by the dead-store finder: for a single expression (not its children,
// which the CFG walker has already visited by the time a block stream
// reaches them) it reports what that node alone reads or writes.
package effect

import "github.com/wasmopt/localflow/internal/ir"

// Effects summarizes what a single expression does, ignoring its
// children's own effects (those were already folded into the block's
// expression stream by the CFG walker).
type Effects struct {
	ReadsMemory  bool
	WritesMemory bool
	ReadsHeap    bool
	WritesHeap   bool
	Calls        bool
	Throws       bool
	Trap         bool
}

// Analyze reports the effects of e alone.
func Analyze(e ir.Expr) Effects {
	switch n := e.(type) {
	case *ir.Load:
		return Effects{ReadsMemory: true, Trap: true}
	case *ir.Store:
		return Effects{WritesMemory: true, Trap: true}
	case *ir.StructGet:
		return Effects{ReadsHeap: true, Trap: true}
	case *ir.StructSet:
		return Effects{WritesHeap: true, Trap: true}
	case *ir.Call:
		return Effects{Calls: true, Throws: n.Traps, Trap: n.Traps}
	default:
		return Effects{}
	}
}

// ReachesGlobalCode reports whether e may transfer control to or be
// observed by code outside the function: a call, throw, trap, or a
// Return node itself.
func ReachesGlobalCode(e ir.Expr, eff Effects) bool {
	if eff.Calls || eff.Throws || eff.Trap {
		return true
	}
	_, isReturn := e.(*ir.Return)
	return isReturn
}
