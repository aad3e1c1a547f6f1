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

// Package passes registers the dataflow core's two optimizer passes and
// drives them over a module's functions in parallel. A Pass mirrors the
// shape of golang.org/x/tools/go/analysis.Analyzer (Name/Doc/Run/Requires)
// without depending on it, since that framework is wired to real Go
// ASTs and this core runs over its own IR.
package passes

import (
	"fmt"

	"github.com/wasmopt/localflow/internal/config"
	"github.com/wasmopt/localflow/internal/deadstore"
	"github.com/wasmopt/localflow/internal/ir"
	"github.com/wasmopt/localflow/internal/subtyper"
)

// Pass is a single named transformation over one function.
type Pass struct {
	Name     string
	Doc      string
	Run      func(fn *ir.Function, features ir.FeatureSet) (interface{}, error)
	Requires []*Pass
}

// DeadStoreElimination removes stores whose written value is never
// observed by any later load, across the global-cell, linear-memory,
// and managed-heap families.
var DeadStoreElimination = &Pass{
	Name: "dead-store-elimination",
	Doc:  "eliminates local-variable-provable dead stores to globals, memory, and heap fields",
	Run: func(fn *ir.Function, features ir.FeatureSet) (interface{}, error) {
		return deadstore.Run(fn, features), nil
	},
}

// LocalSubtyping narrows each local's declared type to the least upper
// bound of the values actually assigned to it. Declared to Require
// DeadStoreElimination: subtyping should see the IR after dead stores
// (and the locals they alone kept live) have already been removed.
var LocalSubtyping = &Pass{
	Name:     "local-subtyping",
	Doc:      "narrows local variable types to the types actually assigned",
	Requires: []*Pass{DeadStoreElimination},
	Run: func(fn *ir.Function, features ir.FeatureSet) (interface{}, error) {
		return nil, subtyper.Run(fn, features)
	},
}

// All is the registry of every pass this module provides, in a stable
// order callers may rely on for -help output and similar listings.
var All = []*Pass{DeadStoreElimination, LocalSubtyping}

// Selected returns the subset of All enabled by sel, preserving
// registration order.
func Selected(sel config.PassSelection) []*Pass {
	var out []*Pass
	for _, p := range All {
		switch p.Name {
		case DeadStoreElimination.Name:
			if sel.DeadStoreElimination {
				out = append(out, p)
			}
		case LocalSubtyping.Name:
			if sel.LocalSubtyping {
				out = append(out, p)
			}
		}
	}
	return out
}

// run executes p and everything it Requires, in dependency order, at
// most once each, for a single function.
func run(p *Pass, fn *ir.Function, features ir.FeatureSet, done map[*Pass]bool, results map[*Pass]interface{}) error {
	if done[p] {
		return nil
	}
	for _, dep := range p.Requires {
		if err := run(dep, fn, features, done, results); err != nil {
			return err
		}
	}
	res, err := p.Run(fn, features)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	results[p] = res
	done[p] = true
	return nil
}
