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

package ir

import "github.com/wasmopt/localflow/internal/types"

// Function is a single function body: parameters, declared local types,
// and a root expression. Indices 0..len(Params)-1 are parameters;
// len(Params)..len(Params)+len(Vars)-1 are variables.
type Function struct {
	Name   string
	Params []types.Type
	Vars   []types.Type
	Body   Expr
}

// NumLocals returns the total number of parameters plus variables.
func (f *Function) NumLocals() int {
	return len(f.Params) + len(f.Vars)
}

// VarBase is the first variable index (== number of parameters).
func (f *Function) VarBase() VarIndex {
	return VarIndex(len(f.Params))
}

// IsParam reports whether index names a parameter.
func (f *Function) IsParam(index VarIndex) bool {
	return int(index) < len(f.Params)
}

// IsVar reports whether index names a variable (not a parameter).
func (f *Function) IsVar(index VarIndex) bool {
	return !f.IsParam(index)
}

// LocalType returns the declared type of a parameter or variable.
func (f *Function) LocalType(index VarIndex) types.Type {
	if f.IsParam(index) {
		return f.Params[index]
	}
	return f.Vars[int(index)-len(f.Params)]
}

// SetVarType overwrites the declared type of variable index. index must
// not name a parameter.
func (f *Function) SetVarType(index VarIndex, t types.Type) {
	f.Vars[int(index)-len(f.Params)] = t
}

// Module is the optimizer root: a set of functions plus module-wide
// feature flags read by the passes.
type Module struct {
	Functions []*Function
	Features  FeatureSet
}

// FeatureSet toggles the module-level capabilities the passes consult.
// Mirrors wasm proposal feature flags (GC, non-nullable locals).
type FeatureSet struct {
	GC               bool
	NonNullableLocals bool
}

// HasGC reports whether managed heap types are enabled.
func (f FeatureSet) HasGC() bool { return f.GC }

// HasNonNullableLocals reports whether locals may be declared
// non-nullable.
func (f FeatureSet) HasNonNullableLocals() bool { return f.GC && f.NonNullableLocals }
