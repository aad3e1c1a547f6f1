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

// Builder constructs replacement IR for the passes. It is deliberately
// narrow: just the two operations the dead-store pass needs to preserve
// side effects while discarding a value.
type Builder struct{}

// MakeDrop evaluates e and discards its result.
func (Builder) MakeDrop(e Expr) Expr {
	return &Drop{Value: e}
}

// MakeSequence evaluates a then b, in that order, yielding b's value.
func (Builder) MakeSequence(a, b Expr) Expr {
	return &Sequence{A: a, B: b}
}

// Fallthrough returns the value-determining sub-expression of e, skipping
// semantics-preserving wrappers. This tree has none (no Cast/Extend
// nodes), so Fallthrough is currently the identity; it exists as the
// seam described in the spec's passthrough-stripper interface so that
// adding such wrapper nodes later does not require touching callers.
func Fallthrough(e Expr) Expr {
	return e
}
