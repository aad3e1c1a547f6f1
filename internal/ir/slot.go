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

// Slot names the parent location of a node so it can be replaced without
// relinking the tree. Go has no safe pointer-to-interface-slot (a slice
// element's address is unstable across append), so a Slot is instead a
// closure pair capturing however the walker reached the node: Get reads
// the current occupant, Set replaces it.
type Slot struct {
	Get func() Expr
	Set func(Expr)
}

// Replace overwrites the expression at this slot.
func (s Slot) Replace(e Expr) {
	s.Set(e)
}

// FieldSlot returns a Slot bound to *field, the common case of a node
// referenced by a single pointer-typed struct field.
func FieldSlot(field *Expr) Slot {
	return Slot{
		Get: func() Expr { return *field },
		Set: func(e Expr) { *field = e },
	}
}

// SliceSlot returns a Slot bound to list[i].
func SliceSlot(list []Expr, i int) Slot {
	return Slot{
		Get: func() Expr { return list[i] },
		Set: func(e Expr) { list[i] = e },
	}
}
