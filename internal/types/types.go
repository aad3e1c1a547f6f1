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

// Package types implements the minimal structural type lattice the core
// consumes as an external collaborator: least upper bound, subtyping,
// nullability, defaultability, and byte size. It is a nominal heap-type
// hierarchy plus WASM's numeric types and the nullable/non-nullable
// reference-type split, shaped after itsfuad-Ferret's and
// kanso-lang-kanso's compiler type lattices but reduced to exactly what
// the dead-store and subtyping passes need.
package types

import "fmt"

// Nullability of a reference type.
type Nullability int

const (
	NonNullable Nullability = iota
	Nullable
)

// HeapType names a nominal managed-heap type. Heap types form a
// supertype chain through Super; a heap type with a nil Super is a top
// type.
type HeapType struct {
	Name  string
	Super *HeapType // nil for the top type
}

// IsSubHeapOf reports whether h is other or a (transitive) subtype of other.
func (h *HeapType) IsSubHeapOf(other *HeapType) bool {
	for cur := h; cur != nil; cur = cur.Super {
		if cur == other {
			return true
		}
	}
	return false
}

// kind distinguishes the handful of type shapes this lattice models.
type kind int

const (
	kindNone kind = iota
	kindUnreachable
	kindI32
	kindI64
	kindF32
	kindF64
	kindRef
)

// Type is a value type: one of the numeric kinds, a (possibly nullable)
// heap reference, or one of the two pseudo-types None/Unreachable used
// by expressions with no value or that never return.
type Type struct {
	kind kind
	heap *HeapType
	null Nullability
}

var (
	None        = Type{kind: kindNone}
	Unreachable = Type{kind: kindUnreachable}
	I32         = Type{kind: kindI32}
	I64         = Type{kind: kindI64}
	F32         = Type{kind: kindF32}
	F64         = Type{kind: kindF64}
)

// Ref constructs a reference type to heap, with the given nullability.
func Ref(heap *HeapType, null Nullability) Type {
	return Type{kind: kindRef, heap: heap, null: null}
}

func (t Type) String() string {
	switch t.kind {
	case kindNone:
		return "none"
	case kindUnreachable:
		return "unreachable"
	case kindI32:
		return "i32"
	case kindI64:
		return "i64"
	case kindF32:
		return "f32"
	case kindF64:
		return "f64"
	case kindRef:
		if t.null == Nullable {
			return fmt.Sprintf("(ref null %s)", t.heap.Name)
		}
		return fmt.Sprintf("(ref %s)", t.heap.Name)
	}
	return "invalid"
}

// IsRef reports whether t is a heap reference type.
func (t Type) IsRef() bool { return t.kind == kindRef }

// ByteSize returns the in-memory size of t, for comparing a Load's
// declared byte count against the size implied by its result type.
// References are pointer-sized (4 bytes, as in wasm32).
func (t Type) ByteSize() uint32 {
	switch t.kind {
	case kindI32, kindF32:
		return 4
	case kindI64, kindF64:
		return 8
	case kindRef:
		return 4
	}
	return 0
}

// GetHeapType returns the heap type of a reference type. It panics if t
// is not a reference type, as does the original's Type::getHeapType().
func (t Type) GetHeapType() *HeapType {
	if !t.IsRef() {
		panic("GetHeapType of non-reference type " + t.String())
	}
	return t.heap
}

// IsNonNullable reports whether t is a non-nullable reference type.
func (t Type) IsNonNullable() bool {
	return t.kind == kindRef && t.null == NonNullable
}

// IsNullable reports whether t is a nullable reference type.
func (t Type) IsNullable() bool {
	return t.kind == kindRef && t.null == Nullable
}

// IsDefaultable reports whether the language defines an implicit
// zero/null value for t. Every type in this lattice is defaultable
// except non-nullable references (no default non-null ref exists).
func (t Type) IsDefaultable() bool {
	return !t.IsNonNullable()
}

// Default returns the type of a defaultable type's default value, which
// is t itself. The core only needs the type of the default, not its
// runtime value, so this returns a Type, not an ir.Expr (see
// localgraph's use of ⊥).
func (t Type) Default() Type {
	return t
}

// withNullability returns t with the given nullability; t must be a
// reference type.
func (t Type) withNullability(n Nullability) Type {
	t.null = n
	return t
}

// AsNullable returns the nullable counterpart of a non-nullable
// reference type.
func (t Type) AsNullable() Type {
	return t.withNullability(Nullable)
}

func (t Type) numericRank() (int, bool) {
	switch t.kind {
	case kindI32:
		return 0, true
	case kindI64:
		return 1, true
	case kindF32:
		return 2, true
	case kindF64:
		return 3, true
	}
	return 0, false
}

// IsSubType reports whether a is a subtype of b under this lattice.
// Numeric types are only subtypes of themselves; reference types are
// subtypes per the heap-type hierarchy and the nullability lattice
// (non-nullable <: nullable of the same or a supertype heap type).
func IsSubType(a, b Type) bool {
	if a == b {
		return true
	}
	if a.kind == kindUnreachable {
		// unreachable is a subtype of everything, as in WASM's bottom type.
		return true
	}
	if a.kind != kindRef || b.kind != kindRef {
		return false
	}
	if a.null == NonNullable && b.null == Nullable {
		return a.heap.IsSubHeapOf(b.heap)
	}
	if a.null == b.null {
		return a.heap.IsSubHeapOf(b.heap)
	}
	return false
}

// LeastUpperBound returns the most specific type that is a supertype of
// every type in ts. It panics if ts is empty or no common supertype
// exists (numerics never unify with references), matching the original's
// assert that a LUB always exists for valid input.
func LeastUpperBound(ts []Type) Type {
	if len(ts) == 0 {
		panic("LeastUpperBound of empty set")
	}
	lub := ts[0]
	for _, t := range ts[1:] {
		lub = lub2(lub, t)
	}
	return lub
}

func lub2(a, b Type) Type {
	if a == b {
		return a
	}
	if a.kind == kindUnreachable {
		return b
	}
	if b.kind == kindUnreachable {
		return a
	}
	if ar, aok := a.numericRank(); aok {
		if br, bok := b.numericRank(); bok && ar == br {
			return a
		}
		panic(fmt.Sprintf("no least upper bound for %s and %s", a, b))
	}
	if a.kind != kindRef || b.kind != kindRef {
		panic(fmt.Sprintf("no least upper bound for %s and %s", a, b))
	}
	null := NonNullable
	if a.null == Nullable || b.null == Nullable {
		null = Nullable
	}
	heap := commonSuperHeap(a.heap, b.heap)
	if heap == nil {
		panic(fmt.Sprintf("no common heap supertype for %s and %s", a.heap.Name, b.heap.Name))
	}
	return Ref(heap, null)
}

func commonSuperHeap(a, b *HeapType) *HeapType {
	ancestors := map[*HeapType]bool{}
	for cur := a; cur != nil; cur = cur.Super {
		ancestors[cur] = true
	}
	for cur := b; cur != nil; cur = cur.Super {
		if ancestors[cur] {
			return cur
		}
	}
	return nil
}
