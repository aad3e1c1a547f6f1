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

// Package ir defines the minimal WASM-shaped expression tree that the
// dataflow core operates on. The surface parser and binary codec that
// would normally produce this tree are out of scope for this module; ir
// is the black-box data model described in the spec's data model
// section, built directly rather than decoded.
package ir

import "github.com/wasmopt/localflow/internal/types"

// VarIndex identifies a function parameter or local variable.
type VarIndex uint32

// Expr is any node in a function body.
type Expr interface {
	isExpr()
	// Type returns the static type this expression evaluates to.
	Type() types.Type
}

// base carries a memoized type shared by every concrete node.
type base struct {
	typ types.Type
}

func (base) isExpr() {}

// LocalGet reads a local variable.
type LocalGet struct {
	base
	Index VarIndex
}

// LocalSet writes a local variable. If IsTee, the set also yields Value
// as its own value.
type LocalSet struct {
	base
	Index  VarIndex
	Value  Expr
	IsTee  bool
}

// GlobalGet reads a named module-wide mutable cell.
type GlobalGet struct {
	base
	Name string
}

// GlobalSet writes a named module-wide mutable cell.
type GlobalSet struct {
	base
	Name  string
	Value Expr
}

// Load reads from linear memory.
type Load struct {
	base
	Ptr      Expr
	Offset   uint32
	Bytes    uint32
	IsAtomic bool
}

// Store writes to linear memory.
type Store struct {
	base
	Ptr      Expr
	Value    Expr
	Offset   uint32
	Bytes    uint32
	IsAtomic bool
}

// StructGet reads a field of a managed-heap record.
type StructGet struct {
	base
	Ref   Expr
	Index uint32
}

// StructSet writes a field of a managed-heap record.
type StructSet struct {
	base
	Ref   Expr
	Value Expr
	Index uint32
}

// Const is a literal value.
type Const struct {
	base
	Value int64
}

// Return exits the function, optionally yielding Value. It is always an
// escape marker (see Effects).
type Return struct {
	base
	Value Expr
}

// Call invokes another function. Stands in for the full set of
// call/throw/trap escape markers: anything that may reach code outside
// the function is modeled as a Call for this core's purposes.
type Call struct {
	base
	Target string
	Args   []Expr
	Traps  bool
}

// Drop evaluates Value and discards the result.
type Drop struct {
	base
	Value Expr
}

// Sequence evaluates A then B, yielding B's value.
type Sequence struct {
	base
	A, B Expr
}

// Block is an ordered list of expressions evaluated in order, yielding
// the last one's value (or none, if empty).
type Block struct {
	base
	List []Expr
}

// If evaluates Cond, then either Then or Else.
type If struct {
	base
	Cond, Then, Else Expr
}

// Loop repeats Body; Body is expected to contain its own exit condition
// via surrounding control-flow nodes built by the CFG walker.
type Loop struct {
	base
	Body Expr
}

func (g *LocalGet) Type() types.Type    { return g.typ }
func (s *LocalSet) Type() types.Type    { if s.IsTee { return s.typ }; return types.None }
func (g *GlobalGet) Type() types.Type   { return g.typ }
func (s *GlobalSet) Type() types.Type   { return types.None }
func (l *Load) Type() types.Type        { return l.typ }
func (s *Store) Type() types.Type       { return types.None }
func (g *StructGet) Type() types.Type   { return g.typ }
func (s *StructSet) Type() types.Type   { return types.None }
func (c *Const) Type() types.Type       { return c.typ }
func (r *Return) Type() types.Type      { return types.Unreachable }
func (c *Call) Type() types.Type        { return c.typ }
func (d *Drop) Type() types.Type        { return types.None }
func (s *Sequence) Type() types.Type    { return s.B.Type() }
func (b *Block) Type() types.Type {
	if len(b.List) == 0 {
		return types.None
	}
	return b.List[len(b.List)-1].Type()
}
func (i *If) Type() types.Type  { return i.typ }
func (l *Loop) Type() types.Type { return types.None }

// SetType overrides the memoized type of a node produced by LocalSubtyper
// refinement (gets, tees) or ReFinalize (If). Block has no SetType: its
// type is always that of its last expression.
func (g *LocalGet) SetType(t types.Type)  { g.typ = t }
func (s *LocalSet) SetType(t types.Type)  { s.typ = t }
func (c *Const) SetType(t types.Type)     { c.typ = t }
func (i *If) SetType(t types.Type)        { i.typ = t }
func (g *GlobalGet) SetType(t types.Type) { g.typ = t }
func (l *Load) SetType(t types.Type)      { l.typ = t }
func (g *StructGet) SetType(t types.Type) { g.typ = t }

// NewLocalGet/NewLocalSet/NewConst construct nodes with a fixed type,
// for use by tests and by builder helpers.
func NewLocalGet(index VarIndex, t types.Type) *LocalGet {
	return &LocalGet{base: base{typ: t}, Index: index}
}

func NewLocalSet(index VarIndex, value Expr, isTee bool) *LocalSet {
	t := types.None
	if isTee {
		t = value.Type()
	}
	return &LocalSet{base: base{typ: t}, Index: index, Value: value, IsTee: isTee}
}

func NewConst(v int64, t types.Type) *Const {
	return &Const{base: base{typ: t}, Value: v}
}

// Finalize recomputes a tee's memoized type from its value, mirroring
// the original's LocalSet::finalize() for tees.
func (s *LocalSet) Finalize() {
	if s.IsTee {
		s.typ = s.Value.Type()
	}
}
