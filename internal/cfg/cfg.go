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

// Package cfg implements the generic control-flow walker the core
// consumes as an external collaborator (spec §6): it decomposes a
// function body into basic blocks with predecessor/successor links, a
// distinguished entry and exit, and emits (expression, slot) pairs in
// linear program (stack evaluation) order within each block — operands
// before the operation that consumes them, exactly as Binaryen's
// UnifiedExpressionVisitor-driven CFGWalker does (see
// original_source/src/passes/DeadStoreElimination.cpp). Adapted here
// from Binaryen's pointer-heavy C++ walker to a plain recursive builder
// over this module's expression tree, in the simpler block-boundary
// style of wippyai-wasm-runtime/liveness.go.
package cfg

import "github.com/wasmopt/localflow/internal/ir"

// BlockID identifies a basic block within one CFG.
type BlockID int

// Visited is one expression encountered while walking a block, paired
// with the slot that names its location for in-place rewriting.
type Visited struct {
	Expr ir.Expr
	Slot ir.Slot
}

// Block is a basic block: a straight-line sequence of expressions with
// no internal control-flow join or branch.
type Block struct {
	ID    BlockID
	Exprs []Visited
	Preds []*Block
	Succs []*Block
}

// CFG is the control-flow graph of one function.
type CFG struct {
	Blocks []*Block
	Entry  *Block
	Exit   *Block
}

// Build walks fn.Body and constructs its CFG.
func Build(fn *ir.Function) *CFG {
	b := &builder{cfg: &CFG{}}
	b.cfg.Entry = b.newBlock()
	final := b.visit(b.cfg.Entry, fn.Body, ir.FieldSlot(&fn.Body))
	if b.cfg.Exit == nil {
		b.cfg.Exit = b.newBlock()
	}
	if final != b.cfg.Exit {
		link(final, b.cfg.Exit)
	}
	return b.cfg
}

type builder struct {
	cfg *CFG
}

func (b *builder) newBlock() *Block {
	blk := &Block{ID: BlockID(len(b.cfg.Blocks))}
	b.cfg.Blocks = append(b.cfg.Blocks, blk)
	return blk
}

func link(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

func (b *builder) emit(cur *Block, e ir.Expr, slot ir.Slot) {
	cur.Exprs = append(cur.Exprs, Visited{Expr: e, Slot: slot})
}

// visit appends e, and any operands it evaluates, to the block stream
// starting in cur (in stack-evaluation order: operands before the
// expression that consumes them), and returns the block execution
// continues in afterward. If and Loop split blocks and Return ends one;
// Block and Sequence only visit their children in order. None of these
// four except Return is itself appended; every other node kind is an
// operand that is recursed into and then appended, post-order.
func (b *builder) visit(cur *Block, e ir.Expr, slot ir.Slot) *Block {
	if e == nil {
		return cur
	}
	switch n := e.(type) {
	case *ir.Block:
		for i := range n.List {
			cur = b.visit(cur, n.List[i], ir.SliceSlot(n.List, i))
		}
		return cur
	case *ir.Sequence:
		cur = b.visit(cur, n.A, ir.FieldSlot(&n.A))
		cur = b.visit(cur, n.B, ir.FieldSlot(&n.B))
		return cur
	case *ir.If:
		cur = b.visit(cur, n.Cond, ir.FieldSlot(&n.Cond))

		thenBlock := b.newBlock()
		link(cur, thenBlock)
		thenEnd := b.visit(thenBlock, n.Then, ir.FieldSlot(&n.Then))

		merge := b.newBlock()
		link(thenEnd, merge)

		if n.Else != nil {
			elseBlock := b.newBlock()
			link(cur, elseBlock)
			elseEnd := b.visit(elseBlock, n.Else, ir.FieldSlot(&n.Else))
			link(elseEnd, merge)
		} else {
			link(cur, merge)
		}
		return merge
	case *ir.Loop:
		header := b.newBlock()
		link(cur, header)
		bodyEnd := b.visit(header, n.Body, ir.FieldSlot(&n.Body))
		// Back edge: another iteration is possible.
		link(bodyEnd, header)
		after := b.newBlock()
		// Conservative loop-exit edge: this minimal IR has no explicit
		// break, but a trap or return inside the body can still leave the
		// loop, so downstream analyses must see a path out.
		link(bodyEnd, after)
		return after
	case *ir.Return:
		if n.Value != nil {
			cur = b.visit(cur, n.Value, ir.FieldSlot(&n.Value))
		}
		b.emit(cur, e, slot)
		if b.cfg.Exit == nil {
			b.cfg.Exit = b.newBlock()
		}
		link(cur, b.cfg.Exit)
		return b.newBlock() // unreachable continuation
	case *ir.LocalSet:
		cur = b.visit(cur, n.Value, ir.FieldSlot(&n.Value))
		b.emit(cur, e, slot)
		return cur
	case *ir.GlobalSet:
		cur = b.visit(cur, n.Value, ir.FieldSlot(&n.Value))
		b.emit(cur, e, slot)
		return cur
	case *ir.Store:
		cur = b.visit(cur, n.Ptr, ir.FieldSlot(&n.Ptr))
		cur = b.visit(cur, n.Value, ir.FieldSlot(&n.Value))
		b.emit(cur, e, slot)
		return cur
	case *ir.StructSet:
		cur = b.visit(cur, n.Ref, ir.FieldSlot(&n.Ref))
		cur = b.visit(cur, n.Value, ir.FieldSlot(&n.Value))
		b.emit(cur, e, slot)
		return cur
	case *ir.Drop:
		cur = b.visit(cur, n.Value, ir.FieldSlot(&n.Value))
		b.emit(cur, e, slot)
		return cur
	case *ir.Call:
		for i := range n.Args {
			cur = b.visit(cur, n.Args[i], ir.SliceSlot(n.Args, i))
		}
		b.emit(cur, e, slot)
		return cur
	case *ir.Load:
		cur = b.visit(cur, n.Ptr, ir.FieldSlot(&n.Ptr))
		b.emit(cur, e, slot)
		return cur
	case *ir.StructGet:
		cur = b.visit(cur, n.Ref, ir.FieldSlot(&n.Ref))
		b.emit(cur, e, slot)
		return cur
	default:
		// LocalGet, GlobalGet, Const: no operands of their own.
		b.emit(cur, e, slot)
		return cur
	}
}
