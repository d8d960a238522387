// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luacomp

import (
	"fmt"

	"github.com/luavixen/rembulan-sub001/internal/luair"
	"github.com/luavixen/rembulan-sub001/internal/lualex"
	"github.com/luavixen/rembulan-sub001/internal/luasem"
	"github.com/luavixen/rembulan-sub001/internal/sets"
	"github.com/luavixen/rembulan-sub001/internal/xslices"
)

// funcState is the builder state for one function under translation.
// One funcState exists per function literal (and one for the chunk),
// and is discarded when that function's translation returns.
type funcState struct {
	parent *funcState
	fn     *luair.Function
	id     luair.FunctionID
	pos    lualex.Position

	// blocks holds the sealed basic blocks so far.
	blocks map[luair.Label]*luair.BasicBlock
	entry  luair.Label

	// The block under construction.
	curLabel luair.Label
	curNodes []luair.Node
	curOpen  bool

	nextLabel int
	nextVal   int
	nextMulti int

	// locals maps each binding to the register that stores it.
	locals map[*luasem.Variable]luair.Val
	// upvals maps each captured binding to its slot,
	// mirroring fn.Upvalues.
	upvals map[*luasem.Variable]luair.UpvalueIndex

	// breakTargets is the stack of labels a break statement jumps to.
	breakTargets []luair.Label
	// labelBlocks maps resolved labels to their IR labels.
	// A forward goto allocates a placeholder entry;
	// defining the label later supplies its block.
	labelBlocks map[*luasem.Label]*labelRef
}

// labelRef is a label's IR label
// plus the position of its first reference, for diagnostics.
type labelRef struct {
	label luair.Label
	pos   lualex.Position
}

// invariantf builds a compiler invariant violation error.
func invariantf(pos lualex.Position, format string, args ...any) error {
	return &luasem.InvariantError{
		Description: fmt.Sprintf(format, args...),
		Pos:         pos,
	}
}

func (fs *funcState) newVal() luair.Val {
	v := luair.Val(fs.nextVal)
	fs.nextVal++
	return v
}

func (fs *funcState) newMulti() luair.MultiVal {
	m := luair.MultiVal(fs.nextMulti)
	fs.nextMulti++
	return m
}

func (fs *funcState) newLabel() luair.Label {
	l := luair.Label(fs.nextLabel)
	fs.nextLabel++
	return l
}

// emit appends a node to the block under construction.
func (fs *funcState) emit(n luair.Node) {
	if !fs.curOpen {
		panic("emit into sealed block")
	}
	fs.curNodes = append(fs.curNodes, n)
}

// terminate seals the block under construction.
// The translator starts a fresh block immediately afterwards,
// so a block is always open between statements.
func (fs *funcState) terminate(t luair.Terminator) {
	if !fs.curOpen {
		panic("terminate sealed block")
	}
	fs.blocks[fs.curLabel] = luair.NewBasicBlock(fs.curLabel, fs.curNodes, t)
	fs.curNodes = nil
	fs.curOpen = false
}

// startBlock begins constructing the block with the given label.
func (fs *funcState) startBlock(l luair.Label) {
	if fs.curOpen {
		panic("start block while another is open")
	}
	if _, sealed := fs.blocks[l]; sealed {
		panic("label reused for a second block")
	}
	fs.curLabel = l
	fs.curNodes = nil
	fs.curOpen = true
}

// continueAt seals the current block with a jump to l
// and starts constructing l.
func (fs *funcState) continueAt(l luair.Label) {
	fs.terminate(&luair.Jmp{Target: l})
	fs.startBlock(l)
}

// labelFor returns the IR label for a resolved label,
// allocating a placeholder on first reference.
func (fs *funcState) labelFor(l *luasem.Label, pos lualex.Position) luair.Label {
	if ref, ok := fs.labelBlocks[l]; ok {
		return ref.label
	}
	ref := &labelRef{label: fs.newLabel(), pos: pos}
	fs.labelBlocks[l] = ref
	return ref.label
}

func (fs *funcState) pushBreak(exit luair.Label) {
	fs.breakTargets = append(fs.breakTargets, exit)
}

func (fs *funcState) popBreak() {
	fs.breakTargets = xslices.Pop(fs.breakTargets, 1)
}

// breakTarget returns the innermost loop exit label.
func (fs *funcState) breakTarget() (luair.Label, bool) {
	if len(fs.breakTargets) == 0 {
		return 0, false
	}
	return xslices.Last(fs.breakTargets), true
}

// close finishes the function:
// the open block is terminated with a bare return,
// undefined goto targets are rejected,
// blocks unreachable from the entry are discarded
// (trailing code after return lands in such blocks),
// and the finished control-flow graph is sealed into fn.
func (fs *funcState) close() (*luair.Function, error) {
	if fs.curOpen {
		fs.terminate(&luair.Ret{Tail: luair.NoMultiVal})
	}
	for sem, ref := range fs.labelBlocks {
		if _, defined := fs.blocks[ref.label]; !defined {
			return nil, invariantf(ref.pos, "goto target '%s' undefined at end of function", sem.Name)
		}
	}

	seen := sets.New(fs.entry)
	stack := []luair.Label{fs.entry}
	for len(stack) > 0 {
		l := xslices.Last(stack)
		stack = xslices.Pop(stack, 1)
		b, ok := fs.blocks[l]
		if !ok {
			return nil, invariantf(fs.pos, "branch to label %v with no block", l)
		}
		for _, succ := range b.Terminator().Successors() {
			if !seen.Has(succ) {
				seen.Add(succ)
				stack = append(stack, succ)
			}
		}
	}
	pruned := make(map[luair.Label]*luair.BasicBlock, seen.Len())
	for l, b := range fs.blocks {
		if seen.Has(l) {
			pruned[l] = b
		}
	}

	code, err := luair.NewCode(fs.entry, pruned)
	if err != nil {
		return nil, invariantf(fs.pos, "%v", err)
	}
	fs.fn.Code = code
	return fs.fn, nil
}
