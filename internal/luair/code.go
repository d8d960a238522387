// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luair

import (
	"fmt"
	"iter"
	"maps"

	"github.com/luavixen/rembulan-sub001/internal/sets"
	"github.com/luavixen/rembulan-sub001/internal/xmaps"
)

// BasicBlock is an ordered sequence of non-terminator nodes
// followed by exactly one terminator,
// identified by a label unique within its function.
type BasicBlock struct {
	label Label
	nodes []Node
	term  Terminator
}

// NewBasicBlock returns a new block with the given body and terminator.
// NewBasicBlock panics if term is nil
// or any node of the body is itself a terminator:
// only the terminator may branch or return.
func NewBasicBlock(label Label, body []Node, term Terminator) *BasicBlock {
	if term == nil {
		panic("basic block without terminator")
	}
	for _, n := range body {
		if _, isTerm := n.(Terminator); isTerm {
			panic("terminator in basic block body")
		}
	}
	nodes := make([]Node, len(body))
	copy(nodes, body)
	return &BasicBlock{label: label, nodes: nodes, term: term}
}

// Label returns the block's label.
func (b *BasicBlock) Label() Label { return b.label }

// Len returns the number of nodes in the block,
// including the terminator.
func (b *BasicBlock) Len() int { return len(b.nodes) + 1 }

// Node returns the i-th node of the block;
// index Len()-1 is the terminator.
func (b *BasicBlock) Node(i int) Node {
	if i == len(b.nodes) {
		return b.term
	}
	return b.nodes[i]
}

// Body returns an iterator over the block's non-terminator nodes.
func (b *BasicBlock) Body() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range b.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Terminator returns the block's terminator.
func (b *BasicBlock) Terminator() Terminator { return b.term }

// Code is a function's control-flow graph:
// a mapping from labels to basic blocks with a distinguished entry.
type Code struct {
	entry  Label
	blocks map[Label]*BasicBlock
}

// NewCode returns a new [Code] over the given block map,
// validating its invariants:
// the entry label has a block,
// every label any terminator names has a block,
// every block's label matches its key,
// and every block is reachable from the entry
// (an unreachable block is a translator bug).
func NewCode(entry Label, blocks map[Label]*BasicBlock) (*Code, error) {
	if _, ok := blocks[entry]; !ok {
		return nil, fmt.Errorf("new code: entry %v has no block", entry)
	}
	for l, b := range blocks {
		if b.Label() != l {
			return nil, fmt.Errorf("new code: block %v stored under label %v", b.Label(), l)
		}
		for _, succ := range b.Terminator().Successors() {
			if _, ok := blocks[succ]; !ok {
				return nil, fmt.Errorf("new code: %v names missing successor %v", l, succ)
			}
		}
	}
	if seen := reachable(entry, blocks); seen.Len() != len(blocks) {
		for l := range blocks {
			if !seen.Has(l) {
				return nil, fmt.Errorf("new code: block %v unreachable from entry", l)
			}
		}
	}
	return &Code{entry: entry, blocks: maps.Clone(blocks)}, nil
}

// Entry returns the entry label.
func (c *Code) Entry() Label { return c.entry }

// Len returns the number of blocks.
func (c *Code) Len() int { return len(c.blocks) }

// Block returns the block with the given label,
// or nil if the label is not part of this function.
func (c *Code) Block(l Label) *BasicBlock { return c.blocks[l] }

// Labels returns an iterator over the function's labels
// in ascending order.
func (c *Code) Labels() iter.Seq[Label] {
	return func(yield func(Label) bool) {
		for _, l := range xmaps.SortedKeys(c.blocks) {
			if !yield(l) {
				return
			}
		}
	}
}

// Blocks returns an iterator over the function's blocks
// in ascending label order.
func (c *Code) Blocks() iter.Seq[*BasicBlock] {
	return func(yield func(*BasicBlock) bool) {
		for _, l := range xmaps.SortedKeys(c.blocks) {
			if !yield(c.blocks[l]) {
				return
			}
		}
	}
}

// reachable computes the labels reachable from entry over a raw block map.
func reachable(entry Label, blocks map[Label]*BasicBlock) sets.Set[Label] {
	seen := sets.New(entry)
	stack := []Label{entry}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b, ok := blocks[l]
		if !ok {
			continue
		}
		for _, succ := range b.Terminator().Successors() {
			if !seen.Has(succ) {
				seen.Add(succ)
				stack = append(stack, succ)
			}
		}
	}
	return seen
}

// UpvalueDescriptor describes one entry of a function's capture list.
type UpvalueDescriptor struct {
	// Name is the captured variable's name, for diagnostics.
	Name string
	// InStack is true if the upvalue captures a local register
	// of the enclosing function;
	// otherwise it captures one of the enclosing function's upvalues.
	InStack bool
	// Index is the enclosing function's local register number
	// or upvalue slot, depending on InStack.
	Index int
}

// Function is one function's translated IR:
// its control-flow graph, its arity, and its capture list.
type Function struct {
	// Name is a diagnostic name such as "main" or "function <3:9>".
	Name string
	// NumParams is the number of fixed (named) parameters.
	NumParams int
	// IsVararg reports whether the function accepts extra arguments.
	IsVararg bool
	// Upvalues is the function's capture list, in slot order.
	Upvalues []UpvalueDescriptor
	// LineDefined is the line of the function literal,
	// or zero for the main chunk.
	LineDefined int

	Code *Code
}

// CPUAccounting selects how the eventual code emitter
// inserts CPU accounting.
// It has no effect on IR shape and is forwarded on the [Module].
type CPUAccounting int

// CPU accounting modes.
const (
	// CPUAccountingNone emits no accounting.
	CPUAccountingNone CPUAccounting = iota
	// CPUAccountingEveryBasicBlock
	// charges ticks at every basic block boundary.
	CPUAccountingEveryBasicBlock
)

func (m CPUAccounting) String() string {
	switch m {
	case CPUAccountingNone:
		return "none"
	case CPUAccountingEveryBasicBlock:
		return "every-basic-block"
	default:
		return fmt.Sprintf("CPUAccounting(%d)", int(m))
	}
}

// Module is the result of translating one chunk.
type Module struct {
	// Main is the top-level chunk,
	// translated as an anonymous vararg function.
	Main *Function
	// Functions lists the nested functions in creation order;
	// [Closure.Function] indexes into it.
	Functions []*Function
	// CPUAccounting is the accounting mode
	// forwarded unchanged to later passes.
	CPUAccounting CPUAccounting
}

// Function returns the module function with the given id,
// or nil if no such function exists.
func (m *Module) Function(id FunctionID) *Function {
	if id < 0 || int(id) >= len(m.Functions) {
		return nil
	}
	return m.Functions[id]
}
