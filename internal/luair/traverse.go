// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luair

import (
	"iter"

	"github.com/luavixen/rembulan-sub001/internal/deque"
	"github.com/luavixen/rembulan-sub001/internal/sets"
)

// Nodes returns a forward-only iterator over every node of the function:
// each block's non-terminator nodes followed by its terminator,
// block by block in the order of [Code.Blocks].
// Passes that touch every node once with no branch sensitivity
// are built on this iterator.
func (c *Code) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for b := range c.Blocks() {
			for n := range b.Body() {
				if !yield(n) {
					return
				}
			}
			if !yield(b.Terminator()) {
				return
			}
		}
	}
}

// BFS returns the function's labels in breadth-first order
// from the entry.
// Successors are discovered through each block's terminator;
// ties are broken by the terminator's declared successor order,
// so the traversal is deterministic.
// Each reachable label appears exactly once.
func (c *Code) BFS() []Label {
	order := make([]Label, 0, len(c.blocks))
	seen := sets.New(c.entry)
	queue := new(deque.Deque[Label])
	queue.PushBack(c.entry)
	for queue.Len() > 0 {
		l, _ := queue.Front()
		queue.PopFront(1)
		order = append(order, l)
		for _, succ := range c.blocks[l].Terminator().Successors() {
			if !seen.Has(succ) {
				seen.Add(succ)
				queue.PushBack(succ)
			}
		}
	}
	return order
}

// InLabels computes, for every label L of the function,
// the set of labels whose terminator lists L as a successor.
// Every label of the function is a key;
// labels with no predecessors map to empty sets.
// The returned map must not be modified.
func (c *Code) InLabels() map[Label]sets.Set[Label] {
	in := make(map[Label]sets.Set[Label], len(c.blocks))
	for l := range c.blocks {
		in[l] = make(sets.Set[Label])
	}
	for l, b := range c.blocks {
		for _, succ := range b.Terminator().Successors() {
			in[succ].Add(l)
		}
	}
	return in
}
