// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

// Package xiter provides various functions useful with iterators of any type.
package xiter

import "iter"

// All reports whether f reports true for all elements in seq.
func All[T any](seq iter.Seq[T], f func(T) bool) bool {
	for x := range seq {
		if !f(x) {
			return false
		}
	}
	return true
}

// Count returns the number of elements in seq.
func Count[T any](seq iter.Seq[T]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}
