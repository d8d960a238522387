// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luasem

import (
	"fmt"

	"github.com/luavixen/rembulan-sub001/internal/lualex"
)

// AttributeCategory identifies one of the attribute side tables
// produced by [Resolve].
// The zero value means the error is not about a missing attribute.
type AttributeCategory int

// Attribute categories.
const (
	NoCategory AttributeCategory = iota
	CategoryResolvedVariable
	CategoryResolvedLabel
	CategoryFunctionVarInfo
	CategoryVarMapping
)

var attributeCategoryStrings = [...]string{
	NoCategory:               "<none>",
	CategoryResolvedVariable: "ResolvedVariable",
	CategoryResolvedLabel:    "ResolvedLabel",
	CategoryFunctionVarInfo:  "FunctionVarInfo",
	CategoryVarMapping:       "VarMapping",
}

// String returns the category's name.
func (c AttributeCategory) String() string {
	if c < 0 || int(c) >= len(attributeCategoryStrings) {
		return fmt.Sprintf("AttributeCategory(%d)", int(c))
	}
	return attributeCategoryStrings[c]
}

// InvariantError reports a violation of a compiler invariant:
// an attribute the analysis pass was expected to attach is absent,
// or a later pass observed a state it was promised could not occur.
// It is a bug in the compilation pipeline, not a user diagnostic.
type InvariantError struct {
	// Category is the missing attribute's category,
	// or [NoCategory] when the violation is not an attribute lookup.
	Category AttributeCategory
	// Description is a human-readable account of the violation.
	Description string
	// Pos is the source position of the offending syntax node.
	Pos lualex.Position
}

func (e *InvariantError) Error() string {
	if e.Category != NoCategory {
		return fmt.Sprintf("internal compiler error: no %v attribute at %v: %s", e.Category, e.Pos, e.Description)
	}
	return fmt.Sprintf("internal compiler error: %s at %v", e.Description, e.Pos)
}

// missingAttribute returns the error for a failed required lookup.
func missingAttribute(c AttributeCategory, pos lualex.Position, what string) *InvariantError {
	return &InvariantError{
		Category:    c,
		Description: what,
		Pos:         pos,
	}
}
