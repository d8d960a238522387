// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

// Package luasem resolves the names and labels of a Lua syntax tree.
//
// The result of [Resolve] is a set of side tables keyed by syntax node
// identity, one per attribute category:
// variable uses, label references, per-function variable information,
// and the name-to-binding mapping of each declaring statement.
// The translator borrows the tables read-only through the
// required-lookup methods on [Info];
// a failed lookup is an [InvariantError], never a user diagnostic.
package luasem

import (
	"github.com/luavixen/rembulan-sub001/internal/luasyntax"
)

// Variable is the identity of a single local variable binding.
// Two bindings are the same variable only if their pointers are equal.
type Variable struct {
	// Name is the variable's name as written.
	Name string
}

// Label is the identity of a single label definition.
type Label struct {
	// Name is the label's name as written.
	Name string
}

// VariableUseKind classifies a resolved variable reference.
type VariableUseKind int

// Variable reference kinds.
const (
	// VariableUseLocal references a local variable
	// of the function containing the reference.
	VariableUseLocal VariableUseKind = iota
	// VariableUseUpvalue references a local variable
	// of a lexically enclosing function.
	VariableUseUpvalue
	// VariableUseGlobal references a field of the environment.
	VariableUseGlobal
)

// VariableUse is the resolution of a single [luasyntax.NameExpr].
type VariableUse struct {
	Kind VariableUseKind
	// Var is the referenced binding
	// for [VariableUseLocal] and [VariableUseUpvalue]; nil for globals.
	Var *Variable
	// Name is the referenced name for [VariableUseGlobal].
	Name string
}

// FunctionInfo describes the variables of one function
// (or of the top-level chunk, which is an anonymous vararg function).
type FunctionInfo struct {
	// Params are the function's parameters in declaration order.
	Params []*Variable
	// Locals are the function's declared local variables
	// (excluding parameters) in declaration order.
	Locals []*Variable
	// Upvalues are the variables of enclosing functions
	// captured by this function, in order of first use.
	Upvalues []*Variable
	// IsVararg reports whether the function accepts extra arguments.
	IsVararg bool
}

// Info holds the attribute side tables produced by [Resolve].
type Info struct {
	variables   map[*luasyntax.NameExpr]VariableUse
	labels      map[luasyntax.Stat]*Label
	functions   map[luasyntax.Node]*FunctionInfo
	varMappings map[luasyntax.Stat]map[string]*Variable
}

func newInfo() *Info {
	return &Info{
		variables:   make(map[*luasyntax.NameExpr]VariableUse),
		labels:      make(map[luasyntax.Stat]*Label),
		functions:   make(map[luasyntax.Node]*FunctionInfo),
		varMappings: make(map[luasyntax.Stat]map[string]*Variable),
	}
}

// VariableUse returns the resolution of the given variable reference.
// Every [luasyntax.NameExpr] in a resolved tree has one;
// absence is a compiler invariant violation.
func (info *Info) VariableUse(n *luasyntax.NameExpr) (VariableUse, error) {
	use, ok := info.variables[n]
	if !ok {
		return VariableUse{}, missingAttribute(CategoryResolvedVariable, n.Pos(), "variable '"+n.Name+"' not resolved")
	}
	return use, nil
}

// Label returns the label binding of a [*luasyntax.LabelStat]
// or [*luasyntax.GotoStat].
// Absence is a compiler invariant violation.
func (info *Info) Label(s luasyntax.Stat) (*Label, error) {
	l, ok := info.labels[s]
	if !ok {
		return nil, missingAttribute(CategoryResolvedLabel, s.Pos(), "label statement not resolved")
	}
	return l, nil
}

// FunctionInfo returns the variable information of a
// [*luasyntax.FunctionExpr] or of the chunk's [*luasyntax.Block].
// Absence is a compiler invariant violation.
func (info *Info) FunctionInfo(n luasyntax.Node) (*FunctionInfo, error) {
	fi, ok := info.functions[n]
	if !ok {
		return nil, missingAttribute(CategoryFunctionVarInfo, n.Pos(), "function has no variable info")
	}
	return fi, nil
}

// VarMapping returns the name-to-binding mapping
// of a statement that introduces local variables.
// Absence is a compiler invariant violation.
func (info *Info) VarMapping(s luasyntax.Stat) (map[string]*Variable, error) {
	m, ok := info.varMappings[s]
	if !ok {
		return nil, missingAttribute(CategoryVarMapping, s.Pos(), "declaring statement has no variable mapping")
	}
	return m, nil
}
