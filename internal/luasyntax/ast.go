// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

// Package luasyntax defines the abstract syntax tree for Lua 5.3 chunks
// and a parser that produces it.
//
// Every node carries the source position of the token that begins it.
// The tree is purely syntactic:
// name resolution is a separate pass over the finished tree.
package luasyntax

import "github.com/luavixen/rembulan-sub001/internal/lualex"

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() lualex.Position
}

// Name is an identifier that introduces or names a binding
// (a parameter, a local variable, or a loop variable).
// Identifiers in expression position are [NameExpr] nodes instead.
type Name struct {
	NamePos lualex.Position
	Name    string
}

func (n *Name) Pos() lualex.Position { return n.NamePos }

// Block is a sequence of statements with an optional trailing return.
type Block struct {
	BlockPos lualex.Position
	Stats    []Stat
	// Return is the block's return statement, or nil if it has none.
	Return *ReturnStat
}

func (b *Block) Pos() lualex.Position { return b.BlockPos }

// Stat is implemented by all statement nodes.
type Stat interface {
	Node
	stat()
}

// LocalStat is a local variable declaration:
//
//	local n1, n2 = e1, e2
type LocalStat struct {
	LocalPos lualex.Position
	Names    []*Name
	Values   []Expr
}

// LocalFunctionStat is a "local function" declaration.
// It is distinct from [LocalStat]
// because the binding is visible inside the function body.
type LocalFunctionStat struct {
	LocalPos lualex.Position
	Name     *Name
	Func     *FunctionExpr
}

// AssignStat assigns a list of values to a list of targets.
// Every target is a [*NameExpr] or an [*IndexExpr].
// "function f.a.b()" declarations are represented
// as assignments of a [*FunctionExpr].
type AssignStat struct {
	Targets []Expr
	Values  []Expr
}

// CallStat is a function or method call in statement position;
// its results are discarded.
type CallStat struct {
	Call Expr
}

// DoStat is an explicit "do ... end" block.
type DoStat struct {
	DoPos lualex.Position
	Body  *Block
}

// WhileStat is a pre-test loop.
type WhileStat struct {
	WhilePos lualex.Position
	Cond     Expr
	Body     *Block
}

// RepeatStat is a post-test loop.
// The condition is in the scope of the body's local variables.
type RepeatStat struct {
	RepeatPos lualex.Position
	Body      *Block
	Cond      Expr
}

// IfStat is an if/elseif/else chain.
// Conds[i] guards Blocks[i]; Else may be nil.
type IfStat struct {
	IfPos  lualex.Position
	Conds  []Expr
	Blocks []*Block
	Else   *Block
}

// NumericForStat is "for name = start, limit [, step] do body end".
// Step is nil when omitted.
type NumericForStat struct {
	ForPos lualex.Position
	Name   *Name
	Start  Expr
	Limit  Expr
	Step   Expr
	Body   *Block
}

// GenericForStat is "for n1, n2 in explist do body end".
type GenericForStat struct {
	ForPos lualex.Position
	Names  []*Name
	Values []Expr
	Body   *Block
}

// LabelStat is a "::name::" label definition.
type LabelStat struct {
	LabelPos lualex.Position
	Name     string
}

// GotoStat is a "goto name" statement.
type GotoStat struct {
	GotoPos lualex.Position
	Name    string
}

// BreakStat exits the innermost enclosing loop.
type BreakStat struct {
	BreakPos lualex.Position
}

// ReturnStat returns zero or more values from the enclosing function.
type ReturnStat struct {
	ReturnPos lualex.Position
	Values    []Expr
}

func (s *LocalStat) Pos() lualex.Position         { return s.LocalPos }
func (s *LocalFunctionStat) Pos() lualex.Position { return s.LocalPos }
func (s *AssignStat) Pos() lualex.Position        { return s.Targets[0].Pos() }
func (s *CallStat) Pos() lualex.Position          { return s.Call.Pos() }
func (s *DoStat) Pos() lualex.Position            { return s.DoPos }
func (s *WhileStat) Pos() lualex.Position         { return s.WhilePos }
func (s *RepeatStat) Pos() lualex.Position        { return s.RepeatPos }
func (s *IfStat) Pos() lualex.Position            { return s.IfPos }
func (s *NumericForStat) Pos() lualex.Position    { return s.ForPos }
func (s *GenericForStat) Pos() lualex.Position    { return s.ForPos }
func (s *LabelStat) Pos() lualex.Position         { return s.LabelPos }
func (s *GotoStat) Pos() lualex.Position          { return s.GotoPos }
func (s *BreakStat) Pos() lualex.Position         { return s.BreakPos }
func (s *ReturnStat) Pos() lualex.Position        { return s.ReturnPos }

func (*LocalStat) stat()         {}
func (*LocalFunctionStat) stat() {}
func (*AssignStat) stat()        {}
func (*CallStat) stat()          {}
func (*DoStat) stat()            {}
func (*WhileStat) stat()         {}
func (*RepeatStat) stat()        {}
func (*IfStat) stat()            {}
func (*NumericForStat) stat()    {}
func (*GenericForStat) stat()    {}
func (*LabelStat) stat()         {}
func (*GotoStat) stat()          {}
func (*BreakStat) stat()         {}
func (*ReturnStat) stat()        {}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	expr()
}

// NilExpr is the nil literal.
type NilExpr struct {
	NilPos lualex.Position
}

// BoolExpr is a true or false literal.
type BoolExpr struct {
	BoolPos lualex.Position
	Value   bool
}

// NumberExpr is a numeric literal.
// The integer/float distinction of the written constant is preserved.
type NumberExpr struct {
	NumPos lualex.Position
	IsInt  bool
	Int    int64
	Float  float64
}

// StringExpr is a string literal; Value holds the parsed string.
type StringExpr struct {
	StrPos lualex.Position
	Value  string
}

// VarargExpr is the "..." expression.
type VarargExpr struct {
	EllipsisPos lualex.Position
}

// NameExpr is an identifier in expression or assignment-target position.
// Its binding is determined by semantic analysis.
type NameExpr struct {
	NamePos lualex.Position
	Name    string
}

// IndexExpr is "x[key]"; field access "x.name" is represented
// with a [*StringExpr] key.
type IndexExpr struct {
	X   Expr
	Key Expr
}

// CallExpr is a function call "f(args)".
type CallExpr struct {
	Fn   Expr
	Args []Expr
}

// MethodCallExpr is a method call "x:m(args)".
type MethodCallExpr struct {
	X      Expr
	Method string
	Args   []Expr
}

// FunctionExpr is a function literal.
type FunctionExpr struct {
	FuncPos  lualex.Position
	Params   []*Name
	IsVararg bool
	Body     *Block
}

// TableField is a single entry of a table constructor.
// A nil Key indicates a positional (array part) entry.
type TableField struct {
	Key   Expr
	Value Expr
}

// TableExpr is a table constructor.
type TableExpr struct {
	LBracePos lualex.Position
	Fields    []TableField
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    BinaryOperator
	Left  Expr
	Right Expr
}

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	OpPos   lualex.Position
	Op      UnaryOperator
	Operand Expr
}

// ParenExpr is a parenthesized expression.
// Parentheses are semantically meaningful:
// they truncate multi-value expressions to a single value.
type ParenExpr struct {
	LParenPos lualex.Position
	X         Expr
}

func (e *NilExpr) Pos() lualex.Position        { return e.NilPos }
func (e *BoolExpr) Pos() lualex.Position       { return e.BoolPos }
func (e *NumberExpr) Pos() lualex.Position     { return e.NumPos }
func (e *StringExpr) Pos() lualex.Position     { return e.StrPos }
func (e *VarargExpr) Pos() lualex.Position     { return e.EllipsisPos }
func (e *NameExpr) Pos() lualex.Position       { return e.NamePos }
func (e *IndexExpr) Pos() lualex.Position      { return e.X.Pos() }
func (e *CallExpr) Pos() lualex.Position       { return e.Fn.Pos() }
func (e *MethodCallExpr) Pos() lualex.Position { return e.X.Pos() }
func (e *FunctionExpr) Pos() lualex.Position   { return e.FuncPos }
func (e *TableExpr) Pos() lualex.Position      { return e.LBracePos }
func (e *BinaryExpr) Pos() lualex.Position     { return e.Left.Pos() }
func (e *UnaryExpr) Pos() lualex.Position      { return e.OpPos }
func (e *ParenExpr) Pos() lualex.Position      { return e.LParenPos }

func (*NilExpr) expr()        {}
func (*BoolExpr) expr()       {}
func (*NumberExpr) expr()     {}
func (*StringExpr) expr()     {}
func (*VarargExpr) expr()     {}
func (*NameExpr) expr()       {}
func (*IndexExpr) expr()      {}
func (*CallExpr) expr()       {}
func (*MethodCallExpr) expr() {}
func (*FunctionExpr) expr()   {}
func (*TableExpr) expr()      {}
func (*BinaryExpr) expr()     {}
func (*UnaryExpr) expr()      {}
func (*ParenExpr) expr()      {}

// IsMultiValue reports whether e can produce a variable number of values
// (a call or the vararg expression).
func IsMultiValue(e Expr) bool {
	switch e.(type) {
	case *CallExpr, *MethodCallExpr, *VarargExpr:
		return true
	default:
		return false
	}
}
