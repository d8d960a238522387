// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luasyntax

import "github.com/luavixen/rembulan-sub001/internal/lualex"

// BinaryOperator is a Lua surface-level binary operator.
// The zero value is not a valid operator.
type BinaryOperator int

// Binary operators.
const (
	BinaryOperatorNone BinaryOperator = iota

	BinaryOperatorAdd
	BinaryOperatorSub
	BinaryOperatorMul
	BinaryOperatorMod
	BinaryOperatorPow
	BinaryOperatorDiv
	BinaryOperatorIDiv

	BinaryOperatorBAnd
	BinaryOperatorBOr
	BinaryOperatorBXor
	BinaryOperatorShiftL
	BinaryOperatorShiftR

	BinaryOperatorConcat

	BinaryOperatorEq
	BinaryOperatorLT
	BinaryOperatorLE
	BinaryOperatorNE
	BinaryOperatorGT
	BinaryOperatorGE

	BinaryOperatorAnd
	BinaryOperatorOr

	numBinaryOperators = iota - 1
)

var binaryOperatorStrings = [...]string{
	BinaryOperatorAdd:    "+",
	BinaryOperatorSub:    "-",
	BinaryOperatorMul:    "*",
	BinaryOperatorMod:    "%",
	BinaryOperatorPow:    "^",
	BinaryOperatorDiv:    "/",
	BinaryOperatorIDiv:   "//",
	BinaryOperatorBAnd:   "&",
	BinaryOperatorBOr:    "|",
	BinaryOperatorBXor:   "~",
	BinaryOperatorShiftL: "<<",
	BinaryOperatorShiftR: ">>",
	BinaryOperatorConcat: "..",
	BinaryOperatorEq:     "==",
	BinaryOperatorLT:     "<",
	BinaryOperatorLE:     "<=",
	BinaryOperatorNE:     "~=",
	BinaryOperatorGT:     ">",
	BinaryOperatorGE:     ">=",
	BinaryOperatorAnd:    "and",
	BinaryOperatorOr:     "or",
}

// String returns the operator as written in Lua source.
func (op BinaryOperator) String() string {
	if op <= BinaryOperatorNone || int(op) >= len(binaryOperatorStrings) {
		return "<invalid operator>"
	}
	return binaryOperatorStrings[op]
}

// UnaryOperator is a Lua surface-level unary operator.
// The zero value is not a valid operator.
type UnaryOperator int

// Unary operators.
const (
	UnaryOperatorNone UnaryOperator = iota
	UnaryOperatorMinus
	UnaryOperatorBNot
	UnaryOperatorNot
	UnaryOperatorLen

	numUnaryOperators = iota - 1
)

var unaryOperatorStrings = [...]string{
	UnaryOperatorMinus: "-",
	UnaryOperatorBNot:  "~",
	UnaryOperatorNot:   "not",
	UnaryOperatorLen:   "#",
}

// String returns the operator as written in Lua source.
func (op UnaryOperator) String() string {
	if op <= UnaryOperatorNone || int(op) >= len(unaryOperatorStrings) {
		return "<invalid operator>"
	}
	return unaryOperatorStrings[op]
}

func toBinaryOperator(tk lualex.TokenKind) (_ BinaryOperator, ok bool) {
	switch tk {
	case lualex.AddToken:
		return BinaryOperatorAdd, true
	case lualex.SubToken:
		return BinaryOperatorSub, true
	case lualex.MulToken:
		return BinaryOperatorMul, true
	case lualex.ModToken:
		return BinaryOperatorMod, true
	case lualex.PowToken:
		return BinaryOperatorPow, true
	case lualex.DivToken:
		return BinaryOperatorDiv, true
	case lualex.IntDivToken:
		return BinaryOperatorIDiv, true
	case lualex.BitAndToken:
		return BinaryOperatorBAnd, true
	case lualex.BitOrToken:
		return BinaryOperatorBOr, true
	case lualex.BitXorToken:
		return BinaryOperatorBXor, true
	case lualex.LShiftToken:
		return BinaryOperatorShiftL, true
	case lualex.RShiftToken:
		return BinaryOperatorShiftR, true
	case lualex.ConcatToken:
		return BinaryOperatorConcat, true
	case lualex.EqualToken:
		return BinaryOperatorEq, true
	case lualex.LessToken:
		return BinaryOperatorLT, true
	case lualex.LessEqualToken:
		return BinaryOperatorLE, true
	case lualex.NotEqualToken:
		return BinaryOperatorNE, true
	case lualex.GreaterToken:
		return BinaryOperatorGT, true
	case lualex.GreaterEqualToken:
		return BinaryOperatorGE, true
	case lualex.AndToken:
		return BinaryOperatorAnd, true
	case lualex.OrToken:
		return BinaryOperatorOr, true
	default:
		return BinaryOperatorNone, false
	}
}

func toUnaryOperator(tk lualex.TokenKind) (_ UnaryOperator, ok bool) {
	switch tk {
	case lualex.SubToken:
		return UnaryOperatorMinus, true
	case lualex.BitXorToken:
		return UnaryOperatorBNot, true
	case lualex.NotToken:
		return UnaryOperatorNot, true
	case lualex.LenToken:
		return UnaryOperatorLen, true
	default:
		return UnaryOperatorNone, false
	}
}

// operatorPrecedence is the precedence table for [BinaryOperator].
// Higher binds tighter; a lower right priority makes an operator
// right-associative.
var operatorPrecedence = [...]struct {
	left  uint8
	right uint8
}{
	BinaryOperatorAdd:    {10, 10},
	BinaryOperatorSub:    {10, 10},
	BinaryOperatorMul:    {11, 11},
	BinaryOperatorMod:    {11, 11},
	BinaryOperatorPow:    {14, 13}, // right associative
	BinaryOperatorDiv:    {11, 11},
	BinaryOperatorIDiv:   {11, 11},
	BinaryOperatorBAnd:   {6, 6},
	BinaryOperatorBOr:    {4, 4},
	BinaryOperatorBXor:   {5, 5},
	BinaryOperatorShiftL: {7, 7},
	BinaryOperatorShiftR: {7, 7},
	BinaryOperatorConcat: {9, 8}, // right associative
	BinaryOperatorEq:     {3, 3},
	BinaryOperatorLT:     {3, 3},
	BinaryOperatorLE:     {3, 3},
	BinaryOperatorNE:     {3, 3},
	BinaryOperatorGT:     {3, 3},
	BinaryOperatorGE:     {3, 3},
	BinaryOperatorAnd:    {2, 2},
	BinaryOperatorOr:     {1, 1},
}

const unaryPrecedence = 12
