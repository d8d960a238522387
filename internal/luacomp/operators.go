// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luacomp

import (
	"github.com/luavixen/rembulan-sub001/internal/luair"
	"github.com/luavixen/rembulan-sub001/internal/luasyntax"
)

// binaryOpCode translates a surface binary operator to its IR opcode.
// The operators with no IR counterpart —
// and, or, >, and >= — report ok == false:
// the translator lowers them structurally
// (short-circuit control flow for and/or, operand swap for the rest).
// Unknown inputs also report ok == false
// so that callers can detect translator bugs.
func binaryOpCode(op luasyntax.BinaryOperator) (_ luair.BinaryOp, ok bool) {
	switch op {
	case luasyntax.BinaryOperatorAdd:
		return luair.ADD, true
	case luasyntax.BinaryOperatorSub:
		return luair.SUB, true
	case luasyntax.BinaryOperatorMul:
		return luair.MUL, true
	case luasyntax.BinaryOperatorDiv:
		return luair.DIV, true
	case luasyntax.BinaryOperatorIDiv:
		return luair.IDIV, true
	case luasyntax.BinaryOperatorMod:
		return luair.MOD, true
	case luasyntax.BinaryOperatorPow:
		return luair.POW, true
	case luasyntax.BinaryOperatorConcat:
		return luair.CONCAT, true
	case luasyntax.BinaryOperatorBAnd:
		return luair.BAND, true
	case luasyntax.BinaryOperatorBOr:
		return luair.BOR, true
	case luasyntax.BinaryOperatorBXor:
		return luair.BXOR, true
	case luasyntax.BinaryOperatorShiftL:
		return luair.SHL, true
	case luasyntax.BinaryOperatorShiftR:
		return luair.SHR, true
	case luasyntax.BinaryOperatorEq:
		return luair.EQ, true
	case luasyntax.BinaryOperatorNE:
		return luair.NEQ, true
	case luasyntax.BinaryOperatorLT:
		return luair.LT, true
	case luasyntax.BinaryOperatorLE:
		return luair.LE, true
	default:
		return luair.BinOpNone, false
	}
}

// unaryOpCode translates a surface unary operator to its IR opcode.
// Unknown inputs report ok == false.
func unaryOpCode(op luasyntax.UnaryOperator) (_ luair.UnaryOp, ok bool) {
	switch op {
	case luasyntax.UnaryOperatorMinus:
		return luair.UNM, true
	case luasyntax.UnaryOperatorBNot:
		return luair.BNOT, true
	case luasyntax.UnaryOperatorLen:
		return luair.LEN, true
	case luasyntax.UnaryOperatorNot:
		return luair.NOT, true
	default:
		return luair.UnOpNone, false
	}
}
