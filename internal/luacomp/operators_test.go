// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luacomp

import (
	"testing"

	"github.com/luavixen/rembulan-sub001/internal/luair"
	"github.com/luavixen/rembulan-sub001/internal/luasyntax"
)

func TestBinaryOpCode(t *testing.T) {
	tests := []struct {
		op   luasyntax.BinaryOperator
		want luair.BinaryOp
		ok   bool
	}{
		{op: luasyntax.BinaryOperatorAdd, want: luair.ADD, ok: true},
		{op: luasyntax.BinaryOperatorSub, want: luair.SUB, ok: true},
		{op: luasyntax.BinaryOperatorMul, want: luair.MUL, ok: true},
		{op: luasyntax.BinaryOperatorDiv, want: luair.DIV, ok: true},
		{op: luasyntax.BinaryOperatorIDiv, want: luair.IDIV, ok: true},
		{op: luasyntax.BinaryOperatorMod, want: luair.MOD, ok: true},
		{op: luasyntax.BinaryOperatorPow, want: luair.POW, ok: true},
		{op: luasyntax.BinaryOperatorConcat, want: luair.CONCAT, ok: true},
		{op: luasyntax.BinaryOperatorBAnd, want: luair.BAND, ok: true},
		{op: luasyntax.BinaryOperatorBOr, want: luair.BOR, ok: true},
		{op: luasyntax.BinaryOperatorBXor, want: luair.BXOR, ok: true},
		{op: luasyntax.BinaryOperatorShiftL, want: luair.SHL, ok: true},
		{op: luasyntax.BinaryOperatorShiftR, want: luair.SHR, ok: true},
		{op: luasyntax.BinaryOperatorEq, want: luair.EQ, ok: true},
		{op: luasyntax.BinaryOperatorNE, want: luair.NEQ, ok: true},
		{op: luasyntax.BinaryOperatorLT, want: luair.LT, ok: true},
		{op: luasyntax.BinaryOperatorLE, want: luair.LE, ok: true},

		// Lowered structurally, not through the opcode mapping.
		{op: luasyntax.BinaryOperatorGT, want: luair.BinOpNone, ok: false},
		{op: luasyntax.BinaryOperatorGE, want: luair.BinOpNone, ok: false},
		{op: luasyntax.BinaryOperatorAnd, want: luair.BinOpNone, ok: false},
		{op: luasyntax.BinaryOperatorOr, want: luair.BinOpNone, ok: false},

		{op: luasyntax.BinaryOperatorNone, want: luair.BinOpNone, ok: false},
		{op: luasyntax.BinaryOperator(999), want: luair.BinOpNone, ok: false},
	}
	for _, test := range tests {
		got, ok := binaryOpCode(test.op)
		if got != test.want || ok != test.ok {
			t.Errorf("binaryOpCode(%v) = %v, %t; want %v, %t", test.op, got, ok, test.want, test.ok)
		}
	}
}

func TestUnaryOpCode(t *testing.T) {
	tests := []struct {
		op   luasyntax.UnaryOperator
		want luair.UnaryOp
		ok   bool
	}{
		{op: luasyntax.UnaryOperatorMinus, want: luair.UNM, ok: true},
		{op: luasyntax.UnaryOperatorBNot, want: luair.BNOT, ok: true},
		{op: luasyntax.UnaryOperatorLen, want: luair.LEN, ok: true},
		{op: luasyntax.UnaryOperatorNot, want: luair.NOT, ok: true},
		{op: luasyntax.UnaryOperatorNone, want: luair.UnOpNone, ok: false},
		{op: luasyntax.UnaryOperator(999), want: luair.UnOpNone, ok: false},
	}
	for _, test := range tests {
		got, ok := unaryOpCode(test.op)
		if got != test.want || ok != test.ok {
			t.Errorf("unaryOpCode(%v) = %v, %t; want %v, %t", test.op, got, ok, test.want, test.ok)
		}
	}
}
