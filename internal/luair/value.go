// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luair

import (
	"math"
	"strconv"
	"strings"

	"github.com/luavixen/rembulan-sub001/internal/lualex"
)

type valueType byte

const (
	valueTypeNil valueType = iota
	valueTypeFalse
	valueTypeTrue
	valueTypeInteger
	valueTypeFloat
	valueTypeString
)

// Value is the subset of Lua values that can appear as constants
// in the IR: nil, booleans, integers, floats, and strings.
// The integer/float distinction of Lua 5.3 is preserved.
// The zero value is nil.
type Value struct {
	_    [0]func() // Prevent comparing with "==".
	bits uint64
	s    string
	t    valueType
}

// BoolValue converts a boolean to a [Value].
func BoolValue(b bool) Value {
	if b {
		return Value{t: valueTypeTrue}
	}
	return Value{t: valueTypeFalse}
}

// IntegerValue converts an integer to a [Value].
func IntegerValue(i int64) Value {
	return Value{t: valueTypeInteger, bits: uint64(i)}
}

// FloatValue converts a floating-point number to a [Value].
func FloatValue(f float64) Value {
	return Value{t: valueTypeFloat, bits: math.Float64bits(f)}
}

// StringValue converts a string to a [Value].
func StringValue(s string) Value {
	return Value{t: valueTypeString, s: s}
}

// IsNil reports whether v is the zero value.
func (v Value) IsNil() bool { return v.t == valueTypeNil }

// IsBoolean reports whether the value is a boolean.
func (v Value) IsBoolean() bool { return v.t == valueTypeFalse || v.t == valueTypeTrue }

// IsInteger reports whether the value is an integer.
func (v Value) IsInteger() bool { return v.t == valueTypeInteger }

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool { return v.t == valueTypeInteger || v.t == valueTypeFloat }

// IsString reports whether the value is a string.
func (v Value) IsString() bool { return v.t == valueTypeString }

// Bool reports whether the value tests true in Lua
// and whether the value is a boolean.
func (v Value) Bool() (_ bool, isBool bool) {
	return v.t != valueTypeNil && v.t != valueTypeFalse, v.IsBoolean()
}

// Int64 returns the value as an integer
// and reports whether the value is an integer.
// No coercion occurs.
func (v Value) Int64() (_ int64, ok bool) {
	if v.t != valueTypeInteger {
		return 0, false
	}
	return int64(v.bits), true
}

// Float64 returns the value as a floating-point number
// and reports whether the value is a number.
// Integers convert exactly where possible; no other coercion occurs.
func (v Value) Float64() (_ float64, ok bool) {
	switch v.t {
	case valueTypeInteger:
		return float64(int64(v.bits)), true
	case valueTypeFloat:
		return math.Float64frombits(v.bits), true
	default:
		return 0, false
	}
}

// Str returns the value as a string
// and reports whether the value is a string.
func (v Value) Str() (_ string, ok bool) {
	if v.t != valueTypeString {
		return "", false
	}
	return v.s, true
}

// String renders the value as a Lua constant.
func (v Value) String() string {
	switch v.t {
	case valueTypeNil:
		return "nil"
	case valueTypeFalse:
		return "false"
	case valueTypeTrue:
		return "true"
	case valueTypeInteger:
		return strconv.FormatInt(int64(v.bits), 10)
	case valueTypeFloat:
		switch f := math.Float64frombits(v.bits); {
		case math.IsNaN(f):
			return "(0/0)"
		case math.IsInf(f, 1):
			return "1e9999"
		case math.IsInf(f, -1):
			return "-1e9999"
		default:
			s := strconv.FormatFloat(f, 'g', -1, 64)
			if !strings.ContainsAny(s, ".e") {
				s += ".0"
			}
			return s
		}
	case valueTypeString:
		return lualex.Quote(v.s)
	default:
		return `error("invalid value")`
	}
}

// Equal reports whether two values are equal
// according to Lua's primitive equality:
// numbers compare across the integer/float subtypes.
func (v Value) Equal(v2 Value) bool {
	switch v.t {
	case valueTypeNil, valueTypeFalse, valueTypeTrue:
		return v.t == v2.t
	case valueTypeInteger, valueTypeFloat:
		if !v2.IsNumber() {
			return false
		}
		f1, _ := v.Float64()
		f2, _ := v2.Float64()
		if v.t == valueTypeInteger && v2.t == valueTypeInteger {
			return int64(v.bits) == int64(v2.bits)
		}
		return f1 == f2
	case valueTypeString:
		return v2.t == valueTypeString && v.s == v2.s
	default:
		return false
	}
}

// IdenticalTo reports whether two values represent the same value,
// distinguishing the number subtypes
// and treating two NaNs as identical.
func (v Value) IdenticalTo(v2 Value) bool {
	if v.t != v2.t {
		return false
	}
	if v.t == valueTypeString {
		return v.s == v2.s
	}
	return v.bits == v2.bits
}
