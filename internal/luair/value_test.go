// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luair

import (
	"math"
	"testing"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{v: Value{}, want: "nil"},
		{v: BoolValue(true), want: "true"},
		{v: BoolValue(false), want: "false"},
		{v: IntegerValue(42), want: "42"},
		{v: IntegerValue(-1), want: "-1"},
		{v: FloatValue(42), want: "42.0"},
		{v: FloatValue(3.5), want: "3.5"},
		{v: FloatValue(math.Inf(1)), want: "1e9999"},
		{v: FloatValue(math.Inf(-1)), want: "-1e9999"},
		{v: FloatValue(math.NaN()), want: "(0/0)"},
		{v: StringValue("abc"), want: `"abc"`},
		{v: StringValue("a\nb"), want: `"a\nb"`},
	}
	for _, test := range tests {
		if got := test.v.String(); got != test.want {
			t.Errorf("(%#v).String() = %q; want %q", test.v, got, test.want)
		}
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		v1, v2    Value
		equal     bool
		identical bool
	}{
		{v1: Value{}, v2: Value{}, equal: true, identical: true},
		{v1: Value{}, v2: BoolValue(false), equal: false, identical: false},
		{v1: IntegerValue(1), v2: IntegerValue(1), equal: true, identical: true},
		{v1: IntegerValue(1), v2: FloatValue(1), equal: true, identical: false},
		{v1: FloatValue(0.5), v2: FloatValue(0.5), equal: true, identical: true},
		{v1: StringValue("a"), v2: StringValue("a"), equal: true, identical: true},
		{v1: StringValue("1"), v2: IntegerValue(1), equal: false, identical: false},
		{v1: FloatValue(math.NaN()), v2: FloatValue(math.NaN()), equal: false, identical: true},
	}
	for _, test := range tests {
		if got := test.v1.Equal(test.v2); got != test.equal {
			t.Errorf("(%v).Equal(%v) = %t; want %t", test.v1, test.v2, got, test.equal)
		}
		if got := test.v1.IdenticalTo(test.v2); got != test.identical {
			t.Errorf("(%v).IdenticalTo(%v) = %t; want %t", test.v1, test.v2, got, test.identical)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if i, ok := IntegerValue(7).Int64(); !ok || i != 7 {
		t.Errorf("IntegerValue(7).Int64() = %d, %t", i, ok)
	}
	if _, ok := FloatValue(7).Int64(); ok {
		t.Error("FloatValue(7).Int64() reported an integer")
	}
	if f, ok := IntegerValue(7).Float64(); !ok || f != 7 {
		t.Errorf("IntegerValue(7).Float64() = %g, %t", f, ok)
	}
	if truthy, isBool := (Value{}).Bool(); truthy || isBool {
		t.Error("nil is truthy or boolean")
	}
	if truthy, isBool := IntegerValue(0).Bool(); !truthy || isBool {
		t.Error("0 tests false or reports boolean (all numbers are truthy in Lua)")
	}
	if s, ok := StringValue("x").Str(); !ok || s != "x" {
		t.Errorf("StringValue(x).Str() = %q, %t", s, ok)
	}
}
