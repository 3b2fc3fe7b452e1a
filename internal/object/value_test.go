package object

import "testing"

func TestTruthiness(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", NullVal(), false},
		{"false", BoolVal(false), false},
		{"true", BoolVal(true), true},
		{"zero", NumberVal(0), false},
		{"negative", NumberVal(-1), true},
		{"empty string", StringVal(""), false},
		{"string", StringVal("x"), true},
		{"empty array", ArrayVal(nil), false},
		{"array", ArrayVal([]Value{NullVal()}), true},
		{"empty map", MapVal(nil), false},
		{"map", MapVal(map[string]Value{"k": NullVal()}), true},
		{"function", FuncVal("f", 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy(%s) = %t, want %t", tt.v.Inspect(), got, tt.want)
			}
		})
	}
}

func TestEqualsIsDeep(t *testing.T) {
	a := ArrayVal([]Value{
		NumberVal(1),
		MapVal(map[string]Value{"k": StringVal("v")}),
	})
	b := ArrayVal([]Value{
		NumberVal(1),
		MapVal(map[string]Value{"k": StringVal("v")}),
	})
	if !a.Equals(b) {
		t.Error("structurally equal values compare unequal")
	}

	c := ArrayVal([]Value{
		NumberVal(1),
		MapVal(map[string]Value{"k": StringVal("other")}),
	})
	if a.Equals(c) {
		t.Error("different nested values compare equal")
	}
	if NumberVal(1).Equals(StringVal("1")) {
		t.Error("values of different types compare equal")
	}
}

func TestFunctionEqualsByEntry(t *testing.T) {
	if !FuncVal("a", 10).Equals(FuncVal("b", 10)) {
		t.Error("same entry should compare equal regardless of name")
	}
	if FuncVal("a", 10).Equals(FuncVal("a", 20)) {
		t.Error("different entries should compare unequal")
	}
}

func TestInspect(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NullVal(), "null"},
		{BoolVal(true), "true"},
		{NumberVal(2.5), "2.5"},
		{NumberVal(8), "8"},
		{StringVal("hi"), "hi"},
		{ArrayVal([]Value{NumberVal(1), StringVal("x")}), "[1, x]"},
		{MapVal(map[string]Value{"b": NumberVal(2), "a": NumberVal(1)}), "{a: 1, b: 2}"},
		{FuncVal("f", 5), "<fn f @5>"},
	}
	for _, tt := range tests {
		if got := tt.v.Inspect(); got != tt.want {
			t.Errorf("Inspect = %q, want %q", got, tt.want)
		}
	}
}

func TestInterfaceRoundTrip(t *testing.T) {
	orig := MapVal(map[string]Value{
		"num":  NumberVal(1.5),
		"str":  StringVal("s"),
		"null": NullVal(),
		"arr":  ArrayVal([]Value{BoolVal(true), NumberVal(2)}),
	})
	back := FromInterface(orig.Interface())
	if !orig.Equals(back) {
		t.Errorf("round trip changed value: %s -> %s", orig.Inspect(), back.Inspect())
	}
}

func TestFromInterfaceUnknownTypeIsNull(t *testing.T) {
	if v := FromInterface(struct{}{}); !v.IsNull() {
		t.Errorf("unknown type = %s, want null", v.Inspect())
	}
}
