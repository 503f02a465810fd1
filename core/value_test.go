package scheme

import (
	"errors"
	"math/big"
	"testing"
)

func TestValuePrinting(t *testing.T) {
	in := NewInterner()
	a, b, c := SymbolVal(in.Intern("a")), SymbolVal(in.Intern("b")), SymbolVal(in.Intern("c"))

	cases := []struct {
		v    Value
		want string
	}{
		{List(a, b), "(a b)"},
		{ListWithTail([]Value{a, b}, c), "(a b . c)"},
		{Cons(List(a), Nil), "((a))"},
		{Nil, "()"},
		{True, "#t"},
		{False, "#f"},
		{Unspecified, "#!unspecific"},
		{StringVal("x\"y\n"), `"x\"y\n"`},
		{NumberVal(NewRat(big.NewInt(-2), big.NewInt(4))), "-1/2"},
		{PrimitiveVal(&Primitive{Name: "car"}), "#[primitive car]"},
		{ProcedureVal(&Procedure{Name: "f"}), "#[compound-procedure f]"},
		{ProcedureVal(&Procedure{}), "#[compound-procedure anonymous]"},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("expected %s, got %s", tc.want, got)
		}
	}

	if got := List(StringVal("hi"), a).Display(); got != "(hi a)" {
		t.Errorf("display: expected (hi a), got %s", got)
	}
}

func TestValueTruthy(t *testing.T) {
	for _, v := range []Value{True, IntVal(0), Nil, StringVal(""), Unspecified} {
		if !v.Truthy() {
			t.Errorf("%s should be truthy", v)
		}
	}
	if False.Truthy() {
		t.Error("#f should be false")
	}
	if BoolVal(false) != False || BoolVal(true) != True {
		t.Error("BoolVal should return the canonical booleans")
	}
}

func TestValuesEqual(t *testing.T) {
	in := NewInterner()
	x1, x2 := SymbolVal(in.Intern("x")), SymbolVal(in.Intern("x"))
	other := SymbolVal(NewInterner().Intern("x"))

	if !ValuesEqual(x1, x2) {
		t.Error("symbols from one interner should be equal")
	}
	if ValuesEqual(x1, other) {
		t.Error("symbols are compared by identity")
	}
	if !ValuesEqual(List(IntVal(1), List(StringVal("a"))), List(IntVal(1), List(StringVal("a")))) {
		t.Error("lists should compare structurally")
	}
	if ValuesEqual(List(IntVal(1)), List(IntVal(1), IntVal(2))) {
		t.Error("lists of different length are not equal")
	}
	if !ValuesEqual(NumberVal(NewRat(big.NewInt(2), big.NewInt(4))), NumberVal(NewRat(big.NewInt(1), big.NewInt(2)))) {
		t.Error("2/4 should equal 1/2")
	}
	l := List(IntVal(1))
	if !Eqv(l, l) || Eqv(l, List(IntVal(1))) {
		t.Error("eqv on pairs is identity")
	}
	p1, p2 := &Procedure{}, &Procedure{}
	if ValuesEqual(ProcedureVal(p1), ProcedureVal(p2)) {
		t.Error("distinct procedures are not equal")
	}
}

func TestListToSlice(t *testing.T) {
	elems, ok := ListToSlice(List(IntVal(1), IntVal(2)))
	if !ok || len(elems) != 2 {
		t.Fatalf("expected proper list of 2, got %v %v", elems, ok)
	}
	if _, ok := ListToSlice(Cons(IntVal(1), IntVal(2))); ok {
		t.Fatal("dotted pair is not a proper list")
	}
	if _, ok := ListToSlice(IntVal(1)); ok {
		t.Fatal("a number is not a list")
	}
	if elems, ok := ListToSlice(Nil); !ok || len(elems) != 0 {
		t.Fatal("() is the empty proper list")
	}
}

func TestNumberIntDiv(t *testing.T) {
	cases := []struct {
		op   string
		a, b int64
		want string
	}{
		{"quotient", 7, 2, "3"},
		{"quotient", -7, 2, "-3"},
		{"remainder", 7, 2, "1"},
		{"remainder", -7, 2, "-1"},
		{"modulo", -7, 2, "1"},
		{"modulo", 7, -2, "-1"},
		{"modulo", 6, 3, "0"},
	}
	for _, tc := range cases {
		got, err := IntDiv(tc.op, NewInt(tc.a), NewInt(tc.b))
		if err != nil {
			t.Fatalf("%s %d %d: %v", tc.op, tc.a, tc.b, err)
		}
		if got.String() != tc.want {
			t.Errorf("%s %d %d: expected %s, got %s", tc.op, tc.a, tc.b, tc.want, got)
		}
	}

	var arith *ArithmeticError
	if _, err := IntDiv("quotient", NewInt(1), NewInt(0)); !errors.As(err, &arith) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if _, err := NewInt(1).Quo(NewInt(0)); !errors.As(err, &arith) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestNumberPromotesToRational(t *testing.T) {
	q, err := NewInt(1).Quo(NewInt(3))
	if err != nil {
		t.Fatal(err)
	}
	if q.IsInteger() || q.String() != "1/3" {
		t.Fatalf("expected 1/3, got %s", q)
	}
	sum := q.Add(q).Add(q)
	if !sum.IsInteger() || sum.String() != "1" {
		t.Fatalf("expected 1, got %s", sum)
	}
	if n, ok := sum.Int64(); !ok || n != 1 {
		t.Fatalf("expected int64 1, got %d %v", n, ok)
	}
}
