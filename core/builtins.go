package scheme

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// Primitives returns the standard primitive library. Symbol-producing
// primitives intern through in.
func Primitives(in *Interner) []*Primitive {
	prims := []*Primitive{
		// numeric
		{Name: "+", MinArgs: 0, MaxArgs: -1, Fn: builtinAdd},
		{Name: "-", MinArgs: 1, MaxArgs: -1, Fn: builtinSub},
		{Name: "*", MinArgs: 0, MaxArgs: -1, Fn: builtinMul},
		{Name: "/", MinArgs: 1, MaxArgs: -1, Fn: builtinDiv},
		{Name: "=", MinArgs: 1, MaxArgs: -1, Fn: compareChain("=", func(c int) bool { return c == 0 })},
		{Name: "<", MinArgs: 1, MaxArgs: -1, Fn: compareChain("<", func(c int) bool { return c < 0 })},
		{Name: ">", MinArgs: 1, MaxArgs: -1, Fn: compareChain(">", func(c int) bool { return c > 0 })},
		{Name: "<=", MinArgs: 1, MaxArgs: -1, Fn: compareChain("<=", func(c int) bool { return c <= 0 })},
		{Name: ">=", MinArgs: 1, MaxArgs: -1, Fn: compareChain(">=", func(c int) bool { return c >= 0 })},
		{Name: "add1", MinArgs: 1, MaxArgs: 1, Fn: builtinAdd1},
		{Name: "sub1", MinArgs: 1, MaxArgs: 1, Fn: builtinSub1},
		{Name: "quotient", MinArgs: 2, MaxArgs: 2, Fn: intDivision("quotient")},
		{Name: "remainder", MinArgs: 2, MaxArgs: 2, Fn: intDivision("remainder")},
		{Name: "modulo", MinArgs: 2, MaxArgs: 2, Fn: intDivision("modulo")},
		{Name: "abs", MinArgs: 1, MaxArgs: 1, Fn: builtinAbs},
		{Name: "min", MinArgs: 1, MaxArgs: -1, Fn: extremum("min", -1)},
		{Name: "max", MinArgs: 1, MaxArgs: -1, Fn: extremum("max", 1)},
		{Name: "zero?", MinArgs: 1, MaxArgs: 1, Fn: builtinZero},
		{Name: "number?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValNumber)},
		{Name: "integer?", MinArgs: 1, MaxArgs: 1, Fn: builtinInteger},
		{Name: "numerator", MinArgs: 1, MaxArgs: 1, Fn: builtinNumerator},
		{Name: "denominator", MinArgs: 1, MaxArgs: 1, Fn: builtinDenominator},

		// lists
		{Name: "cons", MinArgs: 2, MaxArgs: 2, Fn: builtinCons},
		{Name: "car", MinArgs: 1, MaxArgs: 1, Fn: builtinCar},
		{Name: "cdr", MinArgs: 1, MaxArgs: 1, Fn: builtinCdr},
		{Name: "cadr", MinArgs: 1, MaxArgs: 1, Fn: builtinCadr},
		{Name: "cddr", MinArgs: 1, MaxArgs: 1, Fn: builtinCddr},
		{Name: "list", MinArgs: 0, MaxArgs: -1, Fn: builtinList},
		{Name: "length", MinArgs: 1, MaxArgs: 1, Fn: builtinLength},
		{Name: "append", MinArgs: 0, MaxArgs: -1, Fn: builtinAppend},
		{Name: "reverse", MinArgs: 1, MaxArgs: 1, Fn: builtinReverse},
		{Name: "list?", MinArgs: 1, MaxArgs: 1, Fn: builtinIsList},
		{Name: "pair?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValPair)},
		{Name: "null?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValNil)},

		// equality and predicates
		{Name: "eq?", MinArgs: 2, MaxArgs: 2, Fn: builtinEqv},
		{Name: "eqv?", MinArgs: 2, MaxArgs: 2, Fn: builtinEqv},
		{Name: "equal?", MinArgs: 2, MaxArgs: 2, Fn: builtinEqual},
		{Name: "not", MinArgs: 1, MaxArgs: 1, Fn: builtinNot},
		{Name: "boolean?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValBool)},
		{Name: "symbol?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValSymbol)},
		{Name: "string?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValString)},
		{Name: "procedure?", MinArgs: 1, MaxArgs: 1, Fn: kindPredicate(ValPrimitive, ValProcedure)},

		// strings and symbols
		{Name: "string-append", MinArgs: 0, MaxArgs: -1, Fn: builtinStringAppend},
		{Name: "string-length", MinArgs: 1, MaxArgs: 1, Fn: builtinStringLength},
		{Name: "string=?", MinArgs: 1, MaxArgs: -1, Fn: builtinStringEq},
		{Name: "symbol->string", MinArgs: 1, MaxArgs: 1, Fn: builtinSymbolToString},
		{Name: "string->symbol", MinArgs: 1, MaxArgs: 1, Fn: func(st *State, args []Value) (Value, error) {
			if args[0].Kind != ValString {
				return Value{}, typeErr("string->symbol", "String", args[0])
			}
			return SymbolVal(in.Intern(args[0].Str)), nil
		}},
		{Name: "number->string", MinArgs: 1, MaxArgs: 1, Fn: builtinNumberToString},

		// higher order
		{Name: "apply", MinArgs: 2, MaxArgs: -1, Fn: builtinApply},
		{Name: "map", MinArgs: 2, MaxArgs: -1, Fn: builtinMap},
		{Name: "for-each", MinArgs: 2, MaxArgs: -1, Fn: builtinForEach},
		{Name: "filter", MinArgs: 2, MaxArgs: 2, Fn: builtinFilter},
		{Name: "fold", MinArgs: 3, MaxArgs: 3, Fn: builtinFold},

		// misc
		{Name: "error", MinArgs: 0, MaxArgs: -1, Fn: builtinError},
		{Name: "display", MinArgs: 1, MaxArgs: 1, Fn: builtinDisplay},
		{Name: "newline", MinArgs: 0, MaxArgs: 0, Fn: builtinNewline},
	}
	return append(prims, timePrimitives()...)
}

// InstallPrimitives defines every primitive in env.
func InstallPrimitives(env *Environment, in *Interner) {
	for _, p := range Primitives(in) {
		env.Define(in.Intern(p.Name), PrimitiveVal(p))
	}
}

// --- Argument checks ---

func numArg(op string, v Value) (*Number, error) {
	if v.Kind != ValNumber {
		return nil, typeErr(op, "Number", v)
	}
	return v.Num, nil
}

func pairArg(op string, v Value) (*Pair, error) {
	if v.Kind != ValPair {
		return nil, typeErr(op, "Pair", v)
	}
	return v.Pair, nil
}

func listArg(op string, v Value) ([]Value, error) {
	elems, ok := ListToSlice(v)
	if !ok {
		return nil, typeErr(op, "proper list", v)
	}
	return elems, nil
}

func procArg(op string, v Value) error {
	if v.Kind != ValPrimitive && v.Kind != ValProcedure {
		return typeErr(op, "procedure", v)
	}
	return nil
}

func kindPredicate(kinds ...ValueKind) Builtin {
	return func(st *State, args []Value) (Value, error) {
		for _, k := range kinds {
			if args[0].Kind == k {
				return True, nil
			}
		}
		return False, nil
	}
}

// --- Numeric ---

func builtinAdd(st *State, args []Value) (Value, error) {
	sum := NewInt(0)
	for _, a := range args {
		n, err := numArg("+", a)
		if err != nil {
			return Value{}, err
		}
		sum = sum.Add(n)
	}
	return NumberVal(sum), nil
}

func builtinMul(st *State, args []Value) (Value, error) {
	prod := NewInt(1)
	for _, a := range args {
		n, err := numArg("*", a)
		if err != nil {
			return Value{}, err
		}
		prod = prod.Mul(n)
	}
	return NumberVal(prod), nil
}

func builtinSub(st *State, args []Value) (Value, error) {
	first, err := numArg("-", args[0])
	if err != nil {
		return Value{}, err
	}
	if len(args) == 1 {
		return NumberVal(first.Neg()), nil
	}
	for _, a := range args[1:] {
		n, err := numArg("-", a)
		if err != nil {
			return Value{}, err
		}
		first = first.Sub(n)
	}
	return NumberVal(first), nil
}

func builtinDiv(st *State, args []Value) (Value, error) {
	first, err := numArg("/", args[0])
	if err != nil {
		return Value{}, err
	}
	if len(args) == 1 {
		r, err := NewInt(1).Quo(first)
		if err != nil {
			return Value{}, err
		}
		return NumberVal(r), nil
	}
	for _, a := range args[1:] {
		n, err := numArg("/", a)
		if err != nil {
			return Value{}, err
		}
		if first, err = first.Quo(n); err != nil {
			return Value{}, err
		}
	}
	return NumberVal(first), nil
}

func compareChain(op string, ok func(int) bool) Builtin {
	return func(st *State, args []Value) (Value, error) {
		nums := make([]*Number, len(args))
		for i, a := range args {
			n, err := numArg(op, a)
			if err != nil {
				return Value{}, err
			}
			nums[i] = n
		}
		for i := 1; i < len(nums); i++ {
			if !ok(nums[i-1].Cmp(nums[i])) {
				return False, nil
			}
		}
		return True, nil
	}
}

func builtinAdd1(st *State, args []Value) (Value, error) {
	n, err := numArg("add1", args[0])
	if err != nil {
		return Value{}, err
	}
	return NumberVal(n.Add(NewInt(1))), nil
}

func builtinSub1(st *State, args []Value) (Value, error) {
	n, err := numArg("sub1", args[0])
	if err != nil {
		return Value{}, err
	}
	return NumberVal(n.Sub(NewInt(1))), nil
}

func intDivision(op string) Builtin {
	return func(st *State, args []Value) (Value, error) {
		a, err := numArg(op, args[0])
		if err != nil {
			return Value{}, err
		}
		b, err := numArg(op, args[1])
		if err != nil {
			return Value{}, err
		}
		r, err := IntDiv(op, a, b)
		if err != nil {
			return Value{}, err
		}
		return NumberVal(r), nil
	}
}

func builtinAbs(st *State, args []Value) (Value, error) {
	n, err := numArg("abs", args[0])
	if err != nil {
		return Value{}, err
	}
	return NumberVal(n.Abs()), nil
}

// extremum returns min (want -1) or max (want 1).
func extremum(op string, want int) Builtin {
	return func(st *State, args []Value) (Value, error) {
		best, err := numArg(op, args[0])
		if err != nil {
			return Value{}, err
		}
		for _, a := range args[1:] {
			n, err := numArg(op, a)
			if err != nil {
				return Value{}, err
			}
			if n.Cmp(best) == want {
				best = n
			}
		}
		return NumberVal(best), nil
	}
}

func builtinZero(st *State, args []Value) (Value, error) {
	n, err := numArg("zero?", args[0])
	if err != nil {
		return Value{}, err
	}
	return BoolVal(n.Sign() == 0), nil
}

func builtinInteger(st *State, args []Value) (Value, error) {
	return BoolVal(args[0].Kind == ValNumber && args[0].Num.IsInteger()), nil
}

func builtinNumerator(st *State, args []Value) (Value, error) {
	n, err := numArg("numerator", args[0])
	if err != nil {
		return Value{}, err
	}
	return NumberVal(n.Numerator()), nil
}

func builtinDenominator(st *State, args []Value) (Value, error) {
	n, err := numArg("denominator", args[0])
	if err != nil {
		return Value{}, err
	}
	return NumberVal(n.Denominator()), nil
}

// --- Lists ---

func builtinCons(st *State, args []Value) (Value, error) {
	return Cons(args[0], args[1]), nil
}

func builtinCar(st *State, args []Value) (Value, error) {
	p, err := pairArg("car", args[0])
	if err != nil {
		return Value{}, err
	}
	return p.Car, nil
}

func builtinCdr(st *State, args []Value) (Value, error) {
	p, err := pairArg("cdr", args[0])
	if err != nil {
		return Value{}, err
	}
	return p.Cdr, nil
}

func builtinCadr(st *State, args []Value) (Value, error) {
	p, err := pairArg("cadr", args[0])
	if err != nil {
		return Value{}, err
	}
	q, err := pairArg("cadr", p.Cdr)
	if err != nil {
		return Value{}, err
	}
	return q.Car, nil
}

func builtinCddr(st *State, args []Value) (Value, error) {
	p, err := pairArg("cddr", args[0])
	if err != nil {
		return Value{}, err
	}
	q, err := pairArg("cddr", p.Cdr)
	if err != nil {
		return Value{}, err
	}
	return q.Cdr, nil
}

func builtinList(st *State, args []Value) (Value, error) {
	return List(args...), nil
}

func builtinLength(st *State, args []Value) (Value, error) {
	elems, err := listArg("length", args[0])
	if err != nil {
		return Value{}, err
	}
	return IntVal(int64(len(elems))), nil
}

func builtinAppend(st *State, args []Value) (Value, error) {
	if len(args) == 0 {
		return Nil, nil
	}
	var elems []Value
	for _, a := range args[:len(args)-1] {
		l, err := listArg("append", a)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, l...)
	}
	return ListWithTail(elems, args[len(args)-1]), nil
}

func builtinReverse(st *State, args []Value) (Value, error) {
	elems, err := listArg("reverse", args[0])
	if err != nil {
		return Value{}, err
	}
	result := Nil
	for _, e := range elems {
		result = Cons(e, result)
	}
	return result, nil
}

func builtinIsList(st *State, args []Value) (Value, error) {
	return BoolVal(IsProperList(args[0])), nil
}

// --- Equality ---

func builtinEqv(st *State, args []Value) (Value, error) {
	return BoolVal(Eqv(args[0], args[1])), nil
}

func builtinEqual(st *State, args []Value) (Value, error) {
	return BoolVal(ValuesEqual(args[0], args[1])), nil
}

func builtinNot(st *State, args []Value) (Value, error) {
	return BoolVal(args[0].IsFalse()), nil
}

// --- Strings and symbols ---

func builtinStringAppend(st *State, args []Value) (Value, error) {
	var s string
	for _, a := range args {
		if a.Kind != ValString {
			return Value{}, typeErr("string-append", "String", a)
		}
		s += a.Str
	}
	return StringVal(s), nil
}

func builtinStringLength(st *State, args []Value) (Value, error) {
	if args[0].Kind != ValString {
		return Value{}, typeErr("string-length", "String", args[0])
	}
	return IntVal(int64(utf8.RuneCountInString(args[0].Str))), nil
}

func builtinStringEq(st *State, args []Value) (Value, error) {
	for _, a := range args {
		if a.Kind != ValString {
			return Value{}, typeErr("string=?", "String", a)
		}
	}
	for i := 1; i < len(args); i++ {
		if args[i].Str != args[0].Str {
			return False, nil
		}
	}
	return True, nil
}

func builtinSymbolToString(st *State, args []Value) (Value, error) {
	if args[0].Kind != ValSymbol {
		return Value{}, typeErr("symbol->string", "Symbol", args[0])
	}
	return StringVal(args[0].Sym.Name), nil
}

func builtinNumberToString(st *State, args []Value) (Value, error) {
	n, err := numArg("number->string", args[0])
	if err != nil {
		return Value{}, err
	}
	return StringVal(n.String()), nil
}

// --- Higher order ---

// walkStep calls fn n times, once per element, without native recursion.
// Each round it re-pushes itself and then applies fn, so the call is never
// in tail position and its result arrives in st.Last() on the next round.
type walkStep struct {
	fn      Value
	n       int
	args    func(i int) []Value
	collect func(i int, v Value)
	finish  func() Value
	i       int
	started bool
}

func (w *walkStep) Exec(st *State) (Value, error) {
	if w.started {
		w.collect(w.i, st.Last())
		w.i++
	}
	w.started = true
	if w.i >= w.n {
		return w.finish(), nil
	}
	st.Push(w)
	return st.Apply(w.fn, w.args(w.i))
}

// builtinApply calls its procedure directly, so (apply f ...) in tail
// position is a proper tail call.
func builtinApply(st *State, args []Value) (Value, error) {
	if err := procArg("apply", args[0]); err != nil {
		return Value{}, err
	}
	last, err := listArg("apply", args[len(args)-1])
	if err != nil {
		return Value{}, err
	}
	callArgs := append(append([]Value{}, args[1:len(args)-1]...), last...)
	return st.Apply(args[0], callArgs)
}

// zipLists converts the list operands of map/for-each to slices and returns
// the length of the shortest.
func zipLists(op string, lists []Value) ([][]Value, int, error) {
	slices := make([][]Value, len(lists))
	n := -1
	for i, l := range lists {
		elems, err := listArg(op, l)
		if err != nil {
			return nil, 0, err
		}
		slices[i] = elems
		if n < 0 || len(elems) < n {
			n = len(elems)
		}
	}
	return slices, n, nil
}

func column(slices [][]Value) func(i int) []Value {
	return func(i int) []Value {
		out := make([]Value, len(slices))
		for j, s := range slices {
			out[j] = s[i]
		}
		return out
	}
}

func builtinMap(st *State, args []Value) (Value, error) {
	if err := procArg("map", args[0]); err != nil {
		return Value{}, err
	}
	slices, n, err := zipLists("map", args[1:])
	if err != nil {
		return Value{}, err
	}
	results := make([]Value, n)
	w := &walkStep{
		fn:      args[0],
		n:       n,
		args:    column(slices),
		collect: func(i int, v Value) { results[i] = v },
		finish:  func() Value { return List(results...) },
	}
	return w.Exec(st)
}

func builtinForEach(st *State, args []Value) (Value, error) {
	if err := procArg("for-each", args[0]); err != nil {
		return Value{}, err
	}
	slices, n, err := zipLists("for-each", args[1:])
	if err != nil {
		return Value{}, err
	}
	w := &walkStep{
		fn:      args[0],
		n:       n,
		args:    column(slices),
		collect: func(int, Value) {},
		finish:  func() Value { return Unspecified },
	}
	return w.Exec(st)
}

func builtinFilter(st *State, args []Value) (Value, error) {
	if err := procArg("filter", args[0]); err != nil {
		return Value{}, err
	}
	elems, err := listArg("filter", args[1])
	if err != nil {
		return Value{}, err
	}
	var kept []Value
	w := &walkStep{
		fn:   args[0],
		n:    len(elems),
		args: func(i int) []Value { return []Value{elems[i]} },
		collect: func(i int, v Value) {
			if v.Truthy() {
				kept = append(kept, elems[i])
			}
		},
		finish: func() Value { return List(kept...) },
	}
	return w.Exec(st)
}

// builtinFold is a left fold: (fold f init (a b c)) = (f c (f b (f a init))).
func builtinFold(st *State, args []Value) (Value, error) {
	if err := procArg("fold", args[0]); err != nil {
		return Value{}, err
	}
	elems, err := listArg("fold", args[2])
	if err != nil {
		return Value{}, err
	}
	acc := args[1]
	w := &walkStep{
		fn:      args[0],
		n:       len(elems),
		args:    func(i int) []Value { return []Value{elems[i], acc} },
		collect: func(_ int, v Value) { acc = v },
		finish:  func() Value { return acc },
	}
	return w.Exec(st)
}

// --- Misc ---

func builtinError(st *State, args []Value) (Value, error) {
	if len(args) == 0 {
		return Value{}, &UserError{Message: "error"}
	}
	msg := args[0].String()
	if args[0].Kind == ValString {
		msg = args[0].Str
	}
	return Value{}, &UserError{Message: msg, Irritants: args[1:]}
}

func builtinDisplay(st *State, args []Value) (Value, error) {
	if _, err := io.WriteString(st.Evaluator().output(), args[0].Display()); err != nil {
		return Value{}, fmt.Errorf("display: %w", err)
	}
	return Unspecified, nil
}

func builtinNewline(st *State, args []Value) (Value, error) {
	if _, err := io.WriteString(st.Evaluator().output(), "\n"); err != nil {
		return Value{}, fmt.Errorf("newline: %w", err)
	}
	return Unspecified, nil
}
