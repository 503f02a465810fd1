package scheme

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ValueKind int

const (
	// ValNone is the zero Value. Steps return it when they produced no value
	// because they pushed further steps instead.
	ValNone ValueKind = iota
	ValSymbol
	ValNumber
	ValString
	ValBool
	ValPair
	ValNil
	ValUnspecified
	ValPrimitive
	ValProcedure
)

// Symbol is an interned name. Two symbols are equal iff they are the same pointer.
type Symbol struct {
	Name string
}

// Interner hands out the unique Symbol for each name. Readers, compilers and
// evaluators that exchange data must share one Interner.
type Interner struct {
	mu   sync.Mutex
	syms map[string]*Symbol
}

func NewInterner() *Interner {
	return &Interner{syms: make(map[string]*Symbol)}
}

// Intern returns the symbol named name, creating it on first use.
func (in *Interner) Intern(name string) *Symbol {
	in.mu.Lock()
	defer in.mu.Unlock()
	if s, ok := in.syms[name]; ok {
		return s
	}
	s := &Symbol{Name: name}
	in.syms[name] = s
	return s
}

// Names lists every interned name in sorted order.
func (in *Interner) Names() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	names := make([]string, 0, len(in.syms))
	for n := range in.syms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type Pair struct {
	Car Value
	Cdr Value
}

// Builtin is the calling convention for primitive procedures. It receives the
// evaluated operands and the running state. A builtin either returns a value or
// pushes steps onto st and returns None.
type Builtin func(st *State, args []Value) (Value, error)

type Primitive struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Fn      Builtin
}

// Procedure is a compound (user-defined) procedure.
type Procedure struct {
	Params []*Symbol
	Body   Step
	Env    *Environment
	Name   string
}

type Value struct {
	Kind ValueKind
	Sym  *Symbol
	Num  *Number
	Str  string
	Bool bool
	Pair *Pair
	Prim *Primitive
	Proc *Procedure
}

var (
	None        = Value{}
	Nil         = Value{Kind: ValNil}
	Unspecified = Value{Kind: ValUnspecified}
	True        = Value{Kind: ValBool, Bool: true}
	False       = Value{Kind: ValBool, Bool: false}
)

func SymbolVal(s *Symbol) Value       { return Value{Kind: ValSymbol, Sym: s} }
func NumberVal(n *Number) Value       { return Value{Kind: ValNumber, Num: n} }
func IntVal(n int64) Value            { return NumberVal(NewInt(n)) }
func StringVal(s string) Value        { return Value{Kind: ValString, Str: s} }
func PrimitiveVal(p *Primitive) Value { return Value{Kind: ValPrimitive, Prim: p} }
func ProcedureVal(p *Procedure) Value { return Value{Kind: ValProcedure, Proc: p} }

func BoolVal(b bool) Value {
	if b {
		return True
	}
	return False
}

func Cons(car, cdr Value) Value {
	return Value{Kind: ValPair, Pair: &Pair{Car: car, Cdr: cdr}}
}

// List builds a proper list from elems.
func List(elems ...Value) Value {
	return ListWithTail(elems, Nil)
}

// ListWithTail builds a pair chain from elems ending in tail.
func ListWithTail(elems []Value, tail Value) Value {
	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		result = Cons(elems[i], result)
	}
	return result
}

// ListToSlice returns the elements of v if it is a proper list. ok is false
// for dotted chains and for non-list values.
func ListToSlice(v Value) (elems []Value, ok bool) {
	for v.Kind == ValPair {
		elems = append(elems, v.Pair.Car)
		v = v.Pair.Cdr
	}
	return elems, v.Kind == ValNil
}

func IsProperList(v Value) bool {
	for v.Kind == ValPair {
		v = v.Pair.Cdr
	}
	return v.Kind == ValNil
}

// Truthy reports whether v selects the consequent of an if: only #f is false.
func (v Value) Truthy() bool {
	return !(v.Kind == ValBool && !v.Bool)
}

func (v Value) IsFalse() bool { return v.Kind == ValBool && !v.Bool }

func (v Value) KindName() string {
	switch v.Kind {
	case ValNone:
		return "None"
	case ValSymbol:
		return "Symbol"
	case ValNumber:
		return "Number"
	case ValString:
		return "String"
	case ValBool:
		return "Boolean"
	case ValPair:
		return "Pair"
	case ValNil:
		return "Nil"
	case ValUnspecified:
		return "Unspecified"
	case ValPrimitive:
		return "PrimitiveProcedure"
	case ValProcedure:
		return "CompoundProcedure"
	default:
		return "Unknown"
	}
}

// ValuesEqual is structural equality (equal?). Symbols, booleans and
// procedures compare by identity.
func ValuesEqual(a, b Value) bool {
	for {
		if a.Kind != b.Kind {
			return false
		}
		switch a.Kind {
		case ValPair:
			if a.Pair == b.Pair {
				return true
			}
			if !ValuesEqual(a.Pair.Car, b.Pair.Car) {
				return false
			}
			a, b = a.Pair.Cdr, b.Pair.Cdr
			continue
		case ValSymbol:
			return a.Sym == b.Sym
		case ValNumber:
			return a.Num.Cmp(b.Num) == 0
		case ValString:
			return a.Str == b.Str
		case ValBool:
			return a.Bool == b.Bool
		case ValPrimitive:
			return a.Prim == b.Prim
		case ValProcedure:
			return a.Proc == b.Proc
		default:
			return true
		}
	}
}

// Eqv is identity equality, except numbers and strings which have no
// useful identity in this model and compare by value.
func Eqv(a, b Value) bool {
	if a.Kind == ValPair && b.Kind == ValPair {
		return a.Pair == b.Pair
	}
	return ValuesEqual(a, b)
}

func (v Value) String() string {
	var sb strings.Builder
	writeValue(&sb, v, true)
	return sb.String()
}

// Display renders v the way display prints it: strings without quotes.
func (v Value) Display() string {
	var sb strings.Builder
	writeValue(&sb, v, false)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value, quoted bool) {
	switch v.Kind {
	case ValNone:
		sb.WriteString("#!none")
	case ValSymbol:
		sb.WriteString(v.Sym.Name)
	case ValNumber:
		sb.WriteString(v.Num.String())
	case ValString:
		if quoted {
			sb.WriteString(quoteString(v.Str))
		} else {
			sb.WriteString(v.Str)
		}
	case ValBool:
		if v.Bool {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case ValNil:
		sb.WriteString("()")
	case ValUnspecified:
		sb.WriteString("#!unspecific")
	case ValPrimitive:
		fmt.Fprintf(sb, "#[primitive %s]", v.Prim.Name)
	case ValProcedure:
		name := v.Proc.Name
		if name == "" {
			name = "anonymous"
		}
		fmt.Fprintf(sb, "#[compound-procedure %s]", name)
	case ValPair:
		sb.WriteByte('(')
		writeValue(sb, v.Pair.Car, quoted)
		rest := v.Pair.Cdr
		for rest.Kind == ValPair {
			sb.WriteByte(' ')
			writeValue(sb, rest.Pair.Car, quoted)
			rest = rest.Pair.Cdr
		}
		if rest.Kind != ValNil {
			sb.WriteString(" . ")
			writeValue(sb, rest, quoted)
		}
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<unknown:%d>", v.Kind)
	}
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
