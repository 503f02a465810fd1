package scheme

import (
	"fmt"
	"strings"
)

// Expr is a compiled IR node. An Expr is its own main step: executing it
// evaluates the node in the current frame. Exprs are immutable once built
// and may be evaluated concurrently by independent States.
type Expr interface {
	Step
	String() string
}

// --- Leaves ---

type SelfEvaluating struct {
	Value Value
}

func (e *SelfEvaluating) Exec(*State) (Value, error) { return e.Value, nil }
func (e *SelfEvaluating) String() string             { return e.Value.String() }

type Quote struct {
	Datum Value
}

func (e *Quote) Exec(*State) (Value, error) { return e.Datum, nil }
func (e *Quote) String() string             { return "(quote " + e.Datum.String() + ")" }

type Variable struct {
	Sym *Symbol
}

func (e *Variable) Exec(st *State) (Value, error) { return st.Env().Lookup(e.Sym) }
func (e *Variable) String() string                { return e.Sym.Name }

// --- Assignment and definition ---

type Assignment struct {
	Sym   *Symbol
	Value Expr
	store Step
}

func NewAssignment(sym *Symbol, value Expr) *Assignment {
	return &Assignment{Sym: sym, Value: value, store: StepFunc(func(st *State) (Value, error) {
		if err := st.Env().Set(sym, st.Last()); err != nil {
			return Value{}, err
		}
		return Unspecified, nil
	})}
}

func (e *Assignment) Exec(st *State) (Value, error) {
	st.Push(e.store, e.Value)
	return None, nil
}

func (e *Assignment) String() string {
	return fmt.Sprintf("(set! %s %s)", e.Sym.Name, e.Value)
}

type Definition struct {
	Sym   *Symbol
	Value Expr
	store Step
}

func NewDefinition(sym *Symbol, value Expr) *Definition {
	return &Definition{Sym: sym, Value: value, store: StepFunc(func(st *State) (Value, error) {
		st.Env().Define(sym, st.Last())
		return Unspecified, nil
	})}
}

func (e *Definition) Exec(st *State) (Value, error) {
	st.Push(e.store, e.Value)
	return None, nil
}

func (e *Definition) String() string {
	return fmt.Sprintf("(define %s %s)", e.Sym.Name, e.Value)
}

// --- Conditionals ---

// If with a nil Alt yields Unspecified when the predicate is false.
type If struct {
	Pred   Expr
	Conseq Expr
	Alt    Expr
	choose Step
}

func NewIf(pred, conseq, alt Expr) *If {
	e := &If{Pred: pred, Conseq: conseq, Alt: alt}
	e.choose = StepFunc(func(st *State) (Value, error) {
		if st.Last().Truthy() {
			st.Push(e.Conseq)
			return None, nil
		}
		if e.Alt == nil {
			return Unspecified, nil
		}
		st.Push(e.Alt)
		return None, nil
	})
	return e
}

func (e *If) Exec(st *State) (Value, error) {
	st.Push(e.choose, e.Pred)
	return None, nil
}

func (e *If) String() string {
	if e.Alt == nil {
		return fmt.Sprintf("(if %s %s)", e.Pred, e.Conseq)
	}
	return fmt.Sprintf("(if %s %s %s)", e.Pred, e.Conseq, e.Alt)
}

// And short-circuits to #f on the first false value. The final subexpression
// is pushed without a continuation so it runs in tail position.
type And struct {
	Exprs []Expr
	next  []Step
}

func NewAnd(exprs []Expr) *And {
	e := &And{Exprs: exprs}
	e.next = make([]Step, len(exprs))
	for i := range exprs {
		i := i
		e.next[i] = StepFunc(func(st *State) (Value, error) {
			if st.Last().IsFalse() {
				return False, nil
			}
			pushChain(st, e.Exprs, e.next, i+1)
			return None, nil
		})
	}
	return e
}

func (e *And) Exec(st *State) (Value, error) {
	if len(e.Exprs) == 0 {
		return True, nil
	}
	pushChain(st, e.Exprs, e.next, 0)
	return None, nil
}

func (e *And) String() string { return formString("and", e.Exprs) }

// Or yields the first non-false value, or #f.
type Or struct {
	Exprs []Expr
	next  []Step
}

func NewOr(exprs []Expr) *Or {
	e := &Or{Exprs: exprs}
	e.next = make([]Step, len(exprs))
	for i := range exprs {
		i := i
		e.next[i] = StepFunc(func(st *State) (Value, error) {
			if v := st.Last(); v.Truthy() {
				return v, nil
			}
			pushChain(st, e.Exprs, e.next, i+1)
			return None, nil
		})
	}
	return e
}

func (e *Or) Exec(st *State) (Value, error) {
	if len(e.Exprs) == 0 {
		return False, nil
	}
	pushChain(st, e.Exprs, e.next, 0)
	return None, nil
}

func (e *Or) String() string { return formString("or", e.Exprs) }

// pushChain schedules exprs[i], followed by its continuation unless i is the
// last index.
func pushChain(st *State, exprs []Expr, next []Step, i int) {
	if i == len(exprs)-1 {
		st.Push(exprs[i])
		return
	}
	st.Push(next[i], exprs[i])
}

// --- Procedures and sequencing ---

type Lambda struct {
	Params []*Symbol
	Body   *Begin
	Name   string
}

func (e *Lambda) Exec(st *State) (Value, error) {
	return ProcedureVal(&Procedure{
		Params: e.Params,
		Body:   e.Body,
		Env:    st.Env(),
		Name:   e.Name,
	}), nil
}

func (e *Lambda) String() string {
	names := make([]string, len(e.Params))
	for i, p := range e.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("(lambda (%s) %s)", strings.Join(names, " "), joinExprs(e.Body.Exprs))
}

// Begin runs its subexpressions left to right; the last value wins.
type Begin struct {
	Exprs []Expr
}

func (e *Begin) Exec(st *State) (Value, error) {
	for i := len(e.Exprs) - 1; i >= 0; i-- {
		st.Push(e.Exprs[i])
	}
	return None, nil
}

func (e *Begin) String() string { return formString("begin", e.Exprs) }

// Application evaluates operator and operands left to right, then calls.
type Application struct {
	Exprs []Expr
}

func (e *Application) Exec(st *State) (Value, error) {
	seq := &sequencer{exprs: e.Exprs, vals: make([]Value, 0, len(e.Exprs))}
	st.Push(seq, e.Exprs[0])
	return None, nil
}

func (e *Application) String() string { return "(" + joinExprs(e.Exprs) + ")" }

// sequencer collects operand values for one evaluation of an Application.
// It is allocated per evaluation because it accumulates state.
type sequencer struct {
	exprs []Expr
	vals  []Value
}

func (s *sequencer) Exec(st *State) (Value, error) {
	s.vals = append(s.vals, st.Last())
	if n := len(s.vals); n < len(s.exprs) {
		st.Push(s, s.exprs[n])
		return None, nil
	}
	return st.Apply(s.vals[0], s.vals[1:])
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, x := range exprs {
		parts[i] = x.String()
	}
	return strings.Join(parts, " ")
}

func formString(head string, exprs []Expr) string {
	if len(exprs) == 0 {
		return "(" + head + ")"
	}
	return "(" + head + " " + joinExprs(exprs) + ")"
}
