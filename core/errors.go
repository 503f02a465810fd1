package scheme

import (
	"fmt"
	"strings"
)

// SyntaxError is returned by the compiler when a form does not match its grammar.
type SyntaxError struct {
	Form   Value
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s: %s", e.Reason, e.Form)
}

// ReadError is returned by the reader for malformed source text.
type ReadError struct {
	Pos        int // character offset into the source
	Reason     string
	Incomplete bool // input ended before the datum was closed
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read error at offset %d: %s", e.Pos, e.Reason)
}

type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable: %s", e.Name)
}

// ArityError reports a call with the wrong number of operands.
// Max is -1 when the callee is variadic.
type ArityError struct {
	Name string
	Min  int
	Max  int
	Got  int
}

func (e *ArityError) Error() string {
	name := e.Name
	if name == "" {
		name = "anonymous"
	}
	var want string
	switch {
	case e.Max < 0:
		want = fmt.Sprintf("at least %d", e.Min)
	case e.Min == e.Max:
		want = fmt.Sprintf("%d", e.Min)
	default:
		want = fmt.Sprintf("%d to %d", e.Min, e.Max)
	}
	return fmt.Sprintf("%s: expected %s args, got %d", name, want, e.Got)
}

type TypeError struct {
	Op   string
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Op, e.Want, e.Got)
}

type NotApplicableError struct {
	Value Value
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("not applicable: %s", e.Value)
}

type ArithmeticError struct {
	Op     string
	Reason string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// UserError is raised by the error primitive.
type UserError struct {
	Message   string
	Irritants []Value
}

func (e *UserError) Error() string {
	if len(e.Irritants) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Irritants))
	for i, v := range e.Irritants {
		parts[i] = v.String()
	}
	return e.Message + " " + strings.Join(parts, " ")
}

// StepLimitError is returned when an evaluation exceeds Evaluator.MaxSteps.
type StepLimitError struct {
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit exceeded (%d steps)", e.Limit)
}

// EvalError wraps any error raised while the trampoline was running, together
// with the names of the procedures whose frames were live at the time
// (innermost first).
type EvalError struct {
	Err       error
	Backtrace []string
}

func (e *EvalError) Error() string {
	if len(e.Backtrace) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s [in %s]", e.Err.Error(), strings.Join(e.Backtrace, " <- "))
}

func (e *EvalError) Unwrap() error { return e.Err }

func typeErr(op, want string, got Value) error {
	return &TypeError{Op: op, Want: want, Got: got.KindName()}
}
