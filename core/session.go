package scheme

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Session bundles the interner, compiler, evaluator and global environment a
// driver needs. A Session is not safe for concurrent use.
type Session struct {
	in         *Interner
	compiler   *Compiler
	eval       *Evaluator
	global     *Environment
	defineSym  *Symbol
	setSym     *Symbol
	prelude    []string
	transcript string // path; "" disables
	logFile    *os.File
	lastStats  Stats
}

type Option func(*Session)

// WithTranscript records every successful top-level define and set! in path
// and replays the file when the session starts.
func WithTranscript(path string) Option {
	return func(s *Session) { s.transcript = path }
}

func WithMaxSteps(n int) Option {
	return func(s *Session) { s.eval.MaxSteps = n }
}

func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.eval.Output = w }
}

// WithPrelude loads the given source files into the global environment on
// start and after every Reset.
func WithPrelude(paths ...string) Option {
	return func(s *Session) { s.prelude = append(s.prelude, paths...) }
}

func NewSession(opts ...Option) (*Session, error) {
	in := NewInterner()
	s := &Session{
		in:        in,
		compiler:  NewCompiler(in),
		eval:      NewEvaluator(),
		defineSym: in.Intern("define"),
		setSym:    in.Intern("set!"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	if s.transcript == "" {
		return s, nil
	}

	if err := s.replay(); err != nil {
		return nil, fmt.Errorf("replay transcript: %w", err)
	}
	f, err := os.OpenFile(s.transcript, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	s.logFile = f
	return s, nil
}

// init builds a fresh global environment and loads the prelude.
func (s *Session) init() error {
	s.global = NewEnvironment(nil)
	InstallPrimitives(s.global, s.in)
	for _, path := range s.prelude {
		if err := s.load(path, false); err != nil {
			return fmt.Errorf("prelude %s: %w", path, err)
		}
	}
	return nil
}

func (s *Session) replay() error {
	data, err := os.ReadFile(s.transcript)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	forms, err := Read(s.in, string(data))
	if err != nil {
		return err
	}
	for _, f := range forms {
		if _, err := s.evalForm(f, false); err != nil {
			return fmt.Errorf("replaying %s: %w", f, err)
		}
	}
	return nil
}

func (s *Session) Interner() *Interner  { return s.in }
func (s *Session) Global() *Environment { return s.global }
func (s *Session) LastStats() Stats     { return s.lastStats }
func (s *Session) Bindings() []Binding   { return s.global.Bindings() }

func (s *Session) Compile(datum Value) (Expr, error) {
	return s.compiler.Compile(datum)
}

// EvalForm compiles and evaluates one top-level datum in the global
// environment.
func (s *Session) EvalForm(datum Value) (Value, error) {
	return s.evalForm(datum, true)
}

func (s *Session) evalForm(datum Value, record bool) (Value, error) {
	expr, err := s.compiler.Compile(datum)
	if err != nil {
		return Value{}, err
	}
	v, stats, err := s.eval.Run(expr, s.global)
	s.lastStats = stats
	if err != nil {
		return Value{}, err
	}
	if record && s.logFile != nil && s.isMutation(datum) {
		if _, err := fmt.Fprintf(s.logFile, "%s\n\n", datum); err != nil {
			return Value{}, fmt.Errorf("transcript: %w", err)
		}
	}
	return v, nil
}

// isMutation reports whether datum is a form that changes global bindings.
func (s *Session) isMutation(datum Value) bool {
	if datum.Kind != ValPair || datum.Pair.Car.Kind != ValSymbol {
		return false
	}
	head := datum.Pair.Car.Sym
	return head == s.defineSym || head == s.setSym
}

// EvalForms evaluates data in order and returns their values. It stops at
// the first error, returning the values computed so far.
// LastStats afterwards covers all of them: steps are summed and PeakFrames
// is the deepest any single form reached.
func (s *Session) EvalForms(data []Value) ([]Value, error) {
	vals := make([]Value, 0, len(data))
	var total Stats
	defer func() { s.lastStats = total }()
	for _, d := range data {
		s.lastStats = Stats{}
		v, err := s.EvalForm(d)
		total.Steps += s.lastStats.Steps
		total.PeakFrames = max(total.PeakFrames, s.lastStats.PeakFrames)
		if err != nil {
			return vals, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// EvalString reads and evaluates exactly one form.
func (s *Session) EvalString(src string) (Value, error) {
	datum, err := ReadOne(s.in, src)
	if err != nil {
		return Value{}, err
	}
	return s.EvalForm(datum)
}

// EvalAll reads and evaluates every form in src.
func (s *Session) EvalAll(src string) ([]Value, error) {
	s.lastStats = Stats{}
	data, err := Read(s.in, src)
	if err != nil {
		return nil, err
	}
	return s.EvalForms(data)
}

// Load evaluates the file at path. Its top-level defines and set! forms are
// recorded in the transcript like any others.
func (s *Session) Load(path string) error {
	return s.load(path, true)
}

func (s *Session) load(path string, record bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	forms, err := Read(s.in, string(data))
	if err != nil {
		return err
	}
	for _, f := range forms {
		if _, err := s.evalForm(f, record); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards all user bindings and truncates the transcript.
func (s *Session) Reset() error {
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			return fmt.Errorf("reset: close transcript: %w", err)
		}
		s.logFile = nil
		if err := os.Remove(s.transcript); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reset: remove transcript: %w", err)
		}
	}
	if err := s.init(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.lastStats = Stats{}
	if s.transcript != "" {
		f, err := os.OpenFile(s.transcript, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("reset: reopen transcript: %w", err)
		}
		s.logFile = f
	}
	return nil
}

func (s *Session) Close() error {
	if s.logFile == nil {
		return nil
	}
	err := s.logFile.Close()
	s.logFile = nil
	return err
}

// FormatValues renders vals one per line, skipping Unspecified.
func FormatValues(vals []Value) string {
	var lines []string
	for _, v := range vals {
		if v.Kind == ValUnspecified {
			continue
		}
		lines = append(lines, v.String())
	}
	return strings.Join(lines, "\n")
}

// errorKind names the category of err for clients.
func errorKind(err error) string {
	var (
		syn   *SyntaxError
		rd    *ReadError
		unb   *UnboundVariableError
		ar    *ArityError
		ty    *TypeError
		na    *NotApplicableError
		arith *ArithmeticError
		usr   *UserError
		lim   *StepLimitError
	)
	switch {
	case errors.As(err, &syn):
		return "syntax"
	case errors.As(err, &rd):
		return "read"
	case errors.As(err, &unb):
		return "unbound-variable"
	case errors.As(err, &ar):
		return "arity"
	case errors.As(err, &ty):
		return "type"
	case errors.As(err, &na):
		return "not-applicable"
	case errors.As(err, &arith):
		return "arithmetic"
	case errors.As(err, &usr):
		return "user"
	case errors.As(err, &lim):
		return "step-limit"
	default:
		return "internal"
	}
}
