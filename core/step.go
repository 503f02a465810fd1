package scheme

// Step is a resumable unit of evaluation. Exec either returns a value, or
// returns None after pushing further steps onto the current frame.
//
// Steps reachable from an Expr are shared by every evaluation of that Expr
// and must not hold per-evaluation state. Continuations that accumulate
// state (see sequencer) are allocated fresh each time they are pushed.
type Step interface {
	Exec(st *State) (Value, error)
}

// StepFunc adapts a plain function to Step.
type StepFunc func(st *State) (Value, error)

func (f StepFunc) Exec(st *State) (Value, error) { return f(st) }

type frame struct {
	steps []Step
	env   *Environment
	proc  *Procedure // nil for the root frame
}

// State is the interpreter state handed to every step: the frame stack and
// the last value register.
type State struct {
	ev     *Evaluator
	frames []*frame
	last   Value
	peak   int
}

func (st *State) top() *frame { return st.frames[len(st.frames)-1] }

// Push adds steps to the current frame. The last step pushed runs first.
func (st *State) Push(steps ...Step) {
	f := st.top()
	f.steps = append(f.steps, steps...)
}

// Last is the value produced by the most recently completed step.
func (st *State) Last() Value { return st.last }

// Env is the environment of the current frame.
func (st *State) Env() *Environment { return st.top().env }

func (st *State) Evaluator() *Evaluator { return st.ev }

func (st *State) pushFrame(f *frame) {
	st.frames = append(st.frames, f)
	if len(st.frames) > st.peak {
		st.peak = len(st.frames)
	}
}

func (st *State) popFrame() {
	st.frames[len(st.frames)-1] = nil
	st.frames = st.frames[:len(st.frames)-1]
}

// Apply performs a procedure call with already evaluated operands. It is the
// single call path shared by application expressions and primitives that
// call back into procedures.
//
// For a compound procedure, if nothing remains to run in the current frame
// the caller's frame is dropped before the callee's is pushed, so calls in
// tail position do not grow the frame stack.
func (st *State) Apply(fn Value, args []Value) (Value, error) {
	switch fn.Kind {
	case ValPrimitive:
		p := fn.Prim
		if len(args) < p.MinArgs || (p.MaxArgs >= 0 && len(args) > p.MaxArgs) {
			return Value{}, &ArityError{Name: p.Name, Min: p.MinArgs, Max: p.MaxArgs, Got: len(args)}
		}
		return p.Fn(st, args)
	case ValProcedure:
		proc := fn.Proc
		if len(args) != len(proc.Params) {
			n := len(proc.Params)
			return Value{}, &ArityError{Name: proc.Name, Min: n, Max: n, Got: len(args)}
		}
		env := NewEnvironment(proc.Env)
		for i, p := range proc.Params {
			env.Define(p, args[i])
		}
		if len(st.frames) > 0 && len(st.top().steps) == 0 {
			st.popFrame()
		}
		st.pushFrame(&frame{steps: []Step{proc.Body}, env: env, proc: proc})
		return None, nil
	default:
		return Value{}, &NotApplicableError{Value: fn}
	}
}

func (st *State) backtrace() []string {
	var names []string
	for i := len(st.frames) - 1; i >= 0; i-- {
		if p := st.frames[i].proc; p != nil {
			name := p.Name
			if name == "" {
				name = "anonymous"
			}
			names = append(names, name)
		}
	}
	return names
}
