package scheme

import (
	"io"
)

// DefaultMaxSteps bounds an evaluation when no limit is configured.
// Zero means unlimited.
const DefaultMaxSteps = 0

// Evaluator drives compiled expressions to completion on an explicit frame
// stack. An Evaluator holds configuration only; each Run allocates its own
// State, so one Evaluator may run several evaluations concurrently as long as
// they do not share mutable environments.
type Evaluator struct {
	MaxSteps int       // 0 for unlimited
	Output   io.Writer // destination for display and newline; nil discards
}

// Stats describes a finished evaluation.
type Stats struct {
	Steps      int
	PeakFrames int
}

func NewEvaluator() *Evaluator {
	return &Evaluator{MaxSteps: DefaultMaxSteps, Output: io.Discard}
}

// Evaluate runs expr in env and returns its value.
func (e *Evaluator) Evaluate(expr Expr, env *Environment) (Value, error) {
	v, _, err := e.Run(expr, env)
	return v, err
}

// Run is the trampoline. It pops the next step from the top frame, executes
// it, records any value it returns, and drops the frame once its step stack
// is empty. Native stack depth stays constant regardless of program
// recursion depth.
//
// After an error the State is abandoned; the next Run starts from scratch.
func (e *Evaluator) Run(expr Expr, env *Environment) (Value, Stats, error) {
	st := &State{ev: e, last: Unspecified}
	st.pushFrame(&frame{steps: []Step{expr}, env: env})

	var stats Stats
	for len(st.frames) > 0 {
		if e.MaxSteps > 0 && stats.Steps >= e.MaxSteps {
			stats.PeakFrames = st.peak
			return Value{}, stats, &EvalError{Err: &StepLimitError{Limit: e.MaxSteps}, Backtrace: st.backtrace()}
		}
		stats.Steps++

		f := st.top()
		n := len(f.steps) - 1
		step := f.steps[n]
		f.steps[n] = nil
		f.steps = f.steps[:n]

		v, err := step.Exec(st)
		if err != nil {
			stats.PeakFrames = st.peak
			return Value{}, stats, &EvalError{Err: err, Backtrace: st.backtrace()}
		}
		if v.Kind != ValNone {
			st.last = v
		}
		if len(st.frames) > 0 && len(st.top().steps) == 0 {
			st.popFrame()
		}
	}
	stats.PeakFrames = st.peak
	return st.last, stats, nil
}

func (e *Evaluator) output() io.Writer {
	if e.Output == nil {
		return io.Discard
	}
	return e.Output
}
