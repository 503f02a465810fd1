package scheme

import "sort"

// Environment is one namespace plus a link to its enclosing environment.
// The parent link is fixed at construction; only bindings change.
type Environment struct {
	vars   map[*Symbol]Value
	parent *Environment
}

func NewEnvironment(parent *Environment) *Environment {
	return &Environment{vars: make(map[*Symbol]Value), parent: parent}
}

func (e *Environment) Lookup(sym *Symbol) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[sym]; ok {
			return v, nil
		}
	}
	return Value{}, &UnboundVariableError{Name: sym.Name}
}

// Set rebinds an existing variable in the nearest namespace that holds it.
// It never creates a binding.
func (e *Environment) Set(sym *Symbol, v Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[sym]; ok {
			env.vars[sym] = v
			return nil
		}
	}
	return &UnboundVariableError{Name: sym.Name}
}

// Define binds sym in the innermost namespace, overwriting any local binding.
func (e *Environment) Define(sym *Symbol, v Value) {
	e.vars[sym] = v
}

type Binding struct {
	Name  string
	Value Value
}

// Bindings returns a sorted snapshot of this namespace only.
func (e *Environment) Bindings() []Binding {
	out := make([]Binding, 0, len(e.vars))
	for sym, v := range e.vars {
		out = append(out, Binding{Name: sym.Name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
