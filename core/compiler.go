package scheme

import "fmt"

type formCompiler func(c *Compiler, form Value, elems []Value, name string) (Expr, error)

// Compiler lowers data read by the reader into Exprs. It has no state beyond
// its interner and keyword table and may be shared.
type Compiler struct {
	in    *Interner
	forms map[*Symbol]formCompiler
	elseS *Symbol
}

func NewCompiler(in *Interner) *Compiler {
	c := &Compiler{in: in, elseS: in.Intern("else")}
	c.forms = map[*Symbol]formCompiler{
		in.Intern("quote"):  compileQuote,
		in.Intern("set!"):   compileSet,
		in.Intern("define"): compileDefine,
		in.Intern("if"):     compileIf,
		in.Intern("lambda"): compileLambda,
		in.Intern("let"):    compileLet,
		in.Intern("begin"):  compileBegin,
		in.Intern("cond"):   compileCond,
		in.Intern("and"):    compileAnd,
		in.Intern("or"):     compileOr,
	}
	return c
}

func (c *Compiler) Compile(datum Value) (Expr, error) {
	return c.compile(datum, "")
}

// compile lowers datum. name is threaded from define so that a lambda bound
// by it carries the defined name.
func (c *Compiler) compile(datum Value, name string) (Expr, error) {
	switch datum.Kind {
	case ValNumber, ValString, ValBool:
		return &SelfEvaluating{Value: datum}, nil
	case ValSymbol:
		return &Variable{Sym: datum.Sym}, nil
	case ValNil:
		return nil, syntaxErr(datum, "empty combination")
	case ValPair:
		elems, ok := ListToSlice(datum)
		if !ok {
			return nil, syntaxErr(datum, "combination must be a proper list")
		}
		if head := elems[0]; head.Kind == ValSymbol {
			if fc, ok := c.forms[head.Sym]; ok {
				return fc(c, datum, elems, name)
			}
		}
		exprs, err := c.compileAll(elems)
		if err != nil {
			return nil, err
		}
		return &Application{Exprs: exprs}, nil
	default:
		return nil, syntaxErr(datum, fmt.Sprintf("cannot compile %s", datum.KindName()))
	}
}

func (c *Compiler) compileAll(data []Value) ([]Expr, error) {
	exprs := make([]Expr, len(data))
	for i, d := range data {
		x, err := c.compile(d, "")
		if err != nil {
			return nil, err
		}
		exprs[i] = x
	}
	return exprs, nil
}

func syntaxErr(form Value, reason string) error {
	return &SyntaxError{Form: form, Reason: reason}
}

// --- Special forms ---

func compileQuote(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	if len(elems) != 2 {
		return nil, syntaxErr(form, "quote: expected exactly 1 operand")
	}
	return &Quote{Datum: elems[1]}, nil
}

func compileSet(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	if len(elems) != 3 {
		return nil, syntaxErr(form, "set!: expected (set! symbol expr)")
	}
	if elems[1].Kind != ValSymbol {
		return nil, syntaxErr(form, "set!: target must be a symbol")
	}
	value, err := c.compile(elems[2], "")
	if err != nil {
		return nil, err
	}
	return NewAssignment(elems[1].Sym, value), nil
}

func compileDefine(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	if len(elems) < 3 {
		return nil, syntaxErr(form, "define: missing value")
	}
	target := elems[1]
	switch target.Kind {
	case ValSymbol:
		if len(elems) != 3 {
			return nil, syntaxErr(form, "define: expected (define symbol expr)")
		}
		value, err := c.compile(elems[2], target.Sym.Name)
		if err != nil {
			return nil, err
		}
		return NewDefinition(target.Sym, value), nil
	case ValPair:
		// (define (name . params) body+)
		if target.Pair.Car.Kind != ValSymbol {
			return nil, syntaxErr(form, "define: procedure name must be a symbol")
		}
		sym := target.Pair.Car.Sym
		lambda, err := c.makeLambda(form, target.Pair.Cdr, elems[2:], sym.Name)
		if err != nil {
			return nil, err
		}
		return NewDefinition(sym, lambda), nil
	default:
		return nil, syntaxErr(form, "define: target must be a symbol or (name params...)")
	}
}

func compileIf(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	if len(elems) != 3 && len(elems) != 4 {
		return nil, syntaxErr(form, "if: expected (if pred conseq [alt])")
	}
	exprs, err := c.compileAll(elems[1:])
	if err != nil {
		return nil, err
	}
	var alt Expr
	if len(exprs) == 3 {
		alt = exprs[2]
	}
	return NewIf(exprs[0], exprs[1], alt), nil
}

func compileLambda(c *Compiler, form Value, elems []Value, name string) (Expr, error) {
	if len(elems) < 3 {
		return nil, syntaxErr(form, "lambda: expected (lambda (params) body+)")
	}
	lambda, err := c.makeLambda(form, elems[1], elems[2:], name)
	if err != nil {
		return nil, err
	}
	return lambda, nil
}

func (c *Compiler) makeLambda(form, params Value, body []Value, name string) (*Lambda, error) {
	if len(body) == 0 {
		return nil, syntaxErr(form, "empty procedure body")
	}
	ps, ok := ListToSlice(params)
	if !ok {
		return nil, syntaxErr(form, "parameter list must be a proper list")
	}
	syms := make([]*Symbol, len(ps))
	for i, p := range ps {
		if p.Kind != ValSymbol {
			return nil, syntaxErr(form, fmt.Sprintf("parameter must be a symbol, got %s", p))
		}
		syms[i] = p.Sym
	}
	exprs, err := c.compileAll(body)
	if err != nil {
		return nil, err
	}
	return &Lambda{Params: syms, Body: &Begin{Exprs: exprs}, Name: name}, nil
}

// let is sugar for an immediately applied lambda.
func compileLet(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	if len(elems) < 3 {
		return nil, syntaxErr(form, "let: expected (let ((name expr)*) body+)")
	}
	bindings, ok := ListToSlice(elems[1])
	if !ok {
		return nil, syntaxErr(form, "let: bindings must be a proper list")
	}
	params := make([]Value, len(bindings))
	args := make([]Value, len(bindings))
	for i, b := range bindings {
		pair, ok := ListToSlice(b)
		if !ok || len(pair) != 2 || pair[0].Kind != ValSymbol {
			return nil, syntaxErr(form, fmt.Sprintf("let: malformed binding %s", b))
		}
		params[i] = pair[0]
		args[i] = pair[1]
	}
	lambda, err := c.makeLambda(form, List(params...), elems[2:], "")
	if err != nil {
		return nil, err
	}
	argExprs, err := c.compileAll(args)
	if err != nil {
		return nil, err
	}
	return &Application{Exprs: append([]Expr{lambda}, argExprs...)}, nil
}

func compileBegin(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	if len(elems) < 2 {
		return nil, syntaxErr(form, "begin: expected at least 1 expression")
	}
	exprs, err := c.compileAll(elems[1:])
	if err != nil {
		return nil, err
	}
	return &Begin{Exprs: exprs}, nil
}

// cond folds from the right into nested Ifs. else is legal only as the
// test of the final clause.
func compileCond(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	clauses := elems[1:]
	if len(clauses) == 0 {
		return nil, syntaxErr(form, "cond: expected at least 1 clause")
	}
	var result Expr
	for i := len(clauses) - 1; i >= 0; i-- {
		parts, ok := ListToSlice(clauses[i])
		if !ok || len(parts) < 2 {
			return nil, syntaxErr(form, fmt.Sprintf("cond: malformed clause %s", clauses[i]))
		}
		body, err := c.compileAll(parts[1:])
		if err != nil {
			return nil, err
		}
		seq := &Begin{Exprs: body}
		if parts[0].Kind == ValSymbol && parts[0].Sym == c.elseS {
			if i != len(clauses)-1 {
				return nil, syntaxErr(form, "cond: else must be the last clause")
			}
			result = seq
			continue
		}
		test, err := c.compile(parts[0], "")
		if err != nil {
			return nil, err
		}
		result = NewIf(test, seq, result)
	}
	return result, nil
}

func compileAnd(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	exprs, err := c.compileAll(elems[1:])
	if err != nil {
		return nil, err
	}
	return NewAnd(exprs), nil
}

func compileOr(c *Compiler, form Value, elems []Value, _ string) (Expr, error) {
	exprs, err := c.compileAll(elems[1:])
	if err != nil {
		return nil, err
	}
	return NewOr(exprs), nil
}
