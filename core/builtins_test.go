package scheme

import (
	"errors"
	"testing"
)

func TestBuiltinArithmetic(t *testing.T) {
	testEval(t, "(+)", "0")
	testEval(t, "(*)", "1")
	testEval(t, "(+ 1 2 3)", "6")
	testEval(t, "(- 5)", "-5")
	testEval(t, "(- 10 1 2)", "7")
	testEval(t, "(/ 6 3)", "2")
	testEval(t, "(/ 1 3)", "1/3")
	testEval(t, "(/ 2)", "1/2")
	testEval(t, "(+ 1/3 2/3)", "1")
	testEval(t, "(add1 41)", "42")
	testEval(t, "(sub1 0)", "-1")
	testEval(t, "(abs -7/2)", "7/2")
	testEval(t, "(max 1 3 2)", "3")
	testEval(t, "(min 4 -1 2)", "-1")
	testEval(t, "(numerator 6/4)", "3")
	testEval(t, "(denominator 6/4)", "2")
	testEval(t, "(quotient 17 5)", "3")
	testEval(t, "(remainder 17 5)", "2")
	testEval(t, "(modulo -7 2)", "1")
	testEval(t, "(* 99999999999 99999999999)", "9999999999800000000001")
}

func TestBuiltinComparison(t *testing.T) {
	testEval(t, "(= 1 1 1)", "#t")
	testEval(t, "(= 1 2)", "#f")
	testEval(t, "(< 1 2 3)", "#t")
	testEval(t, "(< 1 3 2)", "#f")
	testEval(t, "(>= 3 3 1)", "#t")
	testEval(t, "(<= 1/2 1)", "#t")
	testEval(t, "(zero? 0)", "#t")
	testEval(t, "(integer? 4/2)", "#t")
	testEval(t, "(integer? 1/2)", "#f")
	testEval(t, "(number? 'a)", "#f")
}

func TestBuiltinLists(t *testing.T) {
	testEval(t, "(cons 1 2)", "(1 . 2)")
	testEval(t, "(car '(1 2))", "1")
	testEval(t, "(cdr '(1 2))", "(2)")
	testEval(t, "(cadr '(1 2 3))", "2")
	testEval(t, "(cddr '(1 2 3))", "(3)")
	testEval(t, "(list 1 'a \"s\")", `(1 a "s")`)
	testEval(t, "(list)", "()")
	testEval(t, "(length '(1 2 3))", "3")
	testEval(t, "(append '(1) '(2 3) '())", "(1 2 3)")
	testEval(t, "(append '(1) 2)", "(1 . 2)")
	testEval(t, "(append)", "()")
	testEval(t, "(reverse '(1 2 3))", "(3 2 1)")
	testEval(t, "(list? '(1 2))", "#t")
	testEval(t, "(list? '(1 . 2))", "#f")
	testEval(t, "(pair? '())", "#f")
	testEval(t, "(null? '())", "#t")
}

func TestBuiltinPredicates(t *testing.T) {
	testEval(t, "(eq? 'a 'a)", "#t")
	testEval(t, "(eqv? '(1) '(1))", "#f")
	testEval(t, "(equal? '(1 (2 \"x\")) '(1 (2 \"x\")))", "#t")
	testEval(t, "(not #f)", "#t")
	testEval(t, "(not 0)", "#f")
	testEval(t, "(boolean? #f)", "#t")
	testEval(t, "(symbol? 'a)", "#t")
	testEval(t, "(string? \"a\")", "#t")
	testEval(t, "(procedure? car)", "#t")
	testEval(t, "(procedure? (lambda () 1))", "#t")
	testEval(t, "(procedure? 'car)", "#f")
}

func TestBuiltinStrings(t *testing.T) {
	testEval(t, `(string-append "foo" "bar")`, `"foobar"`)
	testEval(t, `(string-length "héllo")`, "5")
	testEval(t, `(string=? "a" "a" "a")`, "#t")
	testEval(t, `(symbol->string 'abc)`, `"abc"`)
	testEval(t, `(eq? (string->symbol "abc") 'abc)`, "#t")
	testEval(t, `(number->string 3/4)`, `"3/4"`)
}

func TestBuiltinHigherOrder(t *testing.T) {
	testEval(t, "(map (lambda (x) (* x x)) '(1 2 3))", "(1 4 9)")
	testEval(t, "(map + '(1 2) '(10 20 30))", "(11 22)")
	testEval(t, "(map car '())", "()")
	testEval(t, "(filter (lambda (x) (> x 1)) '(1 2 3))", "(2 3)")
	testEval(t, "(fold + 0 '(1 2 3))", "6")
	testEval(t, "(fold cons '() '(1 2 3))", "(3 2 1)")
	testEval(t, "(apply + 1 2 '(3 4))", "10")
	testEval(t, "(apply list '())", "()")
	testEval(t, "(for-each car '((1)))", "#!unspecific")
	testEval(t, "(map (lambda (f) (f 2)) (list add1 (lambda (x) (* x 10))))", "(3 20)")
}

func TestBuiltinMapWithRecursiveCallback(t *testing.T) {
	src := `
(define (fact n) (if (= n 0) 1 (* n (fact (- n 1)))))
(define (nested n) (map (lambda (x) (apply + (map fact (list x x)))) (list n n)))
(nested 5)`
	testEval(t, src, "(240 240)")
}

func TestBuiltinMapLongList(t *testing.T) {
	src := `
(define (range n)
  (define (loop i acc) (if (< i 0) acc (loop (- i 1) (cons i acc))))
  (loop (- n 1) '()))
(fold + 0 (map add1 (range 20000)))`
	testEval(t, src, "200010000")
}

func TestBuiltinTypeErrors(t *testing.T) {
	for _, src := range []string{
		"(+ 1 'a)",
		"(car '())",
		"(cdr 5)",
		"(length '(1 . 2))",
		"(string-append \"a\" 1)",
		"(map 1 '(1))",
		"(map car 5)",
		"(apply + 1)",
		"(quotient 1/2 1)",
		"(symbol->string \"a\")",
	} {
		err := testEvalError(t, src)
		var ty *TypeError
		if !errors.As(err, &ty) {
			t.Errorf("%s: expected type error, got %v", src, err)
		}
	}
}

func TestBuiltinArity(t *testing.T) {
	err := testEvalError(t, "(car 1 2)")
	var ar *ArityError
	if !errors.As(err, &ar) {
		t.Fatalf("expected arity error, got %v", err)
	}
	if ar.Name != "car" || ar.Min != 1 || ar.Max != 1 || ar.Got != 2 {
		t.Fatalf("unexpected arity error %+v", ar)
	}
	if err := testEvalError(t, "(-)"); !errors.As(err, &ar) {
		t.Fatalf("expected arity error, got %v", err)
	}
}

func TestBuiltinErrorInCallbackPropagates(t *testing.T) {
	err := testEvalError(t, `(map (lambda (x) (if (= x 2) (error "bad" x) x)) '(1 2 3))`)
	var ue *UserError
	if !errors.As(err, &ue) || ue.Message != "bad" {
		t.Fatalf("expected user error bad, got %v", err)
	}
}
