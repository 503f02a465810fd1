package main

import (
	"slices"
	"testing"

	scheme "github.com/rphilander/stepscheme/core"
)

func TestCompleteSymbol(t *testing.T) {
	session, err := scheme.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()
	if _, err := session.EvalString("(define counter-start 1)"); err != nil {
		t.Fatal(err)
	}
	complete := completeSymbol(session.Interner())

	head, names, tail := complete("(+ (coun x)", 8)
	if head != "(+ (" || tail != " x)" {
		t.Fatalf("unexpected split %q / %q", head, tail)
	}
	if !slices.Contains(names, "counter-start") {
		t.Fatalf("expected counter-start among %v", names)
	}
	if !slices.IsSorted(names) {
		t.Errorf("expected sorted names, got %v", names)
	}

	if _, names, _ := complete("(car ", 5); names != nil {
		t.Errorf("expected no completions after a space, got %v", names)
	}
	if _, names, _ := complete("λ-fo", 4); len(names) != 0 {
		t.Errorf("expected no match for λ-fo, got %v", names)
	}
}
