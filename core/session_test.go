package scheme

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionTranscriptReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.scm")

	s1, err := NewSession(WithTranscript(path))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.EvalAll(`(define (sq x) (* x x)) (define greeting "hi") (sq 3)`); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "(sq 3)") {
		t.Fatalf("transcript should only hold defines and set!, got %q", data)
	}

	s2 := testSession(t, WithTranscript(path))
	v, err := s2.EvalString(`(string-append greeting (number->string (sq 4)))`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != `"hi16"` {
		t.Fatalf("expected \"hi16\", got %s", v)
	}
}

func TestSessionTranscriptReplaysAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.scm")

	s1, err := NewSession(WithTranscript(path))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.EvalAll(`(define n 0) (set! n 5) (define m (+ n 1)) (set! n (* n 10))`); err != nil {
		t.Fatal(err)
	}
	live := map[string]string{}
	for _, b := range s1.Bindings() {
		live[b.Name] = b.Value.String()
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := testSession(t, WithTranscript(path))
	for _, name := range []string{"n", "m"} {
		v, err := s2.EvalString(name)
		if err != nil {
			t.Fatal(err)
		}
		if v.String() != live[name] {
			t.Errorf("%s: expected %s after replay, got %s", name, live[name], v)
		}
	}
	if live["m"] != "6" || live["n"] != "50" {
		t.Fatalf("unexpected live values %v", live)
	}
}

func TestSessionFailedDefineNotRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.scm")
	s := testSession(t, WithTranscript(path))

	if _, err := s.EvalAll(`(define x (car '()))`); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.EvalAll(`(set! nope 1)`); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.EvalAll(`(define y 1) (set! y 2)`); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "(define y 1)\n\n(set! y 2)\n\n" {
		t.Fatalf("unexpected transcript %q", data)
	}
}

func TestSessionReset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.scm")
	prelude := filepath.Join(dir, "prelude.scm")
	if err := os.WriteFile(prelude, []byte("(define (double x) (* 2 x))\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := testSession(t, WithTranscript(path), WithPrelude(prelude))
	if _, err := s.EvalAll(`(define z (double 21))`); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.EvalString("z"); err == nil {
		t.Fatal("z should be unbound after reset")
	}
	v, err := s.EvalString("(double 5)")
	if err != nil {
		t.Fatalf("prelude should survive reset: %v", err)
	}
	if v.String() != "10" {
		t.Fatalf("expected 10, got %s", v)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty transcript after reset, got %q", data)
	}
}

func TestSessionPreludeNotRecorded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.scm")
	prelude := filepath.Join(dir, "prelude.scm")
	if err := os.WriteFile(prelude, []byte("(define one 1)"), 0644); err != nil {
		t.Fatal(err)
	}
	testSession(t, WithTranscript(path), WithPrelude(prelude))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("prelude defines leaked into transcript: %q", data)
	}
}

func TestSessionLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "lib.scm")
	src := "; helpers\n(define (inc x) (+ x 1))\n(define base 41)\n"
	if err := os.WriteFile(file, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	s := testSession(t)
	if err := s.Load(file); err != nil {
		t.Fatal(err)
	}
	v, err := s.EvalString("(inc base)")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "42" {
		t.Fatalf("expected 42, got %s", v)
	}

	if err := s.Load(filepath.Join(t.TempDir(), "missing.scm")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSessionEvalStringRejectsMultipleForms(t *testing.T) {
	s := testSession(t)
	if _, err := s.EvalString("1 2"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSessionMaxStepsAndOutput(t *testing.T) {
	var out bytes.Buffer
	s := testSession(t, WithMaxSteps(500), WithOutput(&out))

	if _, err := s.EvalAll(`(display "x")`); err != nil {
		t.Fatal(err)
	}
	if out.String() != "x" {
		t.Fatalf("expected x, got %q", out.String())
	}

	if _, err := s.EvalString(`(define (spin) (spin))`); err != nil {
		t.Fatal(err)
	}
	_, err := s.EvalAll(`(spin)`)
	if errorKind(err) != "step-limit" {
		t.Fatalf("expected step-limit, got %v", err)
	}
	if s.LastStats().Steps != 500 {
		t.Fatalf("expected 500 steps, got %d", s.LastStats().Steps)
	}

	// the limit is per evaluation, not per session
	v, err := s.EvalString("(+ 1 2)")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "3" {
		t.Fatalf("expected 3, got %s", v)
	}
}

func TestSessionStatsCoverAllForms(t *testing.T) {
	s := testSession(t)
	if _, err := s.EvalString(`(define (sum n) (if (= n 0) 0 (+ n (sum (- n 1)))))`); err != nil {
		t.Fatal(err)
	}

	if _, err := s.EvalAll("(sum 50)"); err != nil {
		t.Fatal(err)
	}
	deep := s.LastStats()
	if _, err := s.EvalAll("(+ 1 2)"); err != nil {
		t.Fatal(err)
	}
	shallow := s.LastStats()

	if _, err := s.EvalAll("(sum 50) (+ 1 2)"); err != nil {
		t.Fatal(err)
	}
	both := s.LastStats()
	if both.Steps != deep.Steps+shallow.Steps {
		t.Fatalf("expected %d steps, got %d", deep.Steps+shallow.Steps, both.Steps)
	}
	if both.PeakFrames != deep.PeakFrames {
		t.Fatalf("expected peak %d, got %d", deep.PeakFrames, both.PeakFrames)
	}

	// a failing form still counts the steps before it
	if _, err := s.EvalAll("(+ 1 2) (car 1)"); err == nil {
		t.Fatal("expected error")
	}
	if got := s.LastStats().Steps; got <= shallow.Steps {
		t.Fatalf("expected more than %d steps, got %d", shallow.Steps, got)
	}
}

func TestFormatValues(t *testing.T) {
	got := FormatValues([]Value{IntVal(1), Unspecified, StringVal("s")})
	if got != "1\n\"s\"" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestErrorKinds(t *testing.T) {
	cases := map[string]string{
		"(if)":             "syntax",
		"(1 2":             "read",
		"nope":             "unbound-variable",
		"(car 1 2)":        "arity",
		"(car 1)":          "type",
		"(1 2)":            "not-applicable",
		"(/ 1 0)":          "arithmetic",
		`(error "x")`:      "user",
		"((lambda (x) x))": "arity",
	}
	for src, want := range cases {
		s := testSession(t)
		_, err := s.EvalAll(src)
		if got := errorKind(err); got != want {
			t.Errorf("%s: expected %s, got %s (%v)", src, want, got, err)
		}
	}
}
