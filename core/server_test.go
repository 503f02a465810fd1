package scheme

import (
	"bytes"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewSession()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return NewServer(s, NewMemoryTraceStore(10))
}

func TestServerEval(t *testing.T) {
	srv := testServer(t)

	resp := srv.handleRequest(map[string]any{"id": "r1", "op": "eval", "expr": "(define x 2) (* x 21)"})
	if resp["ok"] != true {
		t.Fatalf("expected ok, got %v", resp)
	}
	if resp["id"] != "r1" {
		t.Fatalf("expected id r1, got %v", resp["id"])
	}
	vals := resp["value"].([]any)
	if len(vals) != 2 || vals[1] != "42" {
		t.Fatalf("unexpected values %v", vals)
	}
	stats := resp["stats"].(map[string]any)
	if stats["steps"].(int) <= 0 {
		t.Fatalf("expected step count, got %v", stats)
	}
}

func TestServerEvalError(t *testing.T) {
	srv := testServer(t)

	resp := srv.handleRequest(map[string]any{"op": "eval", "expr": "(car 5)"})
	if resp["ok"] != false {
		t.Fatalf("expected failure, got %v", resp)
	}
	if resp["kind"] != "type" {
		t.Fatalf("expected kind type, got %v", resp["kind"])
	}

	resp = srv.handleRequest(map[string]any{"op": "eval"})
	if resp["ok"] != false {
		t.Fatalf("expected failure for missing expr, got %v", resp)
	}
}

func TestServerTracesAndReset(t *testing.T) {
	srv := testServer(t)

	srv.handleRequest(map[string]any{"op": "eval", "expr": "(define y 1)"})
	srv.handleRequest(map[string]any{"op": "eval", "expr": "zzz"})

	resp := srv.handleRequest(map[string]any{"op": "traces", "n": float64(5)})
	traces := resp["value"].([]any)
	if len(traces) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(traces))
	}
	newest := traces[0].(map[string]any)
	if newest["source"] != "zzz" || newest["error_kind"] != "unbound-variable" {
		t.Fatalf("unexpected newest trace %v", newest)
	}

	resp = srv.handleRequest(map[string]any{"op": "bindings"})
	bindings := resp["value"].(map[string]any)
	if bindings["y"] != "1" {
		t.Fatalf("expected y = 1, got %v", bindings["y"])
	}
	if bindings["car"] != "#[primitive car]" {
		t.Fatalf("expected car primitive, got %v", bindings["car"])
	}

	resp = srv.handleRequest(map[string]any{"op": "reset"})
	if resp["ok"] != true {
		t.Fatalf("reset failed: %v", resp)
	}
	bindings = srv.handleRequest(map[string]any{"op": "bindings"})["value"].(map[string]any)
	if _, ok := bindings["y"]; ok {
		t.Fatal("y should be gone after reset")
	}
	traces = srv.handleRequest(map[string]any{"op": "traces"})["value"].([]any)
	if len(traces) != 0 {
		t.Fatalf("expected traces cleared, got %d", len(traces))
	}
}

func TestServerManualAndUnknownOp(t *testing.T) {
	srv := testServer(t)

	resp := srv.handleRequest(map[string]any{})
	if resp["ok"] != true {
		t.Fatalf("expected manual, got %v", resp)
	}
	ops := resp["value"].(map[string]any)["ops"].(map[string]any)
	if _, ok := ops["eval"]; !ok {
		t.Fatal("manual should describe eval")
	}

	resp = srv.handleRequest(map[string]any{"op": "frobnicate"})
	if resp["ok"] != false || resp["error"] != "unknown op: frobnicate" {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestServerLoad(t *testing.T) {
	srv := testServer(t)

	resp := srv.handleRequest(map[string]any{"op": "load", "path": filepath.Join(t.TempDir(), "missing.scm")})
	if resp["ok"] != false {
		t.Fatalf("expected failure, got %v", resp)
	}
	resp = srv.handleRequest(map[string]any{"op": "load"})
	if resp["ok"] != false {
		t.Fatalf("expected failure for missing path, got %v", resp)
	}
}

func TestWireRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := map[string]any{"id": NextID(), "op": "eval", "expr": "(+ 1 2)"}
	if err := WriteMsg(&buf, msg); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMsg(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got["expr"] != "(+ 1 2)" || got["id"] != msg["id"] {
		t.Fatalf("unexpected message %v", got)
	}
	if _, err := ReadMsg(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestWireRejectsOversized(t *testing.T) {
	buf := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadMsg(buf); err == nil {
		t.Fatal("expected error for oversized message")
	}
}

func TestServerSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "s.sock")
	s, err := NewSession()
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(s, NewMemoryTraceStore(10))
	if err := srv.Listen(sock); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		srv.Run()
		close(done)
	}()

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	for _, expr := range []string{"(define (f n) (* n 2))", "(f 21)"} {
		if err := WriteMsg(conn, map[string]any{"id": NextID(), "op": "eval", "expr": expr}); err != nil {
			t.Fatal(err)
		}
		resp, err := ReadMsg(conn)
		if err != nil {
			t.Fatal(err)
		}
		if resp["ok"] != true {
			t.Fatalf("eval %s failed: %v", expr, resp)
		}
		if expr == "(f 21)" {
			vals := resp["value"].([]any)
			if vals[0] != "42" {
				t.Fatalf("expected 42, got %v", vals)
			}
		}
	}

	srv.Shutdown()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	resp := srv.Do(map[string]any{"id": "late", "op": "eval", "expr": "1"})
	if resp["ok"] != false {
		t.Fatalf("expected shutdown error, got %v", resp)
	}
}

type closeRecordingStore struct {
	*MemoryTraceStore
	closed bool
}

func (c *closeRecordingStore) Close() error {
	c.closed = true
	return c.MemoryTraceStore.Close()
}

func TestServerRunReturnsAfterCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.scm")
	s, err := NewSession(WithTranscript(path))
	if err != nil {
		t.Fatal(err)
	}
	store := &closeRecordingStore{MemoryTraceStore: NewMemoryTraceStore(10)}
	srv := NewServer(s, store)
	if err := srv.Listen(filepath.Join(t.TempDir(), "c.sock")); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		srv.Run()
		close(done)
	}()

	if resp := srv.Do(map[string]any{"op": "eval", "expr": "(define k 1)"}); resp["ok"] != true {
		t.Fatalf("eval failed: %v", resp)
	}
	srv.Shutdown()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	if !store.closed {
		t.Fatal("trace store not closed when Run returned")
	}
	if s.logFile != nil {
		t.Fatal("transcript not closed when Run returned")
	}
}
