package scheme

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
)

// Server exposes a Session over a unix socket. A single actor goroutine owns
// the Session; connection goroutines only forward requests to it.
type Server struct {
	session  *Session
	traces   TraceStore
	requests chan serverRequest
	done     chan struct{}
	listener net.Listener
	stopOnce sync.Once
	stopped  chan struct{} // closed once the actor has closed session and traces
}

type serverRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewServer takes ownership of session and traces.
func NewServer(session *Session, traces TraceStore) *Server {
	return &Server{
		session:  session,
		traces:   traces,
		requests: make(chan serverRequest, 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Listen binds the control socket, removing a stale one first.
func (s *Server) Listen(sockPath string) error {
	os.Remove(sockPath)
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = l
	return nil
}

// Run starts the actor and accepts connections. It blocks until Shutdown
// and returns only after the session and trace store are closed.
func (s *Server) Run() {
	go s.actorLoop()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			break
		}
		go s.handleConnection(conn)
	}
	s.Shutdown()
	<-s.stopped
}

func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		close(s.done)
	})
}

// actorLoop is the single goroutine that touches the session.
func (s *Server) actorLoop() {
	defer close(s.stopped)
	defer func() {
		if err := s.session.Close(); err != nil {
			log.Printf("close session: %v", err)
		}
		if err := s.traces.Close(); err != nil {
			log.Printf("close traces: %v", err)
		}
	}()
	for {
		select {
		case req := <-s.requests:
			req.response <- s.handleRequest(req.msg)
		case <-s.done:
			return
		}
	}
}

// Do sends msg to the actor and waits for the response.
func (s *Server) Do(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)
	resp := make(chan map[string]any, 1)
	select {
	case s.requests <- serverRequest{msg: msg, response: resp}:
	case <-s.done:
		return errorResponse(id, "server shutting down")
	}
	select {
	case r := <-resp:
		return r
	case <-s.done:
		return errorResponse(id, "server shutting down")
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("read client message: %v", err)
			}
			return
		}

		resp := s.Do(msg)
		if err := WriteMsg(conn, resp); err != nil {
			log.Printf("write client response: %v", err)
			return
		}
	}
}

func (s *Server) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	if op == "" {
		return manual(id)
	}

	switch op {
	case "eval":
		return s.handleEval(id, msg)
	case "load":
		return s.handleLoad(id, msg)
	case "bindings":
		return s.handleBindings(id)
	case "traces":
		return s.handleTraces(id, msg)
	case "reset":
		return s.handleReset(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func manual(id string) map[string]any {
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "stepscheme",
			"version": "1.0.0",
			"ops": map[string]any{
				"eval":     "Evaluate one or more forms. Params: expr (string)",
				"load":     "Evaluate a source file on the server. Params: path (string)",
				"bindings": "List global bindings with their printed values.",
				"traces":   "Recent evaluations, newest first. Params: n (number, optional)",
				"reset":    "Discard user bindings and truncate the transcript.",
			},
		},
	}
}

func (s *Server) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}

	vals, err := s.session.EvalAll(expr)
	trace := newTrace(expr, s.session.LastStats())
	if err != nil {
		trace.Error = err.Error()
		trace.ErrorKind = errorKind(err)
		s.appendTrace(trace)
		resp := errorResponse(id, err.Error())
		resp["kind"] = trace.ErrorKind
		return resp
	}

	printed := make([]any, len(vals))
	for i, v := range vals {
		printed[i] = v.String()
	}
	trace.Result = FormatValues(vals)
	s.appendTrace(trace)

	return map[string]any{
		"id":    id,
		"ok":    true,
		"value": printed,
		"stats": map[string]any{"steps": trace.Steps, "peak_frames": trace.PeakFrames},
	}
}

func (s *Server) handleLoad(id string, msg map[string]any) map[string]any {
	path, ok := msg["path"].(string)
	if !ok {
		return errorResponse(id, "load: missing 'path' string")
	}
	if err := s.session.Load(path); err != nil {
		return errorResponse(id, fmt.Sprintf("load %s: %s", path, err))
	}
	return map[string]any{"id": id, "ok": true, "value": fmt.Sprintf("loaded %s", path)}
}

func (s *Server) handleBindings(id string) map[string]any {
	bindings := s.session.Bindings()
	out := make(map[string]any, len(bindings))
	for _, b := range bindings {
		out[b.Name] = b.Value.String()
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleTraces(id string, msg map[string]any) map[string]any {
	n := 0
	if f, ok := msg["n"].(float64); ok {
		n = int(f)
	}
	traces, err := s.traces.Recent(n)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	out := make([]any, len(traces))
	for i, t := range traces {
		out[i] = t.ToMap()
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleReset(id string) map[string]any {
	if err := s.session.Reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	if err := s.traces.Clear(); err != nil {
		return errorResponse(id, fmt.Sprintf("reset: clear traces: %s", err))
	}
	return map[string]any{"id": id, "ok": true, "value": "reset"}
}

func (s *Server) appendTrace(t *Trace) {
	if err := s.traces.Append(t); err != nil {
		log.Printf("append trace: %v", err)
	}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}
