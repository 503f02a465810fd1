package scheme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const httpRequestTimeout = 30 * time.Second

// HTTPFrontend serves the control ops over HTTP. Each request is turned into
// the same message a socket client would send and handed to Server.Do.
//
//	GET  /          manual
//	POST /eval      {"expr": "..."}
//	POST /load      {"path": "..."}
//	GET  /bindings
//	GET  /traces?n=10
//	POST /reset
type HTTPFrontend struct {
	server *Server
	srv    *http.Server
}

func NewHTTPFrontend(server *Server) *HTTPFrontend {
	h := &HTTPFrontend{server: server}
	h.srv = &http.Server{Handler: h}
	return h
}

// ListenAndServe blocks until Shutdown is called or the listener fails.
func (h *HTTPFrontend) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	log.Printf("http listening on %s", ln.Addr())
	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

func (h *HTTPFrontend) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

func (h *HTTPFrontend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op := strings.Trim(r.URL.Path, "/")
	msg := map[string]any{"id": uuid.NewString()}

	switch op {
	case "", "bindings", "traces":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if n := r.URL.Query().Get("n"); n != "" {
			v, err := strconv.Atoi(n)
			if err != nil {
				http.Error(w, fmt.Sprintf("bad n: %q", n), http.StatusBadRequest)
				return
			}
			msg["n"] = float64(v)
		}
	case "eval", "load", "reset":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxMsgSize))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &msg); err != nil {
				http.Error(w, fmt.Sprintf("parse body: %v", err), http.StatusBadRequest)
				return
			}
		}
	default:
		http.NotFound(w, r)
		return
	}
	if op != "" {
		msg["op"] = op
	}

	ch := make(chan map[string]any, 1)
	go func() { ch <- h.server.Do(msg) }()

	var resp map[string]any
	select {
	case resp = <-ch:
	case <-time.After(httpRequestTimeout):
		http.Error(w, "evaluation timeout", http.StatusGatewayTimeout)
		return
	}

	status := http.StatusOK
	if ok, _ := resp["ok"].(bool); !ok {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("write http response: %v", err)
	}
}
