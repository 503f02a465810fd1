package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	scheme "github.com/rphilander/stepscheme/core"
)

var (
	conn   net.Conn
	connMu sync.Mutex
)

// send sends a request to the daemon and returns the response.
func send(req map[string]any) (map[string]any, error) {
	req["id"] = scheme.NextID()
	connMu.Lock()
	defer connMu.Unlock()
	if err := scheme.WriteMsg(conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := scheme.ReadMsg(conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a daemon response into an MCP tool result.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		if kind, _ := resp["kind"].(string); kind != "" {
			errMsg = kind + ": " + errMsg
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := send(map[string]any{"op": "eval", "expr": expr})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleBindings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := send(map[string]any{"op": "bindings"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetInt("n", 0); n > 0 {
		req["n"] = n
	}
	resp, err := send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := send(map[string]any{"op": "reset"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func main() {
	sockPath := os.Getenv("STEPSCHEME_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/stepscheme.sock"
	}

	var err error
	conn, err = net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to %s: %v", sockPath, err)
	}
	defer conn.Close()
	log.Printf("connected to stepscheme: %s", sockPath)

	s := server.NewMCPServer(
		"stepscheme",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("scheme_eval",
			mcp.WithDescription("Evaluate one or more Scheme forms in the shared session. Returns the printed value of each form."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Source text, e.g. (define (square x) (* x x)) (square 12)"),
			),
		),
		handleEval,
	)

	s.AddTool(
		mcp.NewTool("scheme_bindings",
			mcp.WithDescription("List global bindings and their printed values."),
		),
		handleBindings,
	)

	s.AddTool(
		mcp.NewTool("scheme_traces",
			mcp.WithDescription("Recent evaluations with results, errors and step counts, newest first."),
			mcp.WithNumber("n",
				mcp.Description("Maximum number of traces to return (default all)"),
			),
		),
		handleTraces,
	)

	s.AddTool(
		mcp.NewTool("scheme_reset",
			mcp.WithDescription("Discard all user definitions and clear the transcript and traces."),
		),
		handleReset,
	)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("mcp server: %v", err)
	}
}
