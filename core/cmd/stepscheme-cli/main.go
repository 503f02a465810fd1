package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	scheme "github.com/rphilander/stepscheme/core"
)

const usage = `usage: stepscheme-cli [flags] <command> [args]

commands:
  eval <source>...   Evaluate source; "-" reads it from stdin
  load <file>        Evaluate a file on the daemon
  bindings           List global bindings
  traces [n]         Show recent evaluations, newest first
  reset              Discard all definitions and traces
  manual             Show the daemon's op list

With no command a raw JSON request is read from stdin.

flags:
`

func main() {
	sock := flag.String("sock", defaultSocket(), "Daemon socket path")
	raw := flag.Bool("json", false, "Print the raw JSON response")
	stats := flag.Bool("stats", false, "After eval, print steps and peak frame depth")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	req, err := buildRequest(flag.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stepscheme-cli: %v\n", err)
		os.Exit(2)
	}

	resp, err := roundTrip(*sock, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stepscheme-cli: %v\n", err)
		os.Exit(1)
	}

	if *raw {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		if ok, _ := resp["ok"].(bool); !ok {
			os.Exit(1)
		}
		return
	}
	op, _ := req["op"].(string)
	if err := printResponse(os.Stdout, op, resp, *stats); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultSocket() string {
	if s := os.Getenv("STEPSCHEME_SOCK"); s != "" {
		return s
	}
	return "/tmp/stepscheme.sock"
}

// buildRequest turns command-line arguments into a daemon message. With no
// arguments the message is read from stdin as JSON.
func buildRequest(args []string, stdin io.Reader) (map[string]any, error) {
	req := map[string]any{"id": scheme.NextID()}
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		if len(strings.TrimSpace(string(data))) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, fmt.Errorf("parse request: %w", err)
			}
		}
		if _, ok := req["id"]; !ok {
			req["id"] = scheme.NextID()
		}
		return req, nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "eval":
		src := strings.Join(rest, " ")
		if len(rest) == 1 && rest[0] == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			src = string(data)
		}
		if strings.TrimSpace(src) == "" {
			return nil, errors.New("eval: no source given")
		}
		req["op"] = "eval"
		req["expr"] = src
	case "load":
		if len(rest) != 1 {
			return nil, errors.New("load: expected one file")
		}
		// the daemon resolves paths against its own working directory
		path, err := filepath.Abs(rest[0])
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		req["op"] = "load"
		req["path"] = path
	case "traces":
		req["op"] = "traces"
		if len(rest) > 1 {
			return nil, errors.New("traces: expected at most one count")
		}
		if len(rest) == 1 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("traces: bad count %q", rest[0])
			}
			req["n"] = float64(n)
		}
	case "bindings", "reset":
		if len(rest) != 0 {
			return nil, fmt.Errorf("%s: takes no arguments", cmd)
		}
		req["op"] = cmd
	case "manual":
		// empty op
	default:
		return nil, fmt.Errorf("unknown command %q (run with -h for usage)", cmd)
	}
	return req, nil
}

func roundTrip(sock string, req map[string]any) (map[string]any, error) {
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", sock, err)
	}
	defer conn.Close()

	if err := scheme.WriteMsg(conn, req); err != nil {
		return nil, err
	}
	return scheme.ReadMsg(conn)
}

// printResponse renders resp for a terminal. A failed op is returned as an
// error labelled with its kind.
func printResponse(w io.Writer, op string, resp map[string]any, withStats bool) error {
	if ok, _ := resp["ok"].(bool); !ok {
		msg, _ := resp["error"].(string)
		if kind, _ := resp["kind"].(string); kind != "" {
			return fmt.Errorf("%s error: %s", kind, msg)
		}
		return fmt.Errorf("error: %s", msg)
	}

	switch op {
	case "eval":
		vals, _ := resp["value"].([]any)
		for _, v := range vals {
			if s, _ := v.(string); s != "#!unspecific" {
				fmt.Fprintln(w, s)
			}
		}
		if withStats {
			st, _ := resp["stats"].(map[string]any)
			fmt.Fprintf(w, ";; %v steps, peak %v frames\n", st["steps"], st["peak_frames"])
		}
	case "bindings":
		bindings, _ := resp["value"].(map[string]any)
		names := make([]string, 0, len(bindings))
		for name := range bindings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s = %v\n", name, bindings[name])
		}
	case "traces":
		traces, _ := resp["value"].([]any)
		for _, t := range traces {
			tr, _ := t.(map[string]any)
			outcome := fmt.Sprintf("=> %v", tr["result"])
			if e, ok := tr["error"]; ok {
				outcome = fmt.Sprintf("!! %v: %v", tr["error_kind"], e)
			}
			fmt.Fprintf(w, "%v  %v  %s  (%v steps)\n", tr["timestamp"], tr["source"], outcome, tr["steps"])
		}
	case "load", "reset":
		fmt.Fprintln(w, resp["value"])
	default:
		out, err := json.MarshalIndent(resp["value"], "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	}
	return nil
}
