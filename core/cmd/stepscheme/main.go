package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	scheme "github.com/rphilander/stepscheme/core"
)

const (
	appName     = "stepscheme"
	historyFile = ".stepscheme_history"
	promptMain  = "> "
	promptCont  = ". "
	banner      = "stepscheme. Ctrl+C cancels input, Ctrl+D exits. Type :help for commands."
	helpText    = `
REPL commands:
  :help            Show this help
  :quit / :exit    Exit the REPL
  :load <file>     Evaluate a file into the current session
  :env             List global bindings
  :ir <form>       Show the compiled form
  :stats           Steps and peak frame depth of the last evaluation
  :reset           Discard all definitions
`
)

func main() {
	var evalStr, transcript string
	var maxSteps int
	flag.StringVar(&evalStr, "e", "", "Evaluate the given source and exit")
	flag.StringVar(&transcript, "transcript", "", "Record top-level define and set! forms in this file and replay it on start")
	flag.IntVar(&maxSteps, "max-steps", 0, "Abort an evaluation after this many steps (0 = unlimited)")
	flag.Parse()

	opts := []scheme.Option{scheme.WithOutput(os.Stdout), scheme.WithMaxSteps(maxSteps)}
	if transcript != "" {
		opts = append(opts, scheme.WithTranscript(transcript))
	}
	session, err := scheme.NewSession(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}

	args := flag.Args()
	var code int
	switch {
	case evalStr != "":
		code = runSource(session, evalStr)
	case len(args) > 0:
		src, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, args[0], err)
			code = 1
			break
		}
		code = runSource(session, string(src))
	default:
		code = runREPL(session)
	}
	session.Close()
	os.Exit(code)
}

func runSource(session *scheme.Session, src string) int {
	vals, err := session.EvalAll(src)
	if out := scheme.FormatValues(vals); out != "" {
		fmt.Println(out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}
	return 0
}

// ---- REPL ------------------------------------------------------------------

func runREPL(session *scheme.Session) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetWordCompleter(completeSymbol(session.Interner()))

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readForms(ln, session.Interner())
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if done := handleReplCommand(session, trimmed); done {
				break
			}
			continue
		}

		vals, err := session.EvalAll(code)
		if out := scheme.FormatValues(vals); out != "" {
			fmt.Println(out)
		}
		if err != nil {
			fmt.Printf(";; %v\n", err)
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

func handleReplCommand(session *scheme.Session, line string) (exit bool) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case ":help":
		fmt.Print(helpText)

	case ":quit", ":exit":
		return true

	case ":reset":
		if err := session.Reset(); err != nil {
			fmt.Printf(";; %v\n", err)
			return false
		}
		fmt.Println("session reset.")

	case ":load":
		if rest == "" {
			fmt.Println("usage: :load <file>")
			return false
		}
		if err := session.Load(rest); err != nil {
			fmt.Printf(";; %v\n", err)
			return false
		}
		fmt.Printf("loaded %s\n", rest)

	case ":env":
		for _, b := range session.Bindings() {
			if b.Value.Kind == scheme.ValPrimitive {
				continue
			}
			fmt.Printf("%s = %s\n", b.Name, b.Value)
		}

	case ":ir":
		datum, err := scheme.ReadOne(session.Interner(), rest)
		if err != nil {
			fmt.Printf(";; %v\n", err)
			return false
		}
		expr, err := session.Compile(datum)
		if err != nil {
			fmt.Printf(";; %v\n", err)
			return false
		}
		fmt.Printf("%T %s\n", expr, expr)

	case ":stats":
		st := session.LastStats()
		fmt.Printf("steps: %d, peak frames: %d\n", st.Steps, st.PeakFrames)

	default:
		fmt.Printf("unknown command. Type :help for help.\n")
	}
	return false
}

// readForms reads lines until the buffer holds complete data, or the reader
// reports an error that more input cannot fix.
func readForms(ln *liner.State, in *scheme.Interner) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := scheme.Read(in, src); err != nil && scheme.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

// completeSymbol offers every interned name that extends the word before the
// cursor. liner passes pos as a rune offset.
func completeSymbol(in *scheme.Interner) liner.WordCompleter {
	return func(line string, pos int) (string, []string, string) {
		runes := []rune(line)
		head, tail := string(runes[:pos]), string(runes[pos:])
		start := strings.LastIndexAny(head, " \t\n()'`,\"") + 1
		prefix := head[start:]
		if prefix == "" {
			return head, nil, tail
		}
		var names []string
		for _, name := range in.Names() {
			if strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		return head[:start], names, tail
	}
}
