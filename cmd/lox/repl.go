package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/engine"
	"github.com/chazu/lox/pkg/bytecode"
)

const (
	promptMain = ">> "
	promptMore = ".. "
)

// repl holds the state of one interactive session.
type repl struct {
	engine  *engine.Engine
	backend engine.Backend
	out     io.Writer
}

func runREPL(e *engine.Engine) {
	cfg := &readline.Config{Prompt: promptMain}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".lox_history")
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting REPL: %v\n", err)
		return
	}
	defer rl.Close()

	r := &repl{engine: e, backend: e.Backend(), out: os.Stdout}
	fmt.Printf("Lox REPL, %s backend (type 'exit' to quit, ':help' for commands)\n", r.backend)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(promptMain)
			continue
		}
		if err != nil {
			break
		}

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				r.command(trimmed)
				continue
			}
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)

		if needsMore(buf.String()) {
			rl.SetPrompt(promptMore)
			continue
		}
		input := buf.String()
		buf.Reset()
		rl.SetPrompt(promptMain)

		if strings.TrimSpace(input) != "" {
			r.eval(input)
		}
	}
	fmt.Println()
}

// eval runs one complete input. Errors are printed and the session goes on.
// Ctrl-C while a program runs cancels only that program.
func (r *repl) eval(input string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := r.engine.RunWith(ctx, r.backend, input); err != nil {
		reportError(err)
	}
}

// command handles REPL meta-commands.
func (r *repl) command(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?        Show this help")
		fmt.Fprintln(r.out, "  :backend [name]      Show or switch backend (treewalk, bytecode)")
		fmt.Fprintln(r.out, "  :globals             List global names")
		fmt.Fprintln(r.out, "  :disasm <expr>       Show the bytecode for an expression")
		fmt.Fprintln(r.out, "  :ast <source>        Show the syntax tree for statements")
		fmt.Fprintln(r.out, "  exit, quit           Exit REPL")
	case ":backend":
		if arg == "" {
			fmt.Fprintf(r.out, "Current backend: %s\n", r.backend)
			return
		}
		b, err := engine.ParseBackend(arg)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		r.backend = b
		fmt.Fprintf(r.out, "Switched to %s backend\n", b)
	case ":globals":
		fmt.Fprintln(r.out, strings.Join(r.engine.Globals(), " "))
	case ":disasm":
		chunk, err := bytecode.Compile(arg)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprint(r.out, chunk.Disassemble())
	case ":ast":
		stmts, err := compiler.ParseSource(arg)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintln(r.out, compiler.SexprProgram(stmts))
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// needsMore reports whether src stops inside an open brace, paren or
// string, so the REPL should keep reading lines.
func needsMore(src string) bool {
	depth := 0
	s := compiler.NewScanner(src)
	for {
		tok, err := s.ScanToken()
		if err != nil {
			var scanErr *compiler.ScanError
			if errors.As(err, &scanErr) && scanErr.Message == "Unterminated string." {
				return true
			}
			continue
		}
		switch tok.Type {
		case compiler.TokenLParen, compiler.TokenLBrace:
			depth++
		case compiler.TokenRParen, compiler.TokenRBrace:
			depth--
		case compiler.TokenEOF:
			return depth > 0
		}
	}
}
