// Package engine is the run(source) entry point shared by the CLI, the
// REPL and the RPC server. It picks a backend, reports errors, and never
// exits the process itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/lox/cache"
	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lox.engine")

// Backend selects how source is executed.
type Backend string

const (
	// TreeWalk parses whole programs and interprets the tree.
	TreeWalk Backend = "treewalk"
	// Bytecode compiles a single expression and runs it on the stack VM.
	Bytecode Backend = "bytecode"
)

// ParseBackend converts a backend name. The empty string means TreeWalk.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case "", TreeWalk:
		return TreeWalk, nil
	case Bytecode:
		return Bytecode, nil
	}
	return "", fmt.Errorf("unknown backend %q", name)
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackend sets the default backend used by Run.
func WithBackend(b Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithOutput sets where print and bytecode results go.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithCache enables the compiled chunk cache for the bytecode backend.
func WithCache(s *cache.Store) Option {
	return func(e *Engine) { e.cache = s }
}

// WithTrace makes the bytecode VM trace each instruction to w.
func WithTrace(w io.Writer) Option {
	return func(e *Engine) { e.traceOut = w }
}

// Engine runs Lox source. The tree-walk interpreter is created once, so
// globals defined by one Run are visible to the next. An Engine is not
// safe for concurrent use; server.Worker serializes access to one.
type Engine struct {
	backend  Backend
	out      io.Writer
	cache    *cache.Store
	traceOut io.Writer

	interp *vm.Interpreter
}

// New creates an Engine. Without options it runs the tree-walk backend and
// prints to os.Stdout.
func New(opts ...Option) *Engine {
	e := &Engine{
		backend: TreeWalk,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.interp = vm.New(e.out)
	return e
}

// Backend returns the default backend.
func (e *Engine) Backend() Backend {
	return e.backend
}

// Run executes source on the default backend. On the tree-walk backend
// the whole program is parsed first; if any statement fails to parse,
// Run returns the parse error and no statement executes, so no output is
// written. The bytecode backend compiles a single expression and likewise
// runs nothing when compilation fails.
func (e *Engine) Run(ctx context.Context, source string) error {
	return e.RunWith(ctx, e.backend, source)
}

// RunWith executes source on backend b with the same all-or-nothing
// parsing as Run.
func (e *Engine) RunWith(ctx context.Context, b Backend, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debugf("running %d bytes on %s backend", len(source), b)

	var err error
	switch b {
	case TreeWalk:
		err = e.runTreeWalk(ctx, source)
	case Bytecode:
		err = e.runBytecode(ctx, source)
	default:
		err = fmt.Errorf("unknown backend %q", b)
	}
	if err != nil {
		log.Debugf("run failed: %s", err)
	}
	return err
}

func (e *Engine) runTreeWalk(ctx context.Context, source string) error {
	stmts, err := compiler.ParseSource(source)
	if err != nil {
		// Nothing runs when any part of the program failed to parse.
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.interp.InterpretContext(ctx, stmts)
}

func (e *Engine) runBytecode(ctx context.Context, source string) error {
	chunk, err := e.Compile(source)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.RunChunk(ctx, chunk)
}

// Compile compiles source to a chunk, using the cache when one is
// configured.
func (e *Engine) Compile(source string) (*bytecode.Chunk, error) {
	if e.cache != nil {
		chunk, err := e.cache.Get(source)
		switch {
		case err == nil:
			log.Debugf("chunk cache hit %s", cache.Key(source)[:12])
			return chunk, nil
		case !errors.Is(err, cache.ErrNotFound):
			log.Errorf("chunk cache lookup: %s", err)
		}
	}

	chunk, err := bytecode.Compile(source)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Put(source, chunk); err != nil {
			log.Errorf("chunk cache store: %s", err)
		}
	}
	return chunk, nil
}

// RunChunk executes an already compiled chunk.
func (e *Engine) RunChunk(ctx context.Context, chunk *bytecode.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	machine := bytecode.NewVM(e.out)
	if e.traceOut != nil {
		machine.Trace = true
		machine.TraceOut = e.traceOut
	}
	_, err := machine.Run(chunk)
	return err
}

// Check reports every scan and parse error in source without running it.
// Unlike Run it keeps scanning past bad characters, so one typo does not
// hide the rest of the diagnostics.
func (e *Engine) Check(source string) []error {
	var errs []error
	var tokens []compiler.Token

	s := compiler.NewScanner(source)
	for {
		tok, err := s.ScanToken()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == compiler.TokenEOF {
			break
		}
	}

	p := compiler.NewParser(tokens)
	p.Parse()
	return append(errs, p.Errors()...)
}

// Globals returns the names defined in the tree-walk global scope.
func (e *Engine) Globals() []string {
	return e.interp.Globals()
}

// IsCompileError reports whether err was raised before execution started:
// a scan, parse or bytecode compile error.
func IsCompileError(err error) bool {
	var scanErr *compiler.ScanError
	var parseErr *compiler.ParseError
	var compileErr *bytecode.CompileError
	return errors.As(err, &scanErr) || errors.As(err, &parseErr) || errors.As(err, &compileErr)
}

// IsRuntimeError reports whether err was raised while a program ran.
func IsRuntimeError(err error) bool {
	var treeErr *vm.RuntimeError
	var vmErr *bytecode.RuntimeError
	var internal *bytecode.InternalError
	return errors.As(err, &treeErr) || errors.As(err, &vmErr) || errors.As(err, &internal)
}
