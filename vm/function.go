package vm

import (
	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/lib/runtime"
)

// Function is a user-defined function together with the scope it was
// declared in.
type Function struct {
	Decl    *compiler.FunctionStmt
	Closure EnvID
}

func (f *Function) Arity() int     { return len(f.Decl.Params) }
func (f *Function) Name() string   { return f.Decl.Name.Lexeme }
func (f *Function) String() string { return "<fn " + f.Decl.Name.Lexeme + ">" }

// NativeFunc is the Go implementation behind a Builtin.
type NativeFunc func(args []runtime.Value) (runtime.Value, error)

// Builtin is a function implemented in Go.
type Builtin struct {
	name  string
	arity int
	fn    NativeFunc
}

// NewBuiltin wraps fn as a callable value.
func NewBuiltin(name string, arity int, fn NativeFunc) *Builtin {
	return &Builtin{name: name, arity: arity, fn: fn}
}

func (b *Builtin) Arity() int     { return b.arity }
func (b *Builtin) Name() string   { return b.name }
func (b *Builtin) String() string { return "<native fn>" }
