// Package vm implements the tree-walking Lox backend.
//
// This package contains:
//   - An arena of lexical scopes addressed by EnvID handles
//   - User functions that close over their defining scope
//   - Builtin functions implemented in Go (clock)
//   - The Interpreter, which evaluates compiler.Stmt and compiler.Expr trees
//
// Statement execution reports a completion alongside its error: either the
// statement finished normally or it executed return. Blocks, if and while
// pass a return completion upward unchanged; only a function call turns it
// back into a value.
package vm
