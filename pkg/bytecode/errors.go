package bytecode

import (
	"errors"
	"fmt"
)

var (
	// ErrConstantPoolFull is returned when a chunk already holds MaxConstants
	// constants.
	ErrConstantPoolFull = errors.New("too many constants in one chunk")

	// ErrStackOverflow is returned when a push would exceed StackMax.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrStackUnderflow is returned when a pop finds the stack empty.
	ErrStackUnderflow = errors.New("stack underflow")
)

// CompileError reports a grammar violation found by the single-pass
// compiler. Compilation stops at the first one.
type CompileError struct {
	Line    int
	Lexeme  string
	AtEnd   bool
	Message string
	Err     error // underlying cause, if any
}

func (e *CompileError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("[line %d] Error at end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, e.Lexeme, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// RuntimeError reports a type mismatch raised while executing a chunk.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// InternalError reports a broken invariant: an instruction the compiler
// should never have produced. It indicates a compiler bug, not a problem
// with the program being run.
type InternalError struct {
	Offset int
	Err    error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at %04d: %v", e.Offset, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
