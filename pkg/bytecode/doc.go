// Package bytecode provides the single-pass compiler and stack-based
// virtual machine backend for Lox expressions.
//
// The bytecode format is designed for:
//   - Fixed-width instructions (the operand travels inside the instruction)
//   - Checked access (constant indexes and stack depth fail with an
//     InternalError instead of corrupting state)
//   - Easy serialization (chunks encode to canonical CBOR for the cache and
//     for .loxc files)
//
// # Architecture Overview
//
//   - Opcodes: Constant, Nil, True, False, Neg, Not, Add, Sub, Mul, Div,
//     Equal, Greater, Less and Return.
//
//   - Chunk: the instruction buffer, a parallel line table and a constant
//     pool of at most 256 values.
//
//   - Compiler: a Pratt parser driven by a per-token rule table. Infix
//     rules parse their right operand one precedence level higher, so all
//     binary operators are left-associative. The first error stops
//     compilation.
//
//   - VM: a fetch-execute loop over a 256-slot operand stack. Return pops
//     and prints the top value. A type mismatch resets the stack and halts
//     with a RuntimeError.
package bytecode
