package bytecode

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/lib/runtime"
)

// Precedence orders binding strength, lowest first.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssign
	PrecOr
	PrecAnd
	PrecEquality   // == !=
	PrecComparison // < > <= >=
	PrecTerm       // + -
	PrecFactor     // * /
	PrecUnary      // ! -
	PrecCall       // ()
	PrecPrimary
)

var precNames = [...]string{
	PrecNone:       "None",
	PrecAssign:     "Assign",
	PrecOr:         "Or",
	PrecAnd:        "And",
	PrecEquality:   "Equality",
	PrecComparison: "Comparison",
	PrecTerm:       "Term",
	PrecFactor:     "Factor",
	PrecUnary:      "Unary",
	PrecCall:       "Call",
	PrecPrimary:    "Primary",
}

func (p Precedence) String() string {
	if p < 0 || int(p) >= len(precNames) {
		return fmt.Sprintf("Precedence(%d)", int(p))
	}
	return precNames[p]
}

// Higher returns the next tighter level. Nothing binds tighter than
// PrecPrimary, so asking for it is an error.
func (p Precedence) Higher() (Precedence, error) {
	if p >= PrecPrimary {
		return PrecNone, fmt.Errorf("no precedence higher than %s", p)
	}
	return p + 1, nil
}

type parseFn func(c *Compiler) error

// parseRule is one row of the Pratt table: how a token starts an
// expression, how it continues one, and how tightly it binds as an infix.
type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules [compiler.TokenTypeCount]parseRule

func init() {
	rules[compiler.TokenLParen] = parseRule{(*Compiler).grouping, nil, PrecNone}
	rules[compiler.TokenMinus] = parseRule{(*Compiler).unary, (*Compiler).binary, PrecTerm}
	rules[compiler.TokenPlus] = parseRule{nil, (*Compiler).binary, PrecTerm}
	rules[compiler.TokenSlash] = parseRule{nil, (*Compiler).binary, PrecFactor}
	rules[compiler.TokenStar] = parseRule{nil, (*Compiler).binary, PrecFactor}
	rules[compiler.TokenBang] = parseRule{(*Compiler).unary, nil, PrecNone}
	rules[compiler.TokenBangEqual] = parseRule{nil, (*Compiler).binary, PrecEquality}
	rules[compiler.TokenEqualEqual] = parseRule{nil, (*Compiler).binary, PrecEquality}
	rules[compiler.TokenGreater] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[compiler.TokenGreaterEqual] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[compiler.TokenLess] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[compiler.TokenLessEqual] = parseRule{nil, (*Compiler).binary, PrecComparison}
	rules[compiler.TokenNumber] = parseRule{(*Compiler).number, nil, PrecNone}
	rules[compiler.TokenString] = parseRule{(*Compiler).str, nil, PrecNone}
	rules[compiler.TokenFalse] = parseRule{(*Compiler).literal, nil, PrecNone}
	rules[compiler.TokenTrue] = parseRule{(*Compiler).literal, nil, PrecNone}
	rules[compiler.TokenNil] = parseRule{(*Compiler).literal, nil, PrecNone}
}

func getRule(t compiler.TokenType) *parseRule {
	if t < 0 || int(t) >= len(rules) {
		return &rules[compiler.TokenEOF]
	}
	return &rules[t]
}

// Compiler is a single-pass compiler: it pulls tokens from the scanner and
// emits instructions directly, with one token of lookahead.
type Compiler struct {
	scanner  *compiler.Scanner
	current  compiler.Token
	previous compiler.Token
	chunk    *Chunk
	depth    int // operand stack depth when the emitted code runs
}

// Compile compiles a single expression into a chunk ending in Return. The
// first error stops compilation.
func Compile(source string) (*Chunk, error) {
	c := &Compiler{
		scanner: compiler.NewScanner(source),
		chunk:   NewChunk(),
	}
	if err := c.advance(); err != nil {
		return nil, err
	}
	if err := c.expression(); err != nil {
		return nil, err
	}
	if err := c.consume(compiler.TokenEOF, "Expect end of expression."); err != nil {
		return nil, err
	}
	c.emit(OpReturn)
	return c.chunk, nil
}

// advance moves to the next token. A scan error becomes a CompileError.
func (c *Compiler) advance() error {
	c.previous = c.current
	tok, err := c.scanner.ScanToken()
	if err != nil {
		var scanErr *compiler.ScanError
		if errors.As(err, &scanErr) {
			return &CompileError{Line: scanErr.Line, Lexeme: scanErr.Text, Message: scanErr.Message, Err: err}
		}
		return err
	}
	c.current = tok
	return nil
}

func (c *Compiler) consume(t compiler.TokenType, msg string) error {
	if c.current.Type == t {
		return c.advance()
	}
	return errorAt(c.current, msg)
}

func errorAt(tok compiler.Token, msg string) *CompileError {
	return &CompileError{
		Line:    tok.Line,
		Lexeme:  tok.Lexeme,
		AtEnd:   tok.Type == compiler.TokenEOF,
		Message: msg,
	}
}

func (c *Compiler) emit(op Opcode) {
	c.emitLine(op, c.previous.Line)
}

func (c *Compiler) emitLine(op Opcode, line int) {
	c.chunk.Emit(op, line)
	info := GetOpcodeInfo(op)
	c.depth += info.StackPush - info.StackPop
}

func (c *Compiler) emitConstant(v runtime.Value) error {
	if _, err := c.chunk.EmitConstant(v, c.previous.Line); err != nil {
		ce := errorAt(c.previous, "Too many constants in one chunk.")
		ce.Err = err
		return ce
	}
	c.depth++
	return c.checkDepth()
}

// checkDepth rejects code that would need more than StackMax operand
// slots, so the VM never overflows on compiled code.
func (c *Compiler) checkDepth() error {
	if c.depth > StackMax {
		ce := errorAt(c.previous, "Expression too deeply nested.")
		ce.Err = ErrStackOverflow
		return ce
	}
	return nil
}

func (c *Compiler) expression() error {
	return c.parsePrecedence(PrecAssign)
}

// parsePrecedence parses an expression whose operators all bind at least
// as tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) error {
	if err := c.advance(); err != nil {
		return err
	}
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		return errorAt(c.previous, "Expect expression.")
	}
	if err := prefix(c); err != nil {
		return err
	}

	for prec <= getRule(c.current.Type).prec {
		if err := c.advance(); err != nil {
			return err
		}
		infix := getRule(c.previous.Type).infix
		if err := infix(c); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) number() error {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		return &InternalError{Offset: c.chunk.CodeLen(), Err: fmt.Errorf("malformed number %q: %w", c.previous.Lexeme, err)}
	}
	return c.emitConstant(runtime.NumberValue(n))
}

func (c *Compiler) str() error {
	return c.emitConstant(c.previous.Literal)
}

func (c *Compiler) literal() error {
	switch c.previous.Type {
	case compiler.TokenFalse:
		c.emit(OpFalse)
	case compiler.TokenTrue:
		c.emit(OpTrue)
	case compiler.TokenNil:
		c.emit(OpNil)
	}
	return c.checkDepth()
}

func (c *Compiler) grouping() error {
	if err := c.expression(); err != nil {
		return err
	}
	return c.consume(compiler.TokenRParen, "Expect ')' after expression.")
}

func (c *Compiler) unary() error {
	op := c.previous
	if err := c.parsePrecedence(PrecUnary); err != nil {
		return err
	}
	// Emit against the operator's line, not the operand's.
	switch op.Type {
	case compiler.TokenMinus:
		c.emitLine(OpNeg, op.Line)
	case compiler.TokenBang:
		c.emitLine(OpNot, op.Line)
	}
	return nil
}

// binary compiles the right operand one level tighter than the operator,
// which makes every binary operator left-associative.
func (c *Compiler) binary() error {
	op := c.previous
	next, err := getRule(op.Type).prec.Higher()
	if err != nil {
		return &InternalError{Offset: c.chunk.CodeLen(), Err: err}
	}
	if err := c.parsePrecedence(next); err != nil {
		return err
	}

	line := op.Line
	// >= and <= compile to the negation of < and >, so both are true when
	// either operand is NaN.
	switch op.Type {
	case compiler.TokenPlus:
		c.emitLine(OpAdd, line)
	case compiler.TokenMinus:
		c.emitLine(OpSub, line)
	case compiler.TokenStar:
		c.emitLine(OpMul, line)
	case compiler.TokenSlash:
		c.emitLine(OpDiv, line)
	case compiler.TokenEqualEqual:
		c.emitLine(OpEqual, line)
	case compiler.TokenBangEqual:
		c.emitLine(OpEqual, line)
		c.emitLine(OpNot, line)
	case compiler.TokenGreater:
		c.emitLine(OpGreater, line)
	case compiler.TokenGreaterEqual:
		c.emitLine(OpLess, line)
		c.emitLine(OpNot, line)
	case compiler.TokenLess:
		c.emitLine(OpLess, line)
	case compiler.TokenLessEqual:
		c.emitLine(OpGreater, line)
		c.emitLine(OpNot, line)
	}
	return nil
}
