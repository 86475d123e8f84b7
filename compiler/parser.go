package compiler

import (
	"errors"

	"github.com/chazu/lox/lib/runtime"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lox
// ---------------------------------------------------------------------------

// maxArgs is the most parameters or arguments a function may take.
const maxArgs = 255

// Parser builds statements from a token slice. A declaration that fails to
// parse is recorded, the parser resynchronizes at the next statement
// boundary, and a BadStmt takes its place.
type Parser struct {
	tokens  []Token
	current int
	errors  []error
}

// NewParser creates a parser over tokens. A missing trailing EOF is added.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens[:len(tokens):len(tokens)], Token{Type: TokenEOF, Line: line})
	}
	return &Parser{tokens: tokens}
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []error {
	return p.errors
}

// Err returns all parse errors joined, or nil.
func (p *Parser) Err() error {
	return errors.Join(p.errors...)
}

// report records an error without interrupting the parse.
func (p *Parser) report(err error) {
	p.errors = append(p.errors, err)
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) advance() Token {
	if !p.atEnd() {
		p.current++
	}
	return p.previous()
}

// check reports whether the current token is of type t.
func (p *Parser) check(t TokenType) bool {
	if p.atEnd() {
		return false
	}
	return p.peek().Type == t
}

// match consumes the current token if it is any of types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of type t or fails with msg.
func (p *Parser) expect(t TokenType, msg string) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return Token{}, errorAt(p.peek(), msg)
}

// synchronize discards tokens until a likely statement boundary: just past
// a semicolon, or before a keyword that starts a statement.
func (p *Parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == TokenSemicolon {
			return
		}
		switch p.peek().Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// Parse parses the whole program.
func (p *Parser) Parse() []Stmt {
	var stmts []Stmt
	for !p.atEnd() {
		stmts = append(stmts, p.declaration())
	}
	return stmts
}

// ParseSource scans and parses source. Scan errors abort; parse errors are
// joined into the returned error alongside the partially parsed program.
func ParseSource(source string) ([]Stmt, error) {
	tokens, err := ScanTokens(source)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	stmts := p.Parse()
	return stmts, p.Err()
}

// declaration parses one declaration, recovering from errors.
func (p *Parser) declaration() Stmt {
	line := p.peek().Line

	var stmt Stmt
	var err error
	switch {
	case p.match(TokenClass):
		err = errorAt(p.previous(), "class declarations are not supported.")
	case p.match(TokenVar):
		stmt, err = p.varDeclaration()
	case p.match(TokenFun):
		stmt, err = p.function("function")
	default:
		stmt, err = p.statement()
	}

	if err != nil {
		p.report(err)
		p.synchronize()
		return &BadStmt{LineVal: line}
	}
	return stmt
}

func (p *Parser) varDeclaration() (Stmt, error) {
	name, err := p.expect(TokenIdentifier, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var init Expr
	if p.match(TokenEqual) {
		if init, err = p.expression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokenSemicolon, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &VarStmt{Name: name, Initializer: init}, nil
}

// function parses the remainder of a function declaration after 'fun'.
func (p *Parser) function(kind string) (Stmt, error) {
	name, err := p.expect(TokenIdentifier, "Expect "+kind+" name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen, "Expect '(' after "+kind+" name."); err != nil {
		return nil, err
	}

	var params []Token
	if !p.check(TokenRParen) {
		for {
			if len(params) >= maxArgs {
				p.report(errorAt(p.peek(), "Can't have more than 255 parameters."))
			}
			param, err := p.expect(TokenIdentifier, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after parameters."); err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenLBrace, "Expect '{' before "+kind+" body."); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &FunctionStmt{Name: name, Params: params, Body: body}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.match(TokenPrint):
		return p.printStatement()
	case p.match(TokenLBrace):
		line := p.previous().Line
		stmts, err := p.block()
		if err != nil {
			return nil, err
		}
		return &BlockStmt{LineVal: line, Statements: stmts}, nil
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenFor):
		return p.forStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) printStatement() (Stmt, error) {
	keyword := p.previous()
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &PrintStmt{Keyword: keyword, Expr: value}, nil
}

func (p *Parser) expressionStatement() (Stmt, error) {
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: value}, nil
}

// block parses declarations up to the closing brace. The opening brace has
// already been consumed.
func (p *Parser) block() ([]Stmt, error) {
	var stmts []Stmt
	for !p.check(TokenRBrace) && !p.atEnd() {
		stmts = append(stmts, p.declaration())
	}
	if _, err := p.expect(TokenRBrace, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) ifStatement() (Stmt, error) {
	keyword := p.previous()
	if _, err := p.expect(TokenLParen, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var otherwise Stmt
	if p.match(TokenElse) {
		if otherwise, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return &IfStmt{Keyword: keyword, Condition: cond, Then: then, Else: otherwise}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	line := p.previous().Line
	if _, err := p.expect(TokenLParen, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{LineVal: line, Condition: cond, Body: body}, nil
}

// forStatement desugars
//
//	for (init; cond; incr) body
//
// into
//
//	{ init; while (cond) { body; incr; } }
//
// A missing condition is the literal true.
func (p *Parser) forStatement() (Stmt, error) {
	line := p.previous().Line
	if _, err := p.expect(TokenLParen, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var init Stmt
	var err error
	switch {
	case p.match(TokenSemicolon):
		// no initializer
	case p.match(TokenVar):
		init, err = p.varDeclaration()
	default:
		init, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.check(TokenSemicolon) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var incr Expr
	if !p.check(TokenRParen) {
		if incr, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if incr != nil {
		body = &BlockStmt{LineVal: body.Line(), Statements: []Stmt{body, &ExprStmt{Expr: incr}}}
	}
	if cond == nil {
		cond = &Literal{LineVal: line, Value: runtime.BoolValue(true)}
	}
	body = &WhileStmt{LineVal: line, Condition: cond, Body: body}
	if init != nil {
		body = &BlockStmt{LineVal: line, Statements: []Stmt{init, body}}
	}
	return body, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	keyword := p.previous()
	var value Expr
	if !p.check(TokenSemicolon) {
		var err error
		if value, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return &ReturnStmt{Keyword: keyword, Value: value}, nil
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) expression() (Expr, error) {
	return p.assignment()
}

// assignment is right-associative: a = b = c parses as a = (b = c).
func (p *Parser) assignment() (Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}

	if p.match(TokenEqual) {
		equals := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		if v, ok := expr.(*Variable); ok {
			return &Assign{Name: v.Name, Value: value}, nil
		}
		return nil, errorAt(equals, "Invalid assignment target.")
	}
	return expr, nil
}

func (p *Parser) or() (Expr, error) {
	return p.logical(p.and, TokenOr)
}

func (p *Parser) and() (Expr, error) {
	return p.logical(p.equality, TokenAnd)
}

func (p *Parser) equality() (Expr, error) {
	return p.binary(p.comparison, TokenBangEqual, TokenEqualEqual)
}

func (p *Parser) comparison() (Expr, error) {
	return p.binary(p.term, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) term() (Expr, error) {
	return p.binary(p.factor, TokenMinus, TokenPlus)
}

func (p *Parser) factor() (Expr, error) {
	return p.binary(p.unary, TokenSlash, TokenStar)
}

// binary parses a left-associative chain of operands joined by ops.
func (p *Parser) binary(operand func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

// logical is binary for the short-circuit operators.
func (p *Parser) logical(operand func() (Expr, error), op TokenType) (Expr, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(op) {
		tok := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Op: tok, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (Expr, error) {
	if p.match(TokenBang, TokenMinus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Right: right}, nil
	}
	return p.call()
}

// call parses a primary followed by any number of argument lists, so
// f()() is a call of a call.
func (p *Parser) call() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.match(TokenLParen) {
		if expr, err = p.finishCall(expr); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) finishCall(callee Expr) (Expr, error) {
	var args []Expr
	if !p.check(TokenRParen) {
		for {
			if len(args) >= maxArgs {
				p.report(errorAt(p.peek(), "Can't have more than 255 arguments."))
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	paren, err := p.expect(TokenRParen, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Paren: paren, Args: args}, nil
}

func (p *Parser) primary() (Expr, error) {
	tok := p.peek()
	switch {
	case p.match(TokenFalse):
		return &Literal{LineVal: tok.Line, Value: runtime.BoolValue(false)}, nil
	case p.match(TokenTrue):
		return &Literal{LineVal: tok.Line, Value: runtime.BoolValue(true)}, nil
	case p.match(TokenNil):
		return &Literal{LineVal: tok.Line, Value: runtime.NilValue()}, nil
	case p.match(TokenNumber, TokenString):
		return &Literal{LineVal: tok.Line, Value: tok.Literal}, nil
	case p.match(TokenIdentifier):
		return &Variable{Name: tok}, nil
	case p.match(TokenLParen):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &Grouping{LineVal: tok.Line, Expr: expr}, nil
	}
	return nil, errorAt(tok, "Expect expression.")
}
