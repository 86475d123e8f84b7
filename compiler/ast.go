package compiler

import "github.com/chazu/lox/lib/runtime"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Lox
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes. Every composite node
// owns its children exclusively; the tree has no sharing.
type Node interface {
	Line() int
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Literal represents a number, string, boolean or nil literal.
type Literal struct {
	LineVal int
	Value   runtime.Value
}

func (n *Literal) Line() int { return n.LineVal }
func (n *Literal) node()     {}
func (n *Literal) expr()     {}

// Grouping represents a parenthesized expression.
type Grouping struct {
	LineVal int
	Expr    Expr
}

func (n *Grouping) Line() int { return n.LineVal }
func (n *Grouping) node()     {}
func (n *Grouping) expr()     {}

// Unary represents a prefix operator: -x, !x.
type Unary struct {
	Op    Token
	Right Expr
}

func (n *Unary) Line() int { return n.Op.Line }
func (n *Unary) node()     {}
func (n *Unary) expr()     {}

// Binary represents an arithmetic, comparison or equality operator.
type Binary struct {
	Left  Expr
	Op    Token
	Right Expr
}

func (n *Binary) Line() int { return n.Op.Line }
func (n *Binary) node()     {}
func (n *Binary) expr()     {}

// Logical represents a short-circuiting and/or.
type Logical struct {
	Left  Expr
	Op    Token
	Right Expr
}

func (n *Logical) Line() int { return n.Op.Line }
func (n *Logical) node()     {}
func (n *Logical) expr()     {}

// Variable represents a variable reference.
type Variable struct {
	Name Token
}

func (n *Variable) Line() int { return n.Name.Line }
func (n *Variable) node()     {}
func (n *Variable) expr()     {}

// Assign represents name = value.
type Assign struct {
	Name  Token
	Value Expr
}

func (n *Assign) Line() int { return n.Name.Line }
func (n *Assign) node()     {}
func (n *Assign) expr()     {}

// Call represents callee(args...). Paren is the closing parenthesis, used
// to position runtime errors.
type Call struct {
	Callee Expr
	Paren  Token
	Args   []Expr
}

func (n *Call) Line() int { return n.Paren.Line }
func (n *Call) node()     {}
func (n *Call) expr()     {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt represents an expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) Line() int { return n.Expr.Line() }
func (n *ExprStmt) node()     {}
func (n *ExprStmt) stmt()     {}

// PrintStmt represents print expr;
type PrintStmt struct {
	Keyword Token
	Expr    Expr
}

func (n *PrintStmt) Line() int { return n.Keyword.Line }
func (n *PrintStmt) node()     {}
func (n *PrintStmt) stmt()     {}

// VarStmt represents var name = initializer; Initializer is nil when
// omitted.
type VarStmt struct {
	Name        Token
	Initializer Expr
}

func (n *VarStmt) Line() int { return n.Name.Line }
func (n *VarStmt) node()     {}
func (n *VarStmt) stmt()     {}

// BlockStmt represents { statements }.
type BlockStmt struct {
	LineVal    int
	Statements []Stmt
}

func (n *BlockStmt) Line() int { return n.LineVal }
func (n *BlockStmt) node()     {}
func (n *BlockStmt) stmt()     {}

// IfStmt represents if (cond) then else otherwise. Else is nil when absent.
type IfStmt struct {
	Keyword   Token
	Condition Expr
	Then      Stmt
	Else      Stmt
}

func (n *IfStmt) Line() int { return n.Keyword.Line }
func (n *IfStmt) node()     {}
func (n *IfStmt) stmt()     {}

// WhileStmt represents while (cond) body. For loops are desugared into it.
type WhileStmt struct {
	LineVal   int
	Condition Expr
	Body      Stmt
}

func (n *WhileStmt) Line() int { return n.LineVal }
func (n *WhileStmt) node()     {}
func (n *WhileStmt) stmt()     {}

// FunctionStmt represents fun name(params) { body }.
type FunctionStmt struct {
	Name   Token
	Params []Token
	Body   []Stmt
}

func (n *FunctionStmt) Line() int { return n.Name.Line }
func (n *FunctionStmt) node()     {}
func (n *FunctionStmt) stmt()     {}

// ReturnStmt represents return value; Value is nil for a bare return.
type ReturnStmt struct {
	Keyword Token
	Value   Expr
}

func (n *ReturnStmt) Line() int { return n.Keyword.Line }
func (n *ReturnStmt) node()     {}
func (n *ReturnStmt) stmt()     {}

// BadStmt is the placeholder left where a declaration failed to parse.
// Executing it does nothing.
type BadStmt struct {
	LineVal int
}

func (n *BadStmt) Line() int { return n.LineVal }
func (n *BadStmt) node()     {}
func (n *BadStmt) stmt()     {}
