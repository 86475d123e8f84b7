package compiler

import (
	"fmt"
	"strings"
)

// Sexpr renders a node as a parenthesized prefix expression, e.g.
// (+ 1 (* 2 3)). Strings are quoted so they stand apart from identifiers.
func Sexpr(n Node) string {
	var sb strings.Builder
	writeSexpr(&sb, n)
	return sb.String()
}

// SexprProgram renders each statement on its own line.
func SexprProgram(stmts []Stmt) string {
	var sb strings.Builder
	for _, s := range stmts {
		writeSexpr(&sb, s)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeSexpr(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
		sb.WriteString("nil")

	case *Literal:
		if n.Value.IsString() {
			fmt.Fprintf(sb, "%q", n.Value.StringVal)
		} else {
			sb.WriteString(n.Value.String())
		}
	case *Grouping:
		group(sb, "group", n.Expr)
	case *Unary:
		group(sb, n.Op.Lexeme, n.Right)
	case *Binary:
		group(sb, n.Op.Lexeme, n.Left, n.Right)
	case *Logical:
		group(sb, n.Op.Lexeme, n.Left, n.Right)
	case *Variable:
		sb.WriteString(n.Name.Lexeme)
	case *Assign:
		group(sb, "= "+n.Name.Lexeme, n.Value)
	case *Call:
		nodes := append([]Node{n.Callee}, exprNodes(n.Args)...)
		group(sb, "call", nodes...)

	case *ExprStmt:
		group(sb, ";", n.Expr)
	case *PrintStmt:
		group(sb, "print", n.Expr)
	case *VarStmt:
		if n.Initializer == nil {
			group(sb, "var "+n.Name.Lexeme)
		} else {
			group(sb, "var "+n.Name.Lexeme, n.Initializer)
		}
	case *BlockStmt:
		group(sb, "block", stmtNodes(n.Statements)...)
	case *IfStmt:
		if n.Else == nil {
			group(sb, "if", n.Condition, n.Then)
		} else {
			group(sb, "if", n.Condition, n.Then, n.Else)
		}
	case *WhileStmt:
		group(sb, "while", n.Condition, n.Body)
	case *FunctionStmt:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Lexeme
		}
		head := fmt.Sprintf("fun %s(%s)", n.Name.Lexeme, strings.Join(params, " "))
		group(sb, head, stmtNodes(n.Body)...)
	case *ReturnStmt:
		if n.Value == nil {
			group(sb, "return")
		} else {
			group(sb, "return", n.Value)
		}
	case *BadStmt:
		sb.WriteString("(bad)")

	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func group(sb *strings.Builder, name string, parts ...Node) {
	sb.WriteByte('(')
	sb.WriteString(name)
	for _, p := range parts {
		sb.WriteByte(' ')
		writeSexpr(sb, p)
	}
	sb.WriteByte(')')
}

func exprNodes(exprs []Expr) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}

func stmtNodes(stmts []Stmt) []Node {
	nodes := make([]Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return nodes
}
