package server

import (
	"fmt"
	"strings"

	"github.com/chazu/lox/compiler"
)

type symbolKind int

const (
	symbolVar symbolKind = iota
	symbolFun
	symbolParam
)

// symbol is a name declared somewhere in a document.
type symbol struct {
	Name string
	Kind symbolKind
	Tok  compiler.Token
	Fun  *compiler.FunctionStmt // set for symbolFun
}

func (s symbol) detail() string {
	switch s.Kind {
	case symbolFun:
		params := make([]string, len(s.Fun.Params))
		for i, p := range s.Fun.Params {
			params[i] = p.Lexeme
		}
		return fmt.Sprintf("fun %s(%s)", s.Name, strings.Join(params, ", "))
	case symbolParam:
		return "parameter " + s.Name
	}
	return "var " + s.Name
}

// collectSymbols lists every declaration in stmts in source order,
// descending into blocks and function bodies. Programs with parse errors
// still yield the declarations that did parse.
func collectSymbols(stmts []compiler.Stmt) []symbol {
	var syms []symbol
	var walk func([]compiler.Stmt)
	walkOne := func(st compiler.Stmt) {
		if st != nil {
			walk([]compiler.Stmt{st})
		}
	}
	walk = func(list []compiler.Stmt) {
		for _, st := range list {
			switch n := st.(type) {
			case *compiler.VarStmt:
				syms = append(syms, symbol{Name: n.Name.Lexeme, Kind: symbolVar, Tok: n.Name})
			case *compiler.FunctionStmt:
				syms = append(syms, symbol{Name: n.Name.Lexeme, Kind: symbolFun, Tok: n.Name, Fun: n})
				for _, p := range n.Params {
					syms = append(syms, symbol{Name: p.Lexeme, Kind: symbolParam, Tok: p})
				}
				walk(n.Body)
			case *compiler.BlockStmt:
				walk(n.Statements)
			case *compiler.IfStmt:
				walkOne(n.Then)
				walkOne(n.Else)
			case *compiler.WhileStmt:
				walkOne(n.Body)
			}
		}
	}
	walk(stmts)
	return syms
}

// documentSymbols parses text and returns its declarations.
func documentSymbols(text string) []symbol {
	stmts, _ := compiler.ParseSource(text)
	return collectSymbols(stmts)
}

// lookupSymbol returns the first declaration of name, if any.
func lookupSymbol(syms []symbol, name string) (symbol, bool) {
	for _, s := range syms {
		if s.Name == name {
			return s, true
		}
	}
	return symbol{}, false
}
