package compiler

import "fmt"

// ScanError reports malformed lexical input: an unterminated string or a
// character the language does not use.
type ScanError struct {
	Line    int
	Column  int
	Text    string // offending source text
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("line %d: %s (at %q)", e.Line, e.Message, e.Text)
}

// ParseError reports a grammar violation at a specific token.
type ParseError struct {
	Line    int
	Column  int
	Lexeme  string
	AtEnd   bool // the offending token was EOF
	Message string
}

func (e *ParseError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("line %d at the end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d at '%s': %s", e.Line, e.Lexeme, e.Message)
}

// errorAt builds a ParseError positioned on tok.
func errorAt(tok Token, msg string) *ParseError {
	return &ParseError{
		Line:    tok.Line,
		Column:  tok.Column,
		Lexeme:  tok.Lexeme,
		AtEnd:   tok.Type == TokenEOF,
		Message: msg,
	}
}
