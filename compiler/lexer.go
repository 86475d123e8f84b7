package compiler

import (
	"strconv"
	"unicode/utf8"

	"github.com/chazu/lox/lib/runtime"
)

// ---------------------------------------------------------------------------
// Scanner: tokenizer for Lox source
// ---------------------------------------------------------------------------

// Scanner turns Lox source text into tokens one at a time. Each call to
// ScanToken either produces a token or fails on its own; the caller decides
// whether to keep scanning after an error.
type Scanner struct {
	source  string
	start   int // offset of the first byte of the token being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)
	col     int // current column (1-based)

	startLine int
	startCol  int
}

// NewScanner creates a scanner for the given source.
func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
		col:    1,
	}
}

// Line returns the line the scanner is currently on.
func (s *Scanner) Line() int {
	return s.line
}

func (s *Scanner) atEnd() bool {
	return s.current >= len(s.source)
}

// advance consumes one byte and keeps line/column current.
func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

// match consumes the next byte only if it equals expected.
func (s *Scanner) match(expected byte) bool {
	if s.atEnd() || s.source[s.current] != expected {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) makeToken(t TokenType) Token {
	return Token{
		Type:   t,
		Lexeme: s.source[s.start:s.current],
		Line:   s.startLine,
		Column: s.startCol,
	}
}

func (s *Scanner) errorf(text, msg string) *ScanError {
	return &ScanError{
		Line:    s.line,
		Column:  s.startCol,
		Text:    text,
		Message: msg,
	}
}

// ScanToken scans and returns the next token. At the end of input it
// returns an EOF token, and keeps returning EOF if called again.
func (s *Scanner) ScanToken() (Token, error) {
	s.skipWhitespace()

	s.start = s.current
	s.startLine = s.line
	s.startCol = s.col

	if s.atEnd() {
		return s.makeToken(TokenEOF), nil
	}

	c := s.advance()
	switch c {
	case '(':
		return s.makeToken(TokenLParen), nil
	case ')':
		return s.makeToken(TokenRParen), nil
	case '{':
		return s.makeToken(TokenLBrace), nil
	case '}':
		return s.makeToken(TokenRBrace), nil
	case ',':
		return s.makeToken(TokenComma), nil
	case '.':
		return s.makeToken(TokenDot), nil
	case '-':
		return s.makeToken(TokenMinus), nil
	case '+':
		return s.makeToken(TokenPlus), nil
	case ';':
		return s.makeToken(TokenSemicolon), nil
	case '/':
		return s.makeToken(TokenSlash), nil
	case '*':
		return s.makeToken(TokenStar), nil
	case '!':
		return s.twoChar('=', TokenBangEqual, TokenBang), nil
	case '=':
		return s.twoChar('=', TokenEqualEqual, TokenEqual), nil
	case '<':
		return s.twoChar('=', TokenLessEqual, TokenLess), nil
	case '>':
		return s.twoChar('=', TokenGreaterEqual, TokenGreater), nil
	case '"':
		return s.readString()
	}

	switch {
	case isDigit(c):
		return s.readNumber()
	case isAlpha(c):
		return s.readIdentifier(), nil
	}

	// Consume the rest of a multi-byte character so the error names it whole.
	r, size := utf8.DecodeRuneInString(s.source[s.start:])
	for s.current < s.start+size && !s.atEnd() {
		s.advance()
	}
	return Token{}, s.errorf(string(r), "Unexpected character.")
}

// twoChar returns the two-character token if the next byte is second,
// otherwise the single-character fallback.
func (s *Scanner) twoChar(second byte, two, one TokenType) Token {
	if s.match(second) {
		return s.makeToken(two)
	}
	return s.makeToken(one)
}

// skipWhitespace skips blanks, newlines and // line comments.
func (s *Scanner) skipWhitespace() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\r', '\t', '\n':
			s.advance()
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for s.peek() != '\n' && !s.atEnd() {
				s.advance()
			}
		default:
			return
		}
	}
}

// readString reads a string literal. Strings may span lines; the literal
// value excludes the quotes.
func (s *Scanner) readString() (Token, error) {
	for s.peek() != '"' && !s.atEnd() {
		s.advance()
	}

	if s.atEnd() {
		return Token{}, s.errorf(s.source[s.start:s.current], "Unterminated string.")
	}

	s.advance() // closing "

	tok := s.makeToken(TokenString)
	tok.Literal = runtime.StringValue(s.source[s.start+1 : s.current-1])
	return tok, nil
}

// readNumber reads a run of digits with an optional fractional part. A
// trailing '.' without a digit after it is left for the next token.
func (s *Scanner) readNumber() (Token, error) {
	for isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume .
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	tok := s.makeToken(TokenNumber)
	n, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		return Token{}, s.errorf(tok.Lexeme, "Invalid number literal.")
	}
	tok.Literal = runtime.NumberValue(n)
	return tok, nil
}

// readIdentifier reads an identifier or keyword.
func (s *Scanner) readIdentifier() Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}

	if tokType, ok := LookupKeyword(s.source[s.start:s.current]); ok {
		return s.makeToken(tokType)
	}
	return s.makeToken(TokenIdentifier)
}

// Helper functions

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ScanTokens scans the whole source. The first error aborts the scan; on
// success the last token is the single EOF.
func ScanTokens(source string) ([]Token, error) {
	s := NewScanner(source)
	var tokens []Token
	for {
		tok, err := s.ScanToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
