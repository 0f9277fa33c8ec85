// Package expr parses the embedded scripting subset used in guards,
// actions and initial-value expressions, type-checks it against the
// variables visible in scope, and lowers it to the target expression
// algebra. The subset covers arithmetic, boolean logic, comparison,
// array indexing and literals, the conditional operator, and a small
// set of Math.* builtins; everything else is rejected eagerly.
package expr

import (
	"fmt"
	"unicode"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	TokenReal
	TokenOp       // + - * / % ! < > <= >= == != && || ? :
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
	TokenIllegal
)

// Token is a single lexeme with its byte offset in the source.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%v, %q, %d}", t.Type, t.Literal, t.Pos)
}

// Lexer tokenizes scripting-subset input.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.pos
	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: pos}
	case '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}
	case ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}
	case ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}
	case '+', '-', '*', '/', '%', '?', ':':
		op := string(l.ch)
		l.readChar()
		return Token{Type: TokenOp, Literal: op, Pos: pos}
	case '!', '<', '>', '=':
		op := string(l.ch)
		if l.peekChar() == '=' {
			l.readChar()
			op += "="
			// === and !== compare like their two-character forms here.
			if (op == "==" || op == "!=") && l.peekChar() == '=' {
				l.readChar()
			}
		}
		l.readChar()
		if op == "=" {
			return Token{Type: TokenIllegal, Literal: op, Pos: pos}
		}
		return Token{Type: TokenOp, Literal: op, Pos: pos}
	case '&', '|':
		op := string(l.ch)
		if l.peekChar() != l.ch {
			l.readChar()
			return Token{Type: TokenIllegal, Literal: op, Pos: pos}
		}
		l.readChar()
		l.readChar()
		return Token{Type: TokenOp, Literal: op + op, Pos: pos}
	}

	if isDigit(l.ch) {
		return l.readNumber()
	}
	if isIdentStart(l.ch) {
		return Token{Type: TokenIdent, Literal: l.readIdent(), Pos: pos}
	}
	tok := Token{Type: TokenIllegal, Literal: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

func (l *Lexer) readNumber() Token {
	pos := l.pos
	typ := TokenInt
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = TokenReal
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		typ = TokenReal
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: typ, Literal: l.input[pos:l.pos], Pos: pos}
}

// readIdent reads a possibly dotted identifier such as Math.abs or
// _event.data. Dot access is resolved during parsing, not evaluation,
// so the whole path is one token.
func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentChar(l.ch) || (l.ch == '.' && isIdentStart(l.peekChar())) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isIdentChar(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}
