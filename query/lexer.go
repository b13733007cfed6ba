// Package query implements the resource query expression language and the
// QuerySpec consumed by the live API and the local resource store.
//
// The query language supports:
//   - Field clauses: name:prod, type=tcp, name~db (substring)
//   - Implicit AND between adjacent clauses: type:tcp name:prod
//   - Boolean operators: AND, OR
//   - Parentheses for grouping: (name:a OR name:b) type:tcp
//   - Empty clauses (name:) which match everything
//   - Bare words, collected as free-text search
//
// Example queries:
//   - resource:target type:tcp
//   - resource:session status:active status:pending
//   - resource:user "alice smith"
package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF      TokenType = iota
	TokenIdent              // field names, values
	TokenString             // quoted strings
	TokenColon              // :
	TokenEquals             // =
	TokenTilde              // ~
	TokenAnd                // AND
	TokenOr                 // OR
	TokenLParen             // (
	TokenRParen             // )
)

// String returns the string representation of a TokenType.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "IDENT"
	case TokenString:
		return "STRING"
	case TokenColon:
		return ":"
	case TokenEquals:
		return "="
	case TokenTilde:
		return "~"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}

// Token represents a single token from the lexer.
type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset in the input
}

// Lexer tokenizes a query string.
type Lexer struct {
	input string
	pos   int
	width int
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return 0
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *Lexer) backup() {
	l.pos -= l.width
}

func (l *Lexer) skipWhitespace() {
	for {
		r := l.next()
		if r == 0 || !unicode.IsSpace(r) {
			l.backup()
			return
		}
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	startPos := l.pos
	r := l.next()
	switch r {
	case 0:
		return Token{Type: TokenEOF, Pos: startPos}, nil
	case '(':
		return Token{Type: TokenLParen, Value: "(", Pos: startPos}, nil
	case ')':
		return Token{Type: TokenRParen, Value: ")", Pos: startPos}, nil
	case ':':
		return Token{Type: TokenColon, Value: ":", Pos: startPos}, nil
	case '=':
		return Token{Type: TokenEquals, Value: "=", Pos: startPos}, nil
	case '~':
		return Token{Type: TokenTilde, Value: "~", Pos: startPos}, nil
	case '"', '\'':
		return l.readString(r, startPos)
	}
	if isIdentChar(r) {
		l.backup()
		return l.readIdent(startPos), nil
	}
	return Token{}, fmt.Errorf("query: unexpected character %q at position %d", r, startPos)
}

func (l *Lexer) readString(quote rune, startPos int) (Token, error) {
	var sb strings.Builder
	for {
		r := l.next()
		if r == 0 {
			return Token{}, fmt.Errorf("query: unterminated string starting at position %d", startPos)
		}
		if r == quote {
			return Token{Type: TokenString, Value: sb.String(), Pos: startPos}, nil
		}
		if r == '\\' {
			escaped := l.next()
			if escaped == 0 {
				return Token{}, fmt.Errorf("query: unterminated escape sequence at position %d", l.pos)
			}
			sb.WriteRune(escaped)
			continue
		}
		sb.WriteRune(r)
	}
}

func (l *Lexer) readIdent(startPos int) Token {
	var sb strings.Builder
	for {
		r := l.next()
		if r == 0 || !isIdentChar(r) {
			l.backup()
			break
		}
		sb.WriteRune(r)
	}
	value := sb.String()
	switch value {
	case "AND", "and":
		return Token{Type: TokenAnd, Value: value, Pos: startPos}
	case "OR", "or":
		return Token{Type: TokenOr, Value: value, Pos: startPos}
	}
	return Token{Type: TokenIdent, Value: value, Pos: startPos}
}

// Tokenize returns all tokens from the input.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// isIdentChar accepts everything that is not whitespace, an operator or a
// quote, so ids (ttcp_1234) and addresses (10.0.0.1) pass unquoted.
func isIdentChar(r rune) bool {
	if r == 0 || unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '(', ')', ':', '=', '~', '"', '\'':
		return false
	}
	return true
}
