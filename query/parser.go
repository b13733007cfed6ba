package query

import (
	"fmt"
	"strings"
)

// Node represents a node in the query AST.
type Node interface {
	node() // marker method
	String() string
}

// Operator is the match operator of a field clause.
type Operator int

const (
	OpEquals Operator = iota
	OpContains
)

// String returns the string representation of an Operator.
func (op Operator) String() string {
	if op == OpContains {
		return "~"
	}
	return ":"
}

// FieldNode is a field clause such as type:tcp. Empty is set for clauses
// written without a value (name:).
type FieldNode struct {
	Field string
	Op    Operator
	Value string
	Empty bool
}

func (n *FieldNode) node() {}
func (n *FieldNode) String() string {
	return n.Field + n.Op.String() + n.Value
}

// TermNode is a bare search word.
type TermNode struct {
	Text string
}

func (n *TermNode) node()          {}
func (n *TermNode) String() string { return n.Text }

// AndNode represents a logical AND, written or implicit.
type AndNode struct {
	Left  Node
	Right Node
}

func (n *AndNode) node() {}
func (n *AndNode) String() string {
	return fmt.Sprintf("(%s AND %s)", n.Left.String(), n.Right.String())
}

// OrNode represents a logical OR.
type OrNode struct {
	Left  Node
	Right Node
}

func (n *OrNode) node() {}
func (n *OrNode) String() string {
	return fmt.Sprintf("(%s OR %s)", n.Left.String(), n.Right.String())
}

// Parser parses a query string into an AST.
type Parser struct {
	input  string
	tokens []Token
	pos    int
}

// NewParser creates a new Parser for the given input.
func NewParser(input string) *Parser {
	return &Parser{input: input}
}

// Parse parses the query string and returns the root AST node. A blank query
// yields a nil node and no error.
func (p *Parser) Parse() (Node, error) {
	tokens, err := NewLexer(p.input).Tokenize()
	if err != nil {
		return nil, err
	}
	p.tokens = tokens
	p.pos = 0
	if p.current().Type == TokenEOF {
		return nil, nil
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return nil, fmt.Errorf("query: unexpected token %q at position %d (expected end of query)", tok.Value, tok.Pos)
	}
	return node, nil
}

func (p *Parser) current() Token {
	return p.at(p.pos)
}

func (p *Parser) at(i int) Token {
	if i >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.input)}
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// parseOr parses OR expressions (lowest precedence).
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
	return left, nil
}

// parseAnd parses explicit and implicit (juxtaposed) AND expressions.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Type {
		case TokenAnd:
			p.advance()
		case TokenIdent, TokenString, TokenLParen:
		default:
			return left, nil
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
}

// parsePrimary parses clauses, bare terms and parenthesized expressions.
func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenLParen:
		p.advance()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.current(); closing.Type != TokenRParen {
			return nil, fmt.Errorf("query: expected ')' at position %d, got %s", closing.Pos, closing.Type.String())
		}
		p.advance()
		return node, nil
	case TokenString:
		p.advance()
		return &TermNode{Text: tok.Value}, nil
	case TokenIdent:
		if isOperator(p.at(p.pos + 1).Type) {
			return p.parseField()
		}
		p.advance()
		return &TermNode{Text: tok.Value}, nil
	default:
		return nil, fmt.Errorf("query: expected clause at position %d, got %s", tok.Pos, tok.Type.String())
	}
}

// parseField parses field<op>value, where the value may be omitted.
func (p *Parser) parseField() (Node, error) {
	field := strings.ToLower(p.advance().Value)
	op := OpEquals
	if p.advance().Type == TokenTilde {
		op = OpContains
	}
	node := &FieldNode{Field: field, Op: op}

	next := p.current()
	switch next.Type {
	case TokenString:
		p.advance()
		node.Value = next.Value
	case TokenIdent:
		// "name: type:tcp" leaves name empty; the identifier starts the next clause.
		if isOperator(p.at(p.pos + 1).Type) {
			node.Empty = true
			break
		}
		p.advance()
		node.Value = next.Value
	default:
		node.Empty = true
	}
	if node.Value == "" {
		node.Empty = true
	}
	return node, nil
}

func isOperator(t TokenType) bool {
	return t == TokenColon || t == TokenEquals || t == TokenTilde
}

// Parse is a convenience function that parses a query string.
func Parse(input string) (Node, error) {
	return NewParser(input).Parse()
}
