// Package parser turns story source into the concrete syntax trees consumed
// by the compiler passes.
//
// # Usage
//
//	root, err := parser.Parse("alpine echo text:'hello'\n")
//	if err != nil {
//	    // err is a *storyerror.Error
//	}
//
// # Grammar Overview
//
// The parser is a recursive descent parser over the token stream of Lexer.
// Node kinds and nesting follow the rules below; passes address nodes by
// these kinds, so the shapes are part of the API.
//
//	start          → block*
//	block          → rules | service_block | if_block | foreach_block
//	                 | while_block | function_block | try_block
//	rules          → assignment | absolute_expression | return_statement
//	                 | raise_statement | imports
//	assignment     → path assignment_fragment
//	assignment_fragment → EQUALS (service | expression)
//	service_block  → service nested_block?
//	service        → path service_fragment
//	service_fragment → command? arguments* output?
//	arguments      → NAME entity
//	if_block       → if_statement nested_block elseif_block* else_block?
//	if_statement   → IF entity comparison?
//	comparison     → OPERATOR entity
//	expression     → multiplication ((PLUS|MINUS) multiplication)*
//	multiplication → exponential ((MULTIPLIER|DIVIDE|MODULUS) exponential)*
//	exponential    → factor (POWER factor)*
//	factor         → entity | expression
//	entity         → values | path
//	path           → NAME path_fragment* | inline_expression
//	inline_expression → service
//
// See parser_stmt.go and parser_expr.go for the remaining rules.
package parser

import (
	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// Parser parses a story into a tree.
type Parser struct {
	tokens []*tree.Token
	pos    int
	err    error // first error, parsing stops once set
}

// NewParser creates a parser over the tokens of source.
func NewParser(source string) (*Parser, error) {
	tokens, err := Lex(source)
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: tokens}, nil
}

// Parse parses source and returns the root "start" node.
func Parse(source string) (*tree.Node, error) {
	p, err := NewParser(source)
	if err != nil {
		return nil, err
	}
	root := p.parseStart()
	if p.err != nil {
		return nil, p.err
	}
	return root, nil
}

// ---------- Token Helpers ----------

// token returns the current token.
func (p *Parser) token() *tree.Token {
	return p.at(p.pos)
}

// at returns the token at index i, or the final EOF past the end.
func (p *Parser) at(i int) *tree.Token {
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// nextToken consumes and returns the current token.
func (p *Parser) nextToken() *tree.Token {
	tok := p.token()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// check returns true if the current token is of the given kind.
func (p *Parser) check(kind string) bool {
	return p.token().Kind == kind
}

// checkPeek returns true if the token after the current one is of the given
// kind.
func (p *Parser) checkPeek(kind string) bool {
	return p.at(p.pos+1).Kind == kind
}

// match consumes the current token if it matches.
func (p *Parser) match(kind string) (*tree.Token, bool) {
	if p.check(kind) {
		return p.nextToken(), true
	}
	return nil, false
}

// expect consumes the current token if it matches, otherwise records an
// unexpected token error.
func (p *Parser) expect(kind string) *tree.Token {
	if tok, ok := p.match(kind); ok {
		return tok
	}
	p.unexpected()
	return nil
}

// failed reports whether an error has been recorded.
func (p *Parser) failed() bool {
	return p.err != nil
}

// addError records err unless an earlier error exists.
func (p *Parser) addError(err *storyerror.Error) {
	if p.err == nil {
		p.err = err
	}
}

// unexpected records an error for the current token.
func (p *Parser) unexpected() {
	tok := p.token()
	code := storyerror.UnexpectedToken
	if tok.Kind == KindIndent {
		code = storyerror.Indentation
		p.addError(storyerror.AtToken(code, tok))
		return
	}
	p.addError(storyerror.AtToken(code, tok, describe(tok)))
}

// endStatement consumes the line break after a statement.
func (p *Parser) endStatement() {
	if p.check(KindEOF) {
		return
	}
	p.expect(KindNewline)
}

// serviceAt reports whether a service call starts at token i: a path
// directly followed by a command or argument name.
func (p *Parser) serviceAt(i int) bool {
	if p.at(i).Kind != KindName {
		return false
	}
	i++
	for {
		switch p.at(i).Kind {
		case KindDot:
			i += 2
		case KindLBracket:
			i += 3
		case KindName:
			return true
		default:
			return false
		}
	}
}
