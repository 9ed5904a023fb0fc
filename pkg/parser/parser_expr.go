package parser

import (
	"github.com/storyscript/storyc/pkg/tree"
)

// parseExpression parses additive expressions.
//
//	expression → multiplication ((PLUS|MINUS) multiplication)*
func (p *Parser) parseExpression() *tree.Node {
	return p.parseLevel("expression", p.parseMultiplication, KindPlus, KindMinus)
}

// parseMultiplication parses multiplicative expressions.
//
//	multiplication → exponential ((MULTIPLIER|DIVIDE|MODULUS) exponential)*
func (p *Parser) parseMultiplication() *tree.Node {
	return p.parseLevel("multiplication", p.parseExponential, KindMultiplier, KindDivide, KindModulus)
}

// parseExponential parses powers.
//
//	exponential → factor (POWER factor)*
func (p *Parser) parseExponential() *tree.Node {
	return p.parseLevel("exponential", p.parseFactor, KindPower)
}

// parseLevel parses one precedence level: operands joined by operators of
// the given kinds, all kept as children of a single node.
func (p *Parser) parseLevel(kind string, operand func() *tree.Node, operators ...string) *tree.Node {
	first := operand()
	if first == nil || p.failed() {
		return nil
	}
	node := tree.New(kind, first)
	for !p.failed() {
		tok := p.token()
		if !isOneOf(tok.Kind, operators) {
			break
		}
		p.nextToken()
		next := operand()
		if next == nil {
			return nil
		}
		node.Children = append(node.Children, tok, next)
	}
	return node
}

func isOneOf(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// parseFactor parses an operand.
//
//	factor → entity | LPAREN expression RPAREN
func (p *Parser) parseFactor() *tree.Node {
	if p.check(KindLParen) && !p.serviceAt(p.pos+1) {
		p.nextToken()
		expression := p.parseExpression()
		if expression == nil || p.expect(KindRParen) == nil {
			return nil
		}
		return tree.New("factor", expression)
	}
	entity := p.parseEntity()
	if entity == nil {
		return nil
	}
	return tree.New("factor", entity)
}

// parseEntity parses a value or a path.
//
//	entity → values | path
func (p *Parser) parseEntity() *tree.Node {
	if p.failed() {
		return nil
	}
	switch p.token().Kind {
	case KindName:
		return tree.New("entity", p.parsePath())
	case KindLParen:
		if p.serviceAt(p.pos + 1) {
			return tree.New("entity", p.parseInlineExpression())
		}
	}
	values := p.parseValues()
	if values == nil {
		return nil
	}
	return tree.New("entity", values)
}

// parseValues parses a literal.
//
//	values → string | number | boolean | list
func (p *Parser) parseValues() *tree.Node {
	tok := p.token()
	switch tok.Kind {
	case KindSingleQuoted, KindDoubleQuoted:
		return tree.New("values", tree.New("string", p.nextToken()))
	case KindInt, KindFloat:
		return tree.New("values", tree.New("number", p.nextToken()))
	case KindTrue, KindFalse:
		return tree.New("values", tree.New("boolean", p.nextToken()))
	case KindMinus:
		next := p.at(p.pos + 1)
		if (next.Kind == KindInt || next.Kind == KindFloat) && next.Column == tok.EndColumn && next.Line == tok.Line {
			p.nextToken()
			p.nextToken()
			negative := *next
			negative.Value = "-" + next.Value
			negative.Column = tok.Column
			return tree.New("values", tree.New("number", &negative))
		}
	case KindLBracket:
		return tree.New("values", p.parseList())
	}
	p.unexpected()
	return nil
}

// parseList parses a list literal. Only the items are kept.
//
//	list → LBRACKET (entity (COMMA entity)*)? RBRACKET
func (p *Parser) parseList() *tree.Node {
	p.nextToken() // skip '['
	list := tree.New("list")
	for !p.check(KindRBracket) && !p.failed() {
		entity := p.parseEntity()
		if entity == nil {
			return nil
		}
		list.Children = append(list.Children, entity)
		if _, ok := p.match(KindComma); !ok {
			break
		}
	}
	if p.expect(KindRBracket) == nil {
		return nil
	}
	return list
}

// parsePath parses a variable path.
//
//	path          → NAME path_fragment*
//	path_fragment → DOT NAME | LBRACKET (INT | string | NAME) RBRACKET
func (p *Parser) parsePath() *tree.Node {
	name := p.expect(KindName)
	if name == nil {
		return nil
	}
	path := tree.New("path", name)
	for !p.failed() {
		switch {
		case p.check(KindDot):
			p.nextToken()
			if tok := p.expect(KindName); tok != nil {
				path.Children = append(path.Children, tree.New("path_fragment", tok))
			}
		case p.check(KindLBracket):
			p.nextToken()
			tok := p.token()
			switch tok.Kind {
			case KindInt, KindName, KindSingleQuoted, KindDoubleQuoted:
				p.nextToken()
				path.Children = append(path.Children, tree.New("path_fragment", tok))
				p.expect(KindRBracket)
			default:
				p.unexpected()
			}
		default:
			return path
		}
	}
	return nil
}

// parseInlineExpression parses a service call used as a value.
//
//	path              → inline_expression
//	inline_expression → LPAREN service RPAREN
func (p *Parser) parseInlineExpression() *tree.Node {
	p.nextToken() // skip '('
	service := p.parseService(p.parsePath())
	if service == nil || p.expect(KindRParen) == nil {
		return nil
	}
	return tree.New("path", tree.New("inline_expression", service))
}
