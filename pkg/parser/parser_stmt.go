package parser

import (
	"strings"

	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// parseStart parses the whole story.
//
//	start → block*
func (p *Parser) parseStart() *tree.Node {
	start := tree.New("start")
	for !p.check(KindEOF) && !p.failed() {
		if p.check(KindIndent) || p.check(KindDedent) {
			p.unexpected()
			break
		}
		if block := p.parseBlock(); block != nil {
			start.Children = append(start.Children, block)
		}
	}
	return start
}

// parseBlock parses one statement with its nested blocks.
func (p *Parser) parseBlock() *tree.Node {
	statement := p.parseStatement()
	if statement == nil || p.failed() {
		return nil
	}
	return tree.New("block", statement)
}

// parseNestedBlock parses an indented sequence of blocks.
//
//	nested_block → INDENT block+ DEDENT
func (p *Parser) parseNestedBlock() *tree.Node {
	if p.expect(KindIndent) == nil {
		return nil
	}
	nested := tree.New("nested_block")
	for !p.check(KindDedent) && !p.check(KindEOF) && !p.failed() {
		if block := p.parseBlock(); block != nil {
			nested.Children = append(nested.Children, block)
		}
	}
	p.match(KindDedent)
	return nested
}

// parseStatement dispatches on the first token of a line.
func (p *Parser) parseStatement() *tree.Node {
	tok := p.token()
	if IsKeyword(tok.Kind) && p.checkPeek(KindEquals) {
		p.addError(storyerror.AtToken(storyerror.ReservedKeyword, tok, tok.Value))
		return nil
	}

	switch tok.Kind {
	case KindIf:
		return p.parseIfBlock()
	case KindForeach:
		return p.parseForeachBlock()
	case KindWhile:
		return p.parseWhileBlock()
	case KindFunction:
		return p.parseFunctionBlock()
	case KindTry:
		return p.parseTryBlock()
	case KindReturn:
		return p.parseRules(p.parseFlowStatement("return_statement"))
	case KindRaise:
		return p.parseRules(p.parseFlowStatement("raise_statement"))
	case KindImport:
		return p.parseRules(p.parseImports())
	case KindName:
		if p.checkPeek(KindColon) {
			p.addError(storyerror.AtToken(storyerror.ArgumentsNoService, tok))
			return nil
		}
		return p.parseNameStatement()
	}
	if IsKeyword(tok.Kind) || tok.Kind == KindNewline {
		p.unexpected()
		return nil
	}
	return p.parseRules(p.parseAbsoluteExpression())
}

// parseRules wraps a simple statement and ends its line.
func (p *Parser) parseRules(statement *tree.Node) *tree.Node {
	if statement == nil || p.failed() {
		return nil
	}
	p.endStatement()
	if p.check(KindIndent) {
		p.unexpected()
		return nil
	}
	return tree.New("rules", statement)
}

// parseNameStatement parses a statement starting with a name: an
// assignment, a service call or an expression.
func (p *Parser) parseNameStatement() *tree.Node {
	mark := p.pos
	path := p.parsePath()
	if p.failed() {
		return nil
	}

	switch {
	case p.check(KindEquals):
		assignment := p.parseAssignment(path)
		if assignment == nil || p.failed() {
			return nil
		}
		p.endStatement()
		p.parseIndentedArguments(assignment.Node("assignment_fragment.service"))
		if p.check(KindIndent) {
			p.unexpected()
			return nil
		}
		return tree.New("rules", assignment)
	case p.check(KindName):
		return p.parseServiceBlock(path)
	}

	p.pos = mark
	return p.parseRules(p.parseAbsoluteExpression())
}

// parseAssignment parses the rest of an assignment to path.
//
//	assignment → path EQUALS (service | expression)
func (p *Parser) parseAssignment(path *tree.Node) *tree.Node {
	if !p.checkVariable(path) {
		return nil
	}
	equals := p.nextToken()
	if p.check(KindNewline) || p.check(KindEOF) {
		p.addError(storyerror.AtToken(storyerror.MissingValue, p.token()))
		return nil
	}

	var value *tree.Node
	if p.serviceAt(p.pos) {
		value = p.parseService(p.parsePath())
	} else {
		value = p.parseExpression()
	}
	if value == nil || p.failed() {
		return nil
	}
	return tree.New("assignment", path, tree.New("assignment_fragment", equals, value))
}

// checkVariable validates the target name of an assignment.
func (p *Parser) checkVariable(path *tree.Node) bool {
	name := path.ChildToken(0)
	if name == nil {
		return true
	}
	switch {
	case strings.Contains(name.Value, "/"):
		p.addError(storyerror.AtToken(storyerror.VariableNameSlash, name))
	case strings.Contains(name.Value, "-"):
		p.addError(storyerror.AtToken(storyerror.VariableNameDash, name))
	case futureKeywords[name.Value]:
		p.addError(storyerror.AtToken(storyerror.FutureReservedKeyword, name, name.Value))
	default:
		return true
	}
	return false
}

// parseServiceBlock parses a service call statement.
//
//	service_block → service nested_block?
func (p *Parser) parseServiceBlock(path *tree.Node) *tree.Node {
	service := p.parseService(path)
	if service == nil || p.failed() {
		return nil
	}
	p.endStatement()
	p.parseIndentedArguments(service)

	block := tree.New("service_block", service)
	if p.check(KindIndent) {
		nested := p.parseNestedBlock()
		if nested == nil || p.failed() {
			return nil
		}
		block.Children = append(block.Children, nested)
		implicitOutput(service)
	}
	return block
}

// parseService parses the call following a service name.
//
//	service          → path service_fragment
//	service_fragment → command? arguments* output?
//	output           → AS NAME (COMMA NAME)*
func (p *Parser) parseService(path *tree.Node) *tree.Node {
	if path.Len() > 1 {
		p.addError(span(storyerror.ServiceNameDot, path))
		return nil
	}
	if path.ChildToken(0) == nil {
		p.unexpected()
		return nil
	}

	fragment := tree.New("service_fragment")
	if p.check(KindName) && !p.checkPeek(KindColon) {
		fragment.Children = append(fragment.Children, tree.New("command", p.nextToken()))
	}
	for p.check(KindName) && p.checkPeek(KindColon) && !p.failed() {
		if argument := p.parseArgument(); argument != nil {
			fragment.Children = append(fragment.Children, argument)
		}
	}
	if p.check(KindAs) {
		p.nextToken()
		fragment.Children = append(fragment.Children, p.parseOutput())
	}
	if p.failed() {
		return nil
	}
	return tree.New("service", path, fragment)
}

// parseArgument parses a key:value argument.
//
//	arguments → NAME COLON entity
func (p *Parser) parseArgument() *tree.Node {
	name := p.nextToken()
	p.nextToken() // skip ':'
	entity := p.parseEntity()
	if entity == nil {
		return nil
	}
	return tree.New("arguments", name, entity)
}

// parseIndentedArguments appends arguments written on indented lines after
// a service call.
func (p *Parser) parseIndentedArguments(service *tree.Node) {
	if service == nil || !p.check(KindIndent) {
		return
	}
	next := p.at(p.pos + 1)
	if next.Kind != KindName || p.at(p.pos+2).Kind != KindColon {
		return
	}
	fragment := service.Node("service_fragment")
	p.nextToken() // skip INDENT
	var arguments []tree.Item
	for p.check(KindName) && p.checkPeek(KindColon) && !p.failed() {
		for p.check(KindName) && p.checkPeek(KindColon) && !p.failed() {
			if argument := p.parseArgument(); argument != nil {
				arguments = append(arguments, argument)
			}
		}
		p.endStatement()
	}
	if !p.failed() && !p.check(KindEOF) {
		p.expect(KindDedent)
	}

	// Arguments go before the output, if any.
	children := fragment.Children
	if n := len(children); n > 0 {
		if last, ok := children[n-1].(*tree.Node); ok && last.Kind == "output" {
			fragment.Children = append(append(children[:n-1:n-1], arguments...), last)
			return
		}
	}
	fragment.Children = append(children, arguments...)
}

// implicitOutput names the output of a service with a nested block after
// its command when no output is given.
func implicitOutput(service *tree.Node) {
	fragment := service.Node("service_fragment")
	if fragment.Node("output") != nil {
		return
	}
	command := fragment.Node("command")
	if command == nil {
		return
	}
	tok := *command.ChildToken(0)
	fragment.Children = append(fragment.Children, tree.New("output", &tok))
}

// parseOutput parses the names after AS.
func (p *Parser) parseOutput() *tree.Node {
	output := tree.New("output")
	for {
		name := p.expect(KindName)
		if name == nil {
			return output
		}
		output.Children = append(output.Children, name)
		if _, ok := p.match(KindComma); !ok {
			return output
		}
	}
}

// parseIfBlock parses a conditional with its alternatives.
//
//	if_block         → if_statement nested_block elseif_block* else_block?
//	elseif_block     → ELSE elseif_statement nested_block
//	else_block       → ELSE nested_block
func (p *Parser) parseIfBlock() *tree.Node {
	block := tree.New("if_block", p.parseIfStatement(), p.parseStatementBlock())
	for p.check(KindElse) && !p.failed() {
		elseTok := p.nextToken()
		if p.check(KindIf) {
			statement := p.parseIfStatement()
			statement.Rename("elseif_statement")
			block.Children = append(block.Children, tree.New("elseif_block", statement, p.parseStatementBlock()))
			continue
		}
		p.endStatement()
		block.Children = append(block.Children, tree.New("else_block", elseTok, p.parseNestedBlock()))
		break
	}
	if p.failed() {
		return nil
	}
	return block
}

// parseIfStatement parses the head of a conditional.
//
//	if_statement → IF entity comparison?
//	comparison   → OPERATOR entity
func (p *Parser) parseIfStatement() *tree.Node {
	statement := tree.New("if_statement", p.nextToken(), p.parseEntity())
	if comparison := p.parseComparison(); comparison != nil {
		statement.Children = append(statement.Children, comparison)
	}
	return statement
}

func (p *Parser) parseComparison() *tree.Node {
	operator, ok := p.match(KindOperator)
	if !ok {
		return nil
	}
	return tree.New("comparison", operator, p.parseEntity())
}

// parseStatementBlock ends the head line of a compound statement and parses
// its body.
func (p *Parser) parseStatementBlock() *tree.Node {
	if p.failed() {
		return nil
	}
	p.endStatement()
	return p.parseNestedBlock()
}

// parseForeachBlock parses a loop over a collection.
//
//	foreach_statement → FOREACH entity AS output
func (p *Parser) parseForeachBlock() *tree.Node {
	statement := tree.New("foreach_statement", p.nextToken(), p.parseEntity())
	if p.expect(KindAs) != nil {
		statement.Children = append(statement.Children, p.parseOutput())
	}
	block := tree.New("foreach_block", statement, p.parseStatementBlock())
	if p.failed() {
		return nil
	}
	return block
}

// parseWhileBlock parses a conditional loop.
//
//	while_statement → WHILE entity comparison?
func (p *Parser) parseWhileBlock() *tree.Node {
	statement := tree.New("while_statement", p.nextToken(), p.parseEntity())
	if comparison := p.parseComparison(); comparison != nil {
		statement.Children = append(statement.Children, comparison)
	}
	block := tree.New("while_block", statement, p.parseStatementBlock())
	if p.failed() {
		return nil
	}
	return block
}

// parseFunctionBlock parses a function definition.
//
//	function_statement → FUNCTION NAME typed_argument* function_output?
//	typed_argument     → NAME COLON types
//	function_output    → RETURNS types
func (p *Parser) parseFunctionBlock() *tree.Node {
	statement := tree.New("function_statement", p.nextToken())
	name := p.expect(KindName)
	if name == nil {
		return nil
	}
	statement.Children = append(statement.Children, name)

	for p.check(KindName) && !p.failed() {
		argument := p.nextToken()
		p.expect(KindColon)
		statement.Children = append(statement.Children, tree.New("typed_argument", argument, p.parseTypes()))
	}
	if _, ok := p.match(KindReturns); ok {
		statement.Children = append(statement.Children, tree.New("function_output", p.parseTypes()))
	}

	block := tree.New("function_block", statement, p.parseStatementBlock())
	if p.failed() {
		return nil
	}
	return block
}

func (p *Parser) parseTypes() *tree.Node {
	tok := p.token()
	kind, ok := types[tok.Value]
	if tok.Kind != KindName || !ok {
		p.unexpected()
		return nil
	}
	p.nextToken()
	typed := *tok
	typed.Kind = kind
	return tree.New("types", &typed)
}

// parseTryBlock parses error handling.
//
//	try_block     → try_statement nested_block catch_block? finally_block?
//	catch_block   → CATCH AS NAME nested_block
//	finally_block → FINALLY nested_block
func (p *Parser) parseTryBlock() *tree.Node {
	block := tree.New("try_block", tree.New("try_statement", p.nextToken()), p.parseStatementBlock())
	if p.check(KindCatch) && !p.failed() {
		p.nextToken()
		p.expect(KindAs)
		name := p.expect(KindName)
		if name != nil {
			block.Children = append(block.Children,
				tree.New("catch_block", tree.New("catch_statement", name), p.parseStatementBlock()))
		}
	}
	if p.check(KindFinally) && !p.failed() {
		statement := tree.New("finally_statement", p.nextToken())
		block.Children = append(block.Children, tree.New("finally_block", statement, p.parseStatementBlock()))
	}
	if p.failed() {
		return nil
	}
	return block
}

// parseFlowStatement parses return and raise, with an optional value.
func (p *Parser) parseFlowStatement(kind string) *tree.Node {
	statement := tree.New(kind, p.nextToken())
	if p.check(KindNewline) || p.check(KindEOF) {
		return statement
	}
	if entity := p.parseEntity(); entity != nil {
		statement.Children = append(statement.Children, entity)
	}
	return statement
}

// parseImports parses a module import.
//
//	imports → IMPORT string AS NAME
func (p *Parser) parseImports() *tree.Node {
	keyword := p.nextToken()
	tok := p.token()
	if tok.Kind != KindSingleQuoted && tok.Kind != KindDoubleQuoted {
		p.unexpected()
		return nil
	}
	p.nextToken()
	if p.expect(KindAs) == nil {
		return nil
	}
	name := p.expect(KindName)
	if name == nil {
		return nil
	}
	return tree.New("imports", keyword, tree.New("string", tok), name)
}

// parseAbsoluteExpression parses an expression used as a statement.
func (p *Parser) parseAbsoluteExpression() *tree.Node {
	expression := p.parseExpression()
	if expression == nil {
		return nil
	}
	return tree.New("absolute_expression", expression)
}
