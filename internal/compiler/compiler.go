package compiler

import (
	"log/slog"
	"sort"

	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// DefaultVersion is recorded in stories compiled without a version.
const DefaultVersion = "0.1.0"

// Config holds compiler configuration.
type Config struct {
	Version string
	Logger  *slog.Logger
}

// Compiler turns preprocessed trees into stories.
type Compiler struct {
	version string
	logger  *slog.Logger
}

// New creates a compiler.
func New(cfg Config) *Compiler {
	c := &Compiler{version: cfg.Version, logger: cfg.Logger}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// compilation is the state of compiling one tree.
type compilation struct {
	story    *Story
	services map[string]bool
	function *Line // enclosing function, if any
}

// Compile compiles a tree that no longer holds inline expressions in
// hoistable positions. Diagnostics are *storyerror.Error values.
func (c *Compiler) Compile(root *tree.Node) (_ *Story, err error) {
	defer tree.RecoverShape(&err)

	comp := &compilation{
		story: &Story{
			Tree:    map[string]*Line{},
			Version: c.version,
		},
		services: map[string]bool{},
	}
	if err := comp.nested(root, nil); err != nil {
		return nil, err
	}

	story := comp.story
	lines := story.Lines()
	for i, line := range lines {
		if i+1 < len(lines) {
			line.Next = lines[i+1].Ln
		}
	}
	if len(lines) > 0 {
		story.Entrypoint = lines[0].Ln
	}
	story.Services = make([]string, 0, len(comp.services))
	for service := range comp.services {
		story.Services = append(story.Services, service)
	}
	sort.Strings(story.Services)

	c.logger.Debug("compiled story", "lines", len(lines), "services", len(story.Services))
	return story, nil
}

// Imports returns the modules imported by a tree, alias → path as written.
func Imports(root *tree.Node) []Import {
	var imports []Import
	for _, n := range root.Find("imports") {
		str := n.Node("string")
		alias := n.ChildToken(2)
		if str == nil || alias == nil {
			continue
		}
		imports = append(imports, Import{Alias: alias.Value, Path: unquote(str.ChildToken(0).Value), Node: n})
	}
	return imports
}

// Import is a module import statement.
type Import struct {
	Alias string
	Path  string
	Node  *tree.Node
}

// add records a line for statement n.
func (c *compilation) add(n *tree.Node, method string, parent *Line) *Line {
	line := &Line{Method: method, Ln: n.Line().String(), line: n.Line()}
	if parent != nil {
		line.Parent = parent.Ln
	}
	c.story.Tree[line.Ln] = line
	return line
}

// nested compiles the blocks held by start or nested_block n.
func (c *compilation) nested(n *tree.Node, parent *Line) error {
	for _, item := range n.Children {
		block, ok := item.(*tree.Node)
		if !ok || block.Kind != "block" {
			continue
		}
		if err := c.block(block, parent); err != nil {
			return err
		}
	}
	return nil
}

// enter compiles the body of a compound statement into line.
func (c *compilation) enter(line *Line, body *tree.Node) error {
	if first := body.ChildNode(0); first != nil {
		line.Enter = first.Line().String()
	}
	return c.nested(body, line)
}

// block compiles the statements of a block, hoisted assignments first.
func (c *compilation) block(b *tree.Node, parent *Line) error {
	for _, item := range b.Children {
		statement, ok := item.(*tree.Node)
		if !ok {
			continue
		}
		var err error
		switch statement.Kind {
		case "rules":
			err = c.rules(statement, parent)
		case "service_block":
			err = c.serviceBlock(statement, parent)
		case "if_block":
			err = c.ifBlock(statement, parent)
		case "foreach_block":
			err = c.foreachBlock(statement, parent)
		case "while_block":
			err = c.whileBlock(statement, parent)
		case "function_block":
			err = c.functionBlock(statement, parent)
		case "try_block":
			err = c.tryBlock(statement, parent)
		default:
			err = storyerror.Expect(statement, false, storyerror.UnexpectedToken, statement.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rules compiles a simple statement.
func (c *compilation) rules(rules *tree.Node, parent *Line) error {
	n := rules.ChildNode(0)
	if n == nil {
		return &tree.ShapeError{Node: rules, Path: "<statement>"}
	}
	switch n.Kind {
	case "assignment":
		return c.assignment(n, parent)
	case "absolute_expression":
		value, err := c.expression(n.MustNode("expression"))
		if err != nil {
			return err
		}
		line := c.add(n, MethodExpression, parent)
		line.Args = []any{value}
		return nil
	case "return_statement":
		return c.returnStatement(n, parent)
	case "raise_statement":
		line := c.add(n, MethodRaise, parent)
		if entity := n.Node("entity"); entity != nil {
			value, err := c.entity(entity)
			if err != nil {
				return err
			}
			line.Args = []any{value}
		}
		return nil
	case "imports":
		imports := Imports(n)
		if len(imports) == 0 {
			return &tree.ShapeError{Node: n, Path: "string"}
		}
		imp := imports[0]
		line := c.add(n, MethodImport, parent)
		line.Args = []any{Object{ObjectKey: "string", "string": imp.Path}}
		line.Output = []string{imp.Alias}
		if c.story.Modules == nil {
			c.story.Modules = map[string]string{}
		}
		c.story.Modules[imp.Alias] = imp.Path
		return nil
	}
	return storyerror.Expect(n, false, storyerror.UnexpectedToken, n.Kind)
}

// assignment compiles "path = service" and "path = expression".
func (c *compilation) assignment(n *tree.Node, parent *Line) error {
	path := n.MustNode("path")
	fragment := n.MustNode("assignment_fragment")
	name, err := c.path(path)
	if err != nil {
		return err
	}
	target := name.(Object)["paths"].([]string)

	if service := fragment.Node("service"); service != nil {
		line, err := c.service(n, service, parent)
		if err != nil {
			return err
		}
		line.Name = target
		return nil
	}

	expression := fragment.MustNode("expression")
	value, err := c.expression(expression)
	if err != nil {
		return err
	}
	method := MethodSet
	if !expression.IsUnary() {
		method = MethodExpression
	}
	line := c.add(n, method, parent)
	line.Name = target
	line.Args = []any{value}
	return nil
}

// service compiles a service call, or a call of a function defined earlier
// in the story, as statement n.
func (c *compilation) service(n, service *tree.Node, parent *Line) (*Line, error) {
	name := service.MustNode("path").ChildToken(0).Value
	fragment := service.MustNode("service_fragment")
	args, err := c.arguments(fragment)
	if err != nil {
		return nil, err
	}

	if _, ok := c.story.Functions[name]; ok {
		line := c.add(n, MethodCall, parent)
		line.Function = name
		line.Args = args
		return line, nil
	}

	line := c.add(n, MethodExecute, parent)
	line.Service = name
	if command := fragment.Node("command"); command != nil {
		line.Command = command.ChildToken(0).Value
	}
	line.Args = args
	if output := fragment.Node("output"); output != nil {
		line.Output = names(output)
	}
	c.services[name] = true
	return line, nil
}

// serviceBlock compiles a service statement with an optional nested block.
func (c *compilation) serviceBlock(n *tree.Node, parent *Line) error {
	line, err := c.service(n, n.MustNode("service"), parent)
	if err != nil {
		return err
	}
	if body := n.Node("nested_block"); body != nil {
		return c.enter(line, body)
	}
	return nil
}

// ifBlock compiles a conditional. Each branch exits to the next one.
func (c *compilation) ifBlock(n *tree.Node, parent *Line) error {
	line, err := c.branch(n.MustNode("if_statement"), MethodIf, parent)
	if err != nil {
		return err
	}
	if err := c.enter(line, n.MustNode("nested_block")); err != nil {
		return err
	}

	previous := line
	for _, item := range n.Children {
		alternative, ok := item.(*tree.Node)
		if !ok {
			continue
		}
		var next *Line
		switch alternative.Kind {
		case "elseif_block":
			next, err = c.branch(alternative.MustNode("elseif_statement"), MethodElif, parent)
			if err != nil {
				return err
			}
		case "else_block":
			next = c.add(alternative, MethodElse, parent)
		default:
			continue
		}
		previous.Exit = next.Ln
		if err := c.enter(next, alternative.MustNode("nested_block")); err != nil {
			return err
		}
		previous = next
	}
	return nil
}

// branch records the line of an if or else if statement.
func (c *compilation) branch(statement *tree.Node, method string, parent *Line) (*Line, error) {
	value, err := c.condition(statement)
	if err != nil {
		return nil, err
	}
	line := c.add(statement, method, parent)
	line.Args = []any{value}
	return line, nil
}

// foreachBlock compiles a loop over a collection.
func (c *compilation) foreachBlock(n *tree.Node, parent *Line) error {
	statement := n.MustNode("foreach_statement")
	value, err := c.entity(statement.MustNode("entity"))
	if err != nil {
		return err
	}
	line := c.add(statement, MethodFor, parent)
	line.Args = []any{value}
	line.Output = names(statement.MustNode("output"))
	return c.enter(line, n.MustNode("nested_block"))
}

// whileBlock compiles a conditional loop.
func (c *compilation) whileBlock(n *tree.Node, parent *Line) error {
	statement := n.MustNode("while_statement")
	value, err := c.condition(statement)
	if err != nil {
		return err
	}
	line := c.add(statement, MethodWhile, parent)
	line.Args = []any{value}
	return c.enter(line, n.MustNode("nested_block"))
}

// functionBlock compiles a function definition.
func (c *compilation) functionBlock(n *tree.Node, parent *Line) error {
	statement := n.MustNode("function_statement")
	name := statement.ChildToken(1)
	line := c.add(statement, MethodFunction, parent)
	line.Function = name.Value

	for _, item := range statement.Children {
		child, ok := item.(*tree.Node)
		if !ok {
			continue
		}
		switch child.Kind {
		case "typed_argument":
			kind := child.MustNode("types").ChildToken(0).Value
			line.Args = append(line.Args, Object{
				ObjectKey:  "argument",
				"name":     child.ChildToken(0).Value,
				"argument": Object{ObjectKey: "type", "type": kind},
			})
		case "function_output":
			line.Output = names(child.MustNode("types"))
		}
	}

	if c.story.Functions == nil {
		c.story.Functions = map[string]string{}
	}
	c.story.Functions[name.Value] = line.Ln

	enclosing := c.function
	c.function = line
	defer func() { c.function = enclosing }()
	return c.enter(line, n.MustNode("nested_block"))
}

// returnStatement compiles a return, which is only valid in a function.
func (c *compilation) returnStatement(n *tree.Node, parent *Line) error {
	entity := n.Node("entity")
	at := n
	if entity != nil {
		at = entity
	}
	if err := storyerror.Expect(at, c.function != nil, storyerror.ReturnOutsideFunction); err != nil {
		return err
	}
	line := c.add(n, MethodReturn, parent)
	if entity != nil {
		value, err := c.entity(entity)
		if err != nil {
			return err
		}
		line.Args = []any{value}
	}
	return nil
}

// tryBlock compiles error handling. Each block exits to the next one.
func (c *compilation) tryBlock(n *tree.Node, parent *Line) error {
	line := c.add(n.MustNode("try_statement"), MethodTry, parent)
	if err := c.enter(line, n.MustNode("nested_block")); err != nil {
		return err
	}

	previous := line
	if catch := n.Node("catch_block"); catch != nil {
		statement := catch.MustNode("catch_statement")
		catchLine := c.add(statement, MethodCatch, parent)
		catchLine.Output = names(statement)
		previous.Exit = catchLine.Ln
		if err := c.enter(catchLine, catch.MustNode("nested_block")); err != nil {
			return err
		}
		previous = catchLine
	}
	if finally := n.Node("finally_block"); finally != nil {
		finallyLine := c.add(finally.MustNode("finally_statement"), MethodFinally, parent)
		previous.Exit = finallyLine.Ln
		return c.enter(finallyLine, finally.MustNode("nested_block"))
	}
	return nil
}
