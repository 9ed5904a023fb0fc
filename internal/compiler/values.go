package compiler

import (
	"strconv"
	"strings"

	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// ObjectKey tags the encoded values of compiled arguments.
const ObjectKey = "$OBJECT"

// Object is an encoded value such as a path, a string or an expression.
type Object map[string]any

var operators = map[string]string{
	"PLUS":       "sum",
	"MINUS":      "subtraction",
	"MULTIPLIER": "multiplication",
	"DIVIDE":     "division",
	"MODULUS":    "modulus",
	"POWER":      "exponential",
}

var comparisons = map[string]string{
	"==": "equals",
	"!=": "not_equal",
	"<":  "less",
	">":  "greater",
	"<=": "less_equal",
	">=": "greater_equal",
}

var unescape = strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`, `\n`, "\n", `\t`, "\t")

// unquote strips the quotes of a string token and resolves escapes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	return unescape.Replace(raw[1 : len(raw)-1])
}

// entity encodes an entity: a literal or a path.
func (c *compilation) entity(n *tree.Node) (any, error) {
	if path := n.Node("path"); path != nil {
		return c.path(path)
	}
	return c.values(n.MustNode("values"))
}

// values encodes a literal.
func (c *compilation) values(n *tree.Node) (any, error) {
	literal := n.ChildNode(0)
	if literal == nil {
		return nil, &tree.ShapeError{Node: n, Path: "<literal>"}
	}
	switch literal.Kind {
	case "string":
		return Object{ObjectKey: "string", "string": unquote(literal.ChildToken(0).Value)}, nil
	case "number":
		tok := literal.ChildToken(0)
		if tok.Kind == "FLOAT" {
			return strconv.ParseFloat(tok.Value, 64)
		}
		return strconv.ParseInt(tok.Value, 10, 64)
	case "boolean":
		return literal.ChildToken(0).Kind == "TRUE", nil
	case "list":
		items := make([]any, 0, literal.Len())
		for _, item := range literal.Children {
			entity, ok := item.(*tree.Node)
			if !ok {
				continue
			}
			value, err := c.entity(entity)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return Object{ObjectKey: "list", "items": items}, nil
	case "path":
		return c.path(literal)
	}
	return nil, &tree.ShapeError{Node: literal, Path: "<literal>"}
}

// path encodes a variable reference. Inline expressions must have been
// hoisted out of every position that allows them.
func (c *compilation) path(n *tree.Node) (any, error) {
	if inline := n.Node("inline_expression"); inline != nil {
		return nil, storyerror.Expect(inline, false, storyerror.InlineExpression)
	}
	paths := make([]string, 0, n.Len())
	for _, item := range n.Children {
		switch child := item.(type) {
		case *tree.Token:
			paths = append(paths, child.Value)
		case *tree.Node:
			tok := child.ChildToken(0)
			if tok == nil {
				continue
			}
			if tok.Kind == "SINGLE_QUOTED" || tok.Kind == "DOUBLE_QUOTED" {
				paths = append(paths, unquote(tok.Value))
				continue
			}
			paths = append(paths, tok.Value)
		}
	}
	return Object{ObjectKey: "path", "paths": paths}, nil
}

// expression encodes an arithmetic expression. A unary expression encodes
// as its single value.
func (c *compilation) expression(n *tree.Node) (any, error) {
	if n.IsUnary() {
		return c.factor(n.MustNode("multiplication.exponential.factor"))
	}
	_, isOperator := n.FindOperator().(*tree.Token)
	if err := storyerror.Expect(n, isOperator, storyerror.UnexpectedToken, "expression"); err != nil {
		return nil, err
	}
	return c.level(n)
}

// level folds one precedence level left to right: a + b + c encodes as
// (a + b) + c.
func (c *compilation) level(n *tree.Node) (any, error) {
	operand := func(item tree.Item) (any, error) {
		node, ok := item.(*tree.Node)
		if !ok {
			return nil, &tree.ShapeError{Node: n, Path: "<operand>"}
		}
		if node.Kind == "factor" {
			return c.factor(node)
		}
		return c.level(node)
	}

	result, err := operand(n.Child(0))
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < n.Len(); i += 2 {
		operator := n.ChildToken(i)
		if operator == nil {
			return nil, &tree.ShapeError{Node: n, Path: "<operator>"}
		}
		rhs, err := operand(n.Child(i + 1))
		if err != nil {
			return nil, err
		}
		result = Object{ObjectKey: "expression", "expression": operators[operator.Kind], "values": []any{result, rhs}}
	}
	return result, nil
}

// factor encodes an operand: an entity or a parenthesised expression.
func (c *compilation) factor(n *tree.Node) (any, error) {
	if expression := n.Node("expression"); expression != nil {
		return c.expression(expression)
	}
	return c.entity(n.MustNode("entity"))
}

// condition encodes the entity of a flow statement, compared with the
// statement's comparison if any.
func (c *compilation) condition(statement *tree.Node) (any, error) {
	lhs, err := c.entity(statement.MustNode("entity"))
	if err != nil {
		return nil, err
	}
	comparison := statement.Node("comparison")
	if comparison == nil {
		return lhs, nil
	}
	rhs, err := c.entity(comparison.MustNode("entity"))
	if err != nil {
		return nil, err
	}
	operator := comparison.ChildToken(0)
	return Object{ObjectKey: "expression", "expression": comparisons[operator.Value], "values": []any{lhs, rhs}}, nil
}

// arguments encodes the arguments of a service call.
func (c *compilation) arguments(fragment *tree.Node) ([]any, error) {
	var args []any
	for _, item := range fragment.Children {
		argument, ok := item.(*tree.Node)
		if !ok || argument.Kind != "arguments" {
			continue
		}
		value, err := c.entity(argument.MustNode("entity"))
		if err != nil {
			return nil, err
		}
		args = append(args, Object{ObjectKey: "argument", "name": argument.ChildToken(0).Value, "argument": value})
	}
	return args, nil
}

// names returns the token values of n's direct children.
func names(n *tree.Node) []string {
	var out []string
	for _, item := range n.Children {
		if tok, ok := item.(*tree.Token); ok {
			out = append(out, tok.Value)
		}
	}
	return out
}
