package parser

import (
	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// describe renders a token for an unexpected token diagnostic.
func describe(tok *tree.Token) string {
	switch tok.Kind {
	case KindEOF:
		return "end of file"
	case KindNewline:
		return "end of line"
	case KindIndent:
		return "indentation"
	case KindDedent:
		return "dedent"
	}
	return "`" + tok.Value + "`"
}

// span creates a diagnostic covering the tokens of a subtree.
func span(code storyerror.Code, n *tree.Node, args ...any) *storyerror.Error {
	err := storyerror.New(code, n.Line().Base, n.Column(), n.EndColumn(), args...)
	if last := rightmost(n); last != nil && last.Line == n.Line() {
		err.EndColumn = last.EndColumn
	}
	return err
}

// rightmost returns the last token of a subtree.
func rightmost(n *tree.Node) *tree.Token {
	for i := n.Len() - 1; i >= 0; i-- {
		switch child := n.Child(i).(type) {
		case *tree.Token:
			return child
		case *tree.Node:
			if tok := rightmost(child); tok != nil {
				return tok
			}
		}
	}
	return nil
}
