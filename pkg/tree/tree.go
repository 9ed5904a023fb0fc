// Package tree provides the generic syntax tree shared by every compiler pass.
//
// A story is parsed into Nodes, identified by their Kind (the grammar rule
// that produced them), whose children are other Nodes or Tokens. Passes query
// the tree by position (Child), by a dotted path of kinds (Node), or by a full
// search (Find), and rewrite it in place with Insert, Replace and Rename.
//
// # Paths
//
// Node("a.b") is not a search: each segment is matched against the direct
// children of the current node only, and the first child of that kind is
// taken. If any hop fails the whole lookup returns nil. Passes rely on this to
// fail fast when the grammar shape is not exactly the expected one; use Find
// for a recursive search.
package tree

import (
	"strings"
)

// Item is a child of a Node: either a *Node or a *Token.
type Item interface {
	isItem()
}

// Token is a terminal of the tree.
type Token struct {
	Kind      string
	Value     string
	Line      Line
	Column    int // 1-based
	EndColumn int // 1-based, exclusive
}

func (*Token) isItem() {}

// Node is a non-terminal of the tree. A node owns its children exclusively.
type Node struct {
	Kind     string
	Children []Item
}

func (*Node) isItem() {}

// New creates a node of the given kind.
func New(kind string, children ...Item) *Node {
	return &Node{Kind: kind, Children: children}
}

// NewToken creates a token on a real line.
func NewToken(kind, value string, line, column int) *Token {
	return &Token{
		Kind:      kind,
		Value:     value,
		Line:      NewLine(line),
		Column:    column,
		EndColumn: column + len(value),
	}
}

// Child returns the child at index, or nil when out of range.
func (n *Node) Child(index int) Item {
	if n == nil || index < 0 || index >= len(n.Children) {
		return nil
	}
	return n.Children[index]
}

// ChildNode returns the child at index if it is a node.
func (n *Node) ChildNode(index int) *Node {
	node, _ := n.Child(index).(*Node)
	return node
}

// ChildToken returns the child at index if it is a token.
func (n *Node) ChildToken(index int) *Token {
	tok, _ := n.Child(index).(*Token)
	return tok
}

// Len returns the number of children.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// walk returns the first direct child node of the given kind.
func (n *Node) walk(kind string) *Node {
	for _, item := range n.Children {
		if child, ok := item.(*Node); ok && child.Kind == kind {
			return child
		}
	}
	return nil
}

// Node finds a direct child, or a nested child, by a dot separated path of
// kinds. See the package documentation for the lookup rules.
func (n *Node) Node(path string) *Node {
	current := n
	for _, shard := range strings.Split(path, ".") {
		if current == nil {
			return nil
		}
		current = current.walk(shard)
	}
	return current
}

// MustNode is like Node but panics with a *ShapeError when the path does not
// resolve. Passes that recover ShapeError turn it into a returned error.
func (n *Node) MustNode(path string) *Node {
	found := n.Node(path)
	if found == nil {
		panic(&ShapeError{Node: n, Path: path})
	}
	return found
}

// Find returns every node of the given kind in the subtree, the receiver
// included, in document order.
func (n *Node) Find(kind string) []*Node {
	var found []*Node
	n.find(kind, false, &found)
	return found
}

// FindShallow is like Find but does not descend into nested "block" nodes.
// The receiver itself may be a block.
func (n *Node) FindShallow(kind string) []*Node {
	var found []*Node
	n.find(kind, true, &found)
	return found
}

func (n *Node) find(kind string, shallow bool, found *[]*Node) {
	if n == nil {
		return
	}
	if n.Kind == kind {
		*found = append(*found, n)
	}
	for _, item := range n.Children {
		child, ok := item.(*Node)
		if !ok {
			continue
		}
		if shallow && child.Kind == "block" {
			continue
		}
		child.find(kind, shallow, found)
	}
}

// Leftmost returns the first token reached by always descending into the
// first child, or nil if that chain ends on an empty node.
func (n *Node) Leftmost() *Token {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	switch child := n.Children[0].(type) {
	case *Token:
		return child
	case *Node:
		return child.Leftmost()
	}
	return nil
}

// Line returns the line of the leftmost token.
func (n *Node) Line() Line {
	if tok := n.Leftmost(); tok != nil {
		return tok.Line
	}
	return Line{}
}

// Column returns the column of the leftmost token.
func (n *Node) Column() int {
	if tok := n.Leftmost(); tok != nil {
		return tok.Column
	}
	return 0
}

// EndColumn returns the end column of the leftmost token.
func (n *Node) EndColumn() int {
	if tok := n.Leftmost(); tok != nil {
		return tok.EndColumn
	}
	return 0
}

// Insert prepends an item to the children.
func (n *Node) Insert(item Item) {
	n.Children = append([]Item{item}, n.Children...)
}

// Replace replaces the child at index. It panics if index is out of range.
func (n *Node) Replace(index int, item Item) {
	n.Children[index] = item
}

// Rename changes the kind of the node.
func (n *Node) Rename(kind string) {
	n.Kind = kind
}

// ExtractPath serialises a path node into its dotted name: tokens
// contribute their text and nested fragments contribute a further segment.
func (n *Node) ExtractPath() string {
	var sb strings.Builder
	for _, item := range n.Children {
		switch child := item.(type) {
		case *Token:
			sb.WriteString(child.Value)
		case *Node:
			sb.WriteString(".")
			if tok := child.ChildToken(0); tok != nil {
				sb.WriteString(tok.Value)
			}
		}
	}
	return sb.String()
}

// IsUnary reports whether an expression node is a single value with no
// operator at any of its three precedence levels.
func (n *Node) IsUnary() bool {
	if n == nil || n.Kind != "expression" || n.Len() != 1 {
		return false
	}
	multiplication := n.ChildNode(0)
	if multiplication.Len() != 1 {
		return false
	}
	return multiplication.ChildNode(0).Len() == 1
}

// FindOperator returns the operator of a simple two operand expression. The
// operator sits at a different depth depending on its precedence. When no
// operator is found the first child of the innermost factor is returned.
func (n *Node) FindOperator() Item {
	if tok := n.ChildToken(1); tok != nil {
		return tok
	}
	multiplication := n.Node("multiplication")
	if n.Child(0) != nil {
		if tok := multiplication.ChildToken(1); tok != nil {
			return tok
		}
		if exponential := multiplication.Node("exponential"); exponential != nil {
			if tok := exponential.ChildToken(1); tok != nil {
				return tok
			}
		}
	}
	return multiplication.Node("exponential.factor").Child(0)
}

// Expect returns a located *Error with message when cond is false.
func (n *Node) Expect(cond bool, message string) error {
	if cond {
		return nil
	}
	return &Error{Node: n, Message: message}
}
