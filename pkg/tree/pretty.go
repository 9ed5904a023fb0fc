package tree

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pretty renders the subtree with one item per line, children indented by
// two spaces and tokens shown as KIND "value" @line:column.
func (n *Node) Pretty() string {
	var sb strings.Builder
	n.pretty(&sb, 0)
	return sb.String()
}

func (n *Node) pretty(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	sb.WriteString(n.Kind)
	sb.WriteString("\n")
	for _, item := range n.Children {
		switch child := item.(type) {
		case *Node:
			child.pretty(sb, depth+1)
		case *Token:
			fmt.Fprintf(sb, "%s  %s %q @%s:%d\n", indent, child.Kind, child.Value, child.Line, child.Column)
		}
	}
}

type encodedToken struct {
	Kind      string `json:"kind" yaml:"kind"`
	Value     string `json:"value" yaml:"value"`
	Line      string `json:"line" yaml:"line"`
	Column    int    `json:"column" yaml:"column"`
	EndColumn int    `json:"end_column" yaml:"end_column"`
}

type encodedNode struct {
	Kind     string `json:"kind" yaml:"kind"`
	Children []Item `json:"children" yaml:"children"`
}

func (t *Token) encoded() encodedToken {
	return encodedToken{
		Kind:      t.Kind,
		Value:     t.Value,
		Line:      t.Line.String(),
		Column:    t.Column,
		EndColumn: t.EndColumn,
	}
}

func (n *Node) encoded() encodedNode {
	children := n.Children
	if children == nil {
		children = []Item{}
	}
	return encodedNode{n.Kind, children}
}

// MarshalJSON encodes the token with its line in String form.
func (t *Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.encoded())
}

// MarshalYAML encodes the token like MarshalJSON.
func (t *Token) MarshalYAML() (any, error) {
	return t.encoded(), nil
}

// MarshalJSON encodes the node as {"kind": ..., "children": [...]}.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.encoded())
}

// MarshalYAML encodes the node like MarshalJSON.
func (n *Node) MarshalYAML() (any, error) {
	return n.encoded(), nil
}
