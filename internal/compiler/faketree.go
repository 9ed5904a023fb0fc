package compiler

import (
	"github.com/storyscript/storyc/pkg/tree"
)

// FakeTree builds statements that are not in the story source and inserts
// them into a block, before the block's statement.
type FakeTree struct {
	block *tree.Node
	gen   *Generator
}

// NewFakeTree creates a fake tree for block. The block's last child is the
// statement new assignments are placed before.
func NewFakeTree(block *tree.Node, gen *Generator) *FakeTree {
	return &FakeTree{block: block, gen: gen}
}

// statement returns the statement of the block.
func (f *FakeTree) statement() *tree.Node {
	return f.block.ChildNode(f.block.Len() - 1)
}

// AddAssignment builds "$name = service" on a synthetic line derived from
// the statement, inserts it immediately before the statement and returns
// the assignment node.
func (f *FakeTree) AddAssignment(service *tree.Node) *tree.Node {
	statement := f.statement()
	if statement == nil {
		panic(&tree.ShapeError{Node: f.block, Path: "<statement>"})
	}
	line := f.gen.Line(statement.Line())

	// The synthetic tokens point at the hoisted call in the source.
	column, end := service.Column(), service.EndColumn()
	name := &tree.Token{Kind: "NAME", Value: f.gen.Name(), Line: line, Column: column, EndColumn: end}
	equals := &tree.Token{Kind: "EQUALS", Value: "=", Line: line, Column: column, EndColumn: end}

	assignment := tree.New("assignment",
		tree.New("path", name),
		tree.New("assignment_fragment", equals, service),
	)

	last := len(f.block.Children) - 1
	children := make([]tree.Item, 0, len(f.block.Children)+1)
	children = append(children, f.block.Children[:last]...)
	children = append(children, tree.New("rules", assignment), f.block.Children[last])
	f.block.Children = children
	return assignment
}

// Reference returns a new path node referring to the target of assignment,
// stamped with line. The target token is copied, never shared.
func (f *FakeTree) Reference(assignment *tree.Node, line tree.Line) *tree.Node {
	target := *assignment.MustNode("path").ChildToken(0)
	target.Line = line
	return tree.New("path", &target)
}
