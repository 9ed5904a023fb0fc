package compiler

import (
	"log/slog"

	"github.com/storyscript/storyc/pkg/tree"
)

// Preprocessor hoists inline expressions out of the statements that use
// them. Each inline service call becomes a synthetic assignment placed
// before its statement, and the call site refers to the assigned variable:
//
//	alpine echo text:(random value)
//
// becomes
//
//	$00000001 = random value
//	alpine echo text:$00000001
type Preprocessor struct {
	gen    *Generator
	logger *slog.Logger
}

// NewPreprocessor creates a preprocessor drawing synthetic lines and names
// from gen. A nil logger discards output.
func NewPreprocessor(gen *Generator, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Preprocessor{gen: gen, logger: logger}
}

// Process rewrites root in place and returns it. Blocks are visited in
// document order. A tree missing a node the rewrite relies on yields a
// *tree.ShapeError, and a build out of synthetic lines ErrTooManyLines.
func (p *Preprocessor) Process(root *tree.Node) (_ *tree.Node, err error) {
	defer recoverLines(&err)
	defer tree.RecoverShape(&err)

	for _, block := range root.Find("block") {
		p.assignments(block)
		p.service(block)
		p.flowStatement("if_statement", block)
		p.flowStatement("elseif_statement", block)
	}
	return root, nil
}

// assignments processes assignments such as
// a = alpine echo text:(random value) or a = (alpine echo message:'text').
func (p *Preprocessor) assignments(block *tree.Node) {
	for _, assignment := range block.FindShallow("assignment") {
		fragment := assignment.MustNode("assignment_fragment")
		if service := fragment.Node("service"); service != nil {
			p.serviceArguments(block, service)
			continue
		}
		factor := fragment.Node("expression.multiplication.exponential.factor")
		if inline := factor.Node("entity.path.inline_expression"); inline != nil {
			p.hoist(block, factor.MustNode("entity"), inline, tree.Line{})
		}
	}
}

// service processes service statements such as
// alpine echo text:(random value).
func (p *Preprocessor) service(block *tree.Node) {
	if service := block.Node("service_block.service"); service != nil {
		p.serviceArguments(block, service)
	}
}

// serviceArguments hoists inline expressions passed as arguments, left to
// right.
func (p *Preprocessor) serviceArguments(block, service *tree.Node) {
	fragment := service.MustNode("service_fragment")
	for _, item := range fragment.Children {
		argument, ok := item.(*tree.Node)
		if !ok || argument.Kind != "arguments" {
			continue
		}
		if inline := argument.Node("entity.path.inline_expression"); inline != nil {
			p.hoist(block, argument.MustNode("entity"), inline, tree.Line{})
		}
	}
}

// flowStatement processes conditions such as if (alpine check), in the
// governing entity and in the comparison.
func (p *Preprocessor) flowStatement(kind string, block *tree.Node) {
	for _, statement := range block.FindShallow(kind) {
		line := statement.Line()
		if entity := statement.Node("entity"); entity.Node("path.inline_expression") != nil {
			p.hoist(block, entity, entity.Node("path.inline_expression"), line)
		}
		if comparison := statement.ChildNode(2); comparison != nil {
			entity := comparison.Node("entity")
			if inline := entity.Node("path.inline_expression"); inline != nil {
				p.hoist(block, entity, inline, line)
			}
		}
	}
}

// hoist moves the service of inline into a synthetic assignment before the
// block's statement and replaces the path of entity with a reference to it.
// Inline expressions nested in the service's arguments are hoisted first.
// The reference is stamped with line, or with the assignment's synthetic
// line when line is the zero value.
func (p *Preprocessor) hoist(block, entity, inline *tree.Node, line tree.Line) {
	service := inline.MustNode("service")
	p.serviceArguments(block, service)

	fake := NewFakeTree(block, p.gen)
	assignment := fake.AddAssignment(service)
	if !line.IsValid() {
		line = assignment.Line()
	}
	entity.Replace(0, fake.Reference(assignment, line))

	p.logger.Debug("hoisted inline expression",
		"name", assignment.Node("path").ExtractPath(),
		"line", assignment.Line().String(),
		"service", service.Node("path").ExtractPath())
}
