package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storyscript/storyc/pkg/tree"
)

func TestGenerator_Line(t *testing.T) {
	gen := NewGenerator()

	first := gen.Line(tree.NewLine(3))
	second := gen.Line(tree.NewLine(3))

	assert.Equal(t, tree.Line{Base: 2, Sub: 1}, first)
	assert.Equal(t, tree.Line{Base: 2, Sub: 2}, second)

	for _, line := range []tree.Line{first, second} {
		assert.True(t, line.IsSynthetic())
		assert.True(t, tree.NewLine(2).Less(line), "%s after line 2", line)
		assert.True(t, line.Less(tree.NewLine(3)), "%s before line 3", line)
	}
	assert.True(t, first.Less(second))
}

func TestGenerator_LineFromSynthetic(t *testing.T) {
	gen := NewGenerator()
	reference := gen.Line(tree.NewLine(3))

	derived := gen.Line(reference)

	assert.Equal(t, tree.Line{Base: 2, Sub: 2}, derived)
	assert.True(t, reference.Less(derived), "%s after its reference", derived)
	assert.True(t, derived.Less(tree.NewLine(3)), "%s before line 3", derived)
}

func TestGenerator_LineLimit(t *testing.T) {
	gen := &Generator{lines: tree.MaxSub - 1}

	last := gen.Line(tree.NewLine(3))
	assert.Equal(t, "2.99999999", last.String())
	assert.PanicsWithValue(t, ErrTooManyLines, func() { gen.Line(tree.NewLine(3)) })
}

func TestGenerator_FirstLine(t *testing.T) {
	line := NewGenerator().Line(tree.NewLine(1))
	assert.Equal(t, "0.00000001", line.String())
	assert.True(t, line.Less(tree.NewLine(1)))
}

func TestGenerator_Name(t *testing.T) {
	gen := NewGenerator()

	assert.Equal(t, "$00000001", gen.Name())
	gen.Line(tree.NewLine(5))
	assert.Equal(t, "$00000002", gen.Name())

	seen := map[string]bool{}
	for range 40 {
		name := gen.Name()
		assert.False(t, seen[name], "duplicate %s", name)
		seen[name] = true
	}
	assert.Equal(t, "$0000002b", gen.Name())
}
