// Package compiler rewrites parsed stories and compiles them into the story
// artifact executed by the runtime.
package compiler

import (
	"errors"
	"fmt"

	"github.com/storyscript/storyc/pkg/tree"
)

// NamePrefix starts every synthetic variable name. It cannot start a name in
// story source.
const NamePrefix = "$"

// ErrTooManyLines is returned when one build injects more statements than
// synthetic lines can number.
var ErrTooManyLines = errors.New("too many synthetic lines in one build")

// recoverLines converts an ErrTooManyLines panic into an error stored in
// err. It must be deferred directly; other panics are re-raised.
func recoverLines(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if r == ErrTooManyLines {
		*err = ErrTooManyLines
		return
	}
	panic(r)
}

// Generator hands out synthetic lines and names for one build. Both come
// from counters, so every line and name it returns is unique and lines
// generated for the same reference sort in generation order.
//
// A Generator is not safe for concurrent use; each build owns its own.
type Generator struct {
	lines uint64
	names uint64
}

// NewGenerator creates a generator with fresh counters.
func NewGenerator() *Generator {
	return &Generator{}
}

// Line returns a synthetic line for a statement injected before the one at
// reference. For a real reference it sorts strictly between reference-1 and
// reference. A synthetic reference keeps its base instead, so the result
// sorts after the reference and before the next real line. It panics with
// ErrTooManyLines once a build exhausts tree.MaxSub.
func (g *Generator) Line(reference tree.Line) tree.Line {
	if g.lines >= tree.MaxSub {
		panic(ErrTooManyLines)
	}
	g.lines++
	if reference.IsSynthetic() {
		return tree.Line{Base: reference.Base, Sub: g.lines}
	}
	return tree.Line{Base: reference.Base - 1, Sub: g.lines}
}

// Name returns a synthetic variable name such as "$0000002a".
func (g *Generator) Name() string {
	g.names++
	return fmt.Sprintf("%s%08x", NamePrefix, g.names)
}
