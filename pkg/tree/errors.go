package tree

import "fmt"

// Error is a compiler diagnostic raised by Expect. It carries the offending
// node so that callers can report its position.
type Error struct {
	Node    *Node
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("compiler error at line %s, column %d: %s", e.Node.Line(), e.Node.Column(), e.Message)
}

// ShapeError reports a tree that does not have the shape a pass expects.
// It signals a defect in an upstream pass, not in the story.
type ShapeError struct {
	Node *Node
	Path string
}

func (e *ShapeError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("malformed tree: missing %q", e.Path)
	}
	return fmt.Sprintf("malformed tree: %s at line %s has no %q", e.Node.Kind, e.Node.Line(), e.Path)
}

// RecoverShape converts a *ShapeError panic into an error stored in err.
// It must be deferred directly; other panics are re-raised.
func RecoverShape(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if shape, ok := r.(*ShapeError); ok {
		*err = shape
		return
	}
	panic(r)
}
