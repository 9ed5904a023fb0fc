// Package storyerror defines the located diagnostics reported for stories
// and renders them for terminals.
package storyerror

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/storyscript/storyc/pkg/tree"
)

// Error is a syntax or semantic diagnostic located in a story.
type Error struct {
	Code      Code
	Message   string
	Line      int
	Column    int
	EndColumn int

	// Path and Source are attached by Locate once the story is known.
	Path   string
	Source string
}

// New creates a diagnostic, formatting the code's template with args.
func New(code Code, line, column, endColumn int, args ...any) *Error {
	message := code.Template()
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	return &Error{
		Code:      code,
		Message:   message,
		Line:      line,
		Column:    column,
		EndColumn: endColumn,
	}
}

// AtToken creates a diagnostic spanning tok.
func AtToken(code Code, tok *tree.Token, args ...any) *Error {
	return New(code, tok.Line.Base, tok.Column, tok.EndColumn, args...)
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	if e.Code != "" {
		fmt.Fprintf(&sb, "%s: ", e.Code)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Expect is tree.Node.Expect with the diagnostic code attached. A failing
// check is reported at the node's leftmost token.
func Expect(n *tree.Node, cond bool, code Code, args ...any) error {
	err := n.Expect(cond, code.Template())
	if err == nil {
		return nil
	}
	located := fromTree(err.(*tree.Error))
	located.Code = code
	if len(args) > 0 {
		located.Message = fmt.Sprintf(code.Template(), args...)
	}
	return located
}

func fromTree(err *tree.Error) *Error {
	return &Error{
		Message:   err.Message,
		Line:      err.Node.Line().Base,
		Column:    err.Node.Column(),
		EndColumn: err.Node.EndColumn(),
	}
}

// Locate attaches the story path and source text to the diagnostic carried
// by err. Errors that are not diagnostics are returned unchanged.
func Locate(err error, path, source string) error {
	var storyErr *Error
	if errors.As(err, &storyErr) {
		located := *storyErr
		located.Path = path
		located.Source = source
		return &located
	}
	var treeErr *tree.Error
	if errors.As(err, &treeErr) {
		located := fromTree(treeErr)
		located.Path = path
		located.Source = source
		return located
	}
	return err
}

// NotFoundError reports a story or module that does not exist.
type NotFoundError struct {
	Path string
	Dir  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("File %q not found at %s", e.Path, e.Dir)
}

// Unwrap lets errors.Is(err, fs.ErrNotExist) match.
func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}
