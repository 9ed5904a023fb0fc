package compiler

import (
	"sort"

	"github.com/storyscript/storyc/pkg/tree"
)

// Methods of compiled lines.
const (
	MethodSet        = "set"
	MethodExecute    = "execute"
	MethodCall       = "call"
	MethodExpression = "expression"
	MethodIf         = "if"
	MethodElif       = "elif"
	MethodElse       = "else"
	MethodFor        = "for"
	MethodWhile      = "while"
	MethodFunction   = "function"
	MethodReturn     = "return"
	MethodRaise      = "raise"
	MethodTry        = "try"
	MethodCatch      = "catch"
	MethodFinally    = "finally"
	MethodImport     = "import"
)

// Story is the compiled form of one story.
type Story struct {
	Tree       map[string]*Line  `json:"tree" yaml:"tree"`
	Entrypoint string            `json:"entrypoint,omitempty" yaml:"entrypoint,omitempty"`
	Services   []string          `json:"services" yaml:"services"`
	Modules    map[string]string `json:"modules,omitempty" yaml:"modules,omitempty"`
	Functions  map[string]string `json:"functions,omitempty" yaml:"functions,omitempty"`
	Version    string            `json:"version" yaml:"version"`
}

// Line is one executable statement, keyed in Story.Tree by its Ln.
type Line struct {
	Method   string   `json:"method" yaml:"method"`
	Ln       string   `json:"ln" yaml:"ln"`
	Name     []string `json:"name,omitempty" yaml:"name,omitempty"`
	Service  string   `json:"service,omitempty" yaml:"service,omitempty"`
	Command  string   `json:"command,omitempty" yaml:"command,omitempty"`
	Function string   `json:"function,omitempty" yaml:"function,omitempty"`
	Args     []any    `json:"args,omitempty" yaml:"args,omitempty"`
	Output   []string `json:"output,omitempty" yaml:"output,omitempty"`
	Enter    string   `json:"enter,omitempty" yaml:"enter,omitempty"`
	Exit     string   `json:"exit,omitempty" yaml:"exit,omitempty"`
	Parent   string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Next     string   `json:"next,omitempty" yaml:"next,omitempty"`

	line tree.Line
}

// Lines returns the lines of the story in execution order.
func (s *Story) Lines() []*Line {
	lines := make([]*Line, 0, len(s.Tree))
	for _, line := range s.Tree {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].line.Less(lines[j].line)
	})
	return lines
}
