// Package dag tracks the imports between the stories of a bundle.
// It supports cycle detection, dependency ordering, and the stories affected
// by a change, which the watch command recompiles.
package dag

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
)

// Node is a story in the graph.
type Node struct {
	// Path is the normalised slash path of the story
	Path string
	// Entry is set for stories requested by the caller, as opposed to
	// stories only reached through an import
	Entry bool
}

// CycleError reports stories that import each other.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "import cycle: " + strings.Join(e.Cycle, " -> ")
}

// Graph is the directed import graph of a bundle. An edge runs from a module
// to each story importing it, so dependencies sort first.
type Graph struct {
	nodes     map[string]*Node
	importers map[string][]string // module -> stories importing it
	modules   map[string][]string // story -> modules it imports
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		importers: make(map[string][]string),
		modules:   make(map[string][]string),
	}
}

// AddStory adds a story to the graph. Adding a story twice keeps it once; a
// story is an entry if any call marked it as one.
func (g *Graph) AddStory(path string, entry bool) *Node {
	if node, exists := g.nodes[path]; exists {
		node.Entry = node.Entry || entry
		return node
	}
	node := &Node{Path: path, Entry: entry}
	g.nodes[path] = node
	g.importers[path] = []string{}
	g.modules[path] = []string{}
	return node
}

// AddImport records that story imports module. Both must have been added.
// A story importing itself is a *CycleError.
func (g *Graph) AddImport(story, module string) error {
	if _, exists := g.nodes[story]; !exists {
		return fmt.Errorf("story %q is not in the graph", story)
	}
	if _, exists := g.nodes[module]; !exists {
		return fmt.Errorf("module %q is not in the graph", module)
	}
	if story == module {
		return &CycleError{Cycle: []string{story, story}}
	}

	if !slices.Contains(g.importers[module], story) {
		g.importers[module] = append(g.importers[module], story)
	}
	if !slices.Contains(g.modules[story], module) {
		g.modules[story] = append(g.modules[story], module)
	}
	return nil
}

// Story returns a story by path.
func (g *Graph) Story(path string) (*Node, bool) {
	node, exists := g.nodes[path]
	return node, exists
}

// Modules returns the modules a story imports, in import order.
func (g *Graph) Modules(path string) []string {
	return g.modules[path]
}

// Importers returns the stories importing a module.
func (g *Graph) Importers(path string) []string {
	return g.importers[path]
}

// Stories returns all stories sorted by path.
func (g *Graph) Stories() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Path < nodes[j].Path
	})
	return nodes
}

// Len returns the number of stories in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// ImportCount returns the number of import edges.
func (g *Graph) ImportCount() int {
	count := 0
	for _, importers := range g.importers {
		count += len(importers)
	}
	return count
}

func (g *Graph) paths() []string {
	paths := make([]string, 0, len(g.nodes))
	for path := range g.nodes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Cycle returns the first import cycle found, as a path that starts and ends
// on the same story, or nil.
func (g *Graph) Cycle() []string {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string

	var dfs func(path string) bool
	dfs = func(path string) bool {
		visited[path] = true
		stack[path] = true

		for _, module := range g.modules[path] {
			if !visited[module] {
				from[module] = path
				if dfs(module) {
					return true
				}
			} else if stack[module] {
				cycle = []string{module}
				for curr := path; curr != module; curr = from[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{module}, cycle...)
				return true
			}
		}

		stack[path] = false
		return false
	}

	for _, path := range g.paths() {
		if !visited[path] && dfs(path) {
			return cycle
		}
	}
	return nil
}

// TopologicalSort returns stories with every module before the stories
// importing it. It returns a *CycleError if stories import each other.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if cycle := g.Cycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(path string)
	visit = func(path string) {
		if visited[path] {
			return
		}
		visited[path] = true
		for _, module := range g.modules[path] {
			visit(module)
		}
		result = append(result, g.nodes[path])
	}

	for _, path := range g.paths() {
		visit(path)
	}
	return result, nil
}

// Levels groups stories by import depth. Level 0 holds stories importing
// nothing; a story sits one level above its deepest module.
func (g *Graph) Levels() ([][]string, error) {
	if cycle := g.Cycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}

	assigned := make(map[string]int)

	var level func(path string) int
	level = func(path string) int {
		if l, ok := assigned[path]; ok {
			return l
		}
		deepest := -1
		for _, module := range g.modules[path] {
			deepest = max(deepest, level(module))
		}
		assigned[path] = deepest + 1
		return deepest + 1
	}

	top := -1
	for path := range g.nodes {
		top = max(top, level(path))
	}

	levels := make([][]string, top+1)
	for path, l := range assigned {
		levels[l] = append(levels[l], path)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Affected returns the changed stories and every story importing them,
// directly or transitively. Unknown paths are ignored.
func (g *Graph) Affected(changed []string) []string {
	affected := make(map[string]bool)

	var mark func(path string)
	mark = func(path string) {
		if affected[path] {
			return
		}
		affected[path] = true
		for _, importer := range g.importers[path] {
			mark(importer)
		}
	}

	for _, path := range changed {
		if _, exists := g.nodes[path]; exists {
			mark(path)
		}
	}
	return sortedKeys(affected)
}

// Upstream returns every module a story depends on, directly or
// transitively.
func (g *Graph) Upstream(path string) []string {
	upstream := make(map[string]bool)

	var mark func(path string)
	mark = func(path string) {
		for _, module := range g.modules[path] {
			if !upstream[module] {
				upstream[module] = true
				mark(module)
			}
		}
	}

	mark(path)
	return sortedKeys(upstream)
}

// Entries returns the requested stories.
func (g *Graph) Entries() []string {
	var entries []string
	for path, node := range g.nodes {
		if node.Entry {
			entries = append(entries, path)
		}
	}
	sort.Strings(entries)
	return entries
}

// Leaves returns the stories importing nothing.
func (g *Graph) Leaves() []string {
	var leaves []string
	for path := range g.nodes {
		if len(g.modules[path]) == 0 {
			leaves = append(leaves, path)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// WriteDot writes the graph in Graphviz dot syntax, one edge per import.
func (g *Graph) WriteDot(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("digraph stories {\n")
	for _, path := range g.paths() {
		shape := "ellipse"
		if g.nodes[path].Entry {
			shape = "box"
		}
		fmt.Fprintf(&sb, "  %q [shape=%s];\n", path, shape)
	}
	for _, path := range g.paths() {
		for _, module := range g.modules[path] {
			fmt.Fprintf(&sb, "  %q -> %q;\n", path, module)
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func sortedKeys(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for key := range set {
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}
