package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/internal/dag"
)

// GraphOutput is the structured form of the import graph.
type GraphOutput struct {
	Entries      []string     `json:"entries" yaml:"entries"`
	Levels       []GraphLevel `json:"levels" yaml:"levels"`
	TotalStories int          `json:"total_stories" yaml:"total_stories"`
	TotalImports int          `json:"total_imports" yaml:"total_imports"`
}

// GraphLevel holds the stories of one import depth.
type GraphLevel struct {
	Level   int         `json:"level" yaml:"level"`
	Stories []GraphNode `json:"stories" yaml:"stories"`
}

// GraphNode is a story with its imports.
type GraphNode struct {
	Path       string   `json:"path" yaml:"path"`
	Entry      bool     `json:"entry" yaml:"entry"`
	Imports    []string `json:"imports" yaml:"imports"`
	ImportedBy []string `json:"imported_by" yaml:"imported_by"`
}

// DependencyOutput lists every module a story depends on.
type DependencyOutput struct {
	Story        string   `json:"story" yaml:"story"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var dot bool
	var deps string

	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Show the import graph",
		Long: `Display the import graph of the stories at path.

Stories are grouped by import depth: level 0 holds the stories importing
nothing and every other story sits one level above its deepest module.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph
  storyscript graph

  # Render it with Graphviz
  storyscript graph --dot | dot -Tsvg > stories.svg

  # List everything main.story depends on
  storyscript graph --deps main.story

  # Output as JSON
  storyscript graph --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, storyPath(args), dot, deps)
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "Write Graphviz dot syntax")
	cmd.Flags().StringVar(&deps, "deps", "", "List the modules a story depends on, directly or transitively")
	return cmd
}

func runGraph(cmd *cobra.Command, p string, dot bool, deps string) error {
	cmdCtx := NewCommandContext(cmd)
	build, err := cmdCtx.Build(cmd.Context(), p)
	if err != nil {
		return err
	}
	if _, err := build.BundleTrees(cmd.Context()); err != nil {
		return err
	}

	graph := build.Graph()
	r := cmdCtx.Renderer
	if dot {
		return graph.WriteDot(r.Writer())
	}
	if deps != "" {
		return dependencies(r, graph, deps)
	}

	levels, err := graph.Levels()
	if err != nil {
		return fmt.Errorf("failed to get import levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return r.Encode(graphOutput(graph, levels))
	case output.ModeMarkdown:
		return graphMarkdown(r, graph, levels)
	default:
		return graphText(r, graph, levels)
	}
}

// graphText outputs the graph in styled text format.
func graphText(r *output.Renderer, graph *dag.Graph, levels [][]string) error {
	styles := r.Styles()

	r.Header(1, "Import Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, story := range level {
			r.Printf("  %s\n", styles.StoryPath.Render(story))
			if modules := graph.Modules(story); len(modules) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("imports:"), strings.Join(modules, ", "))
			}
			if importers := graph.Importers(story); len(importers) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("imported by:"), strings.Join(importers, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d stories, %d imports", graph.Len(), graph.ImportCount())))
	return nil
}

// graphMarkdown outputs the graph in markdown format.
func graphMarkdown(r *output.Renderer, graph *dag.Graph, levels [][]string) error {
	r.Println(output.FormatHeader(1, "Import Graph"))
	r.Println("")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Leaves)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, story := range level {
			r.Printf("- %s\n", story)
			if modules := graph.Modules(story); len(modules) > 0 {
				r.Printf("  - imports: %s\n", strings.Join(modules, ", "))
			}
			if importers := graph.Importers(story); len(importers) > 0 {
				r.Printf("  - imported by: %s\n", strings.Join(importers, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Stories", fmt.Sprintf("%d", graph.Len())))
	r.Println(output.FormatKeyValue("Total Imports", fmt.Sprintf("%d", graph.ImportCount())))
	return nil
}

// dependencies outputs the upstream modules of story.
func dependencies(r *output.Renderer, graph *dag.Graph, story string) error {
	story = strings.TrimPrefix(filepath.ToSlash(filepath.Clean(story)), "./")
	if _, ok := graph.Story(story); !ok {
		return fmt.Errorf("story %s is not in the import graph", story)
	}
	upstream := graph.Upstream(story)

	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return r.Encode(DependencyOutput{Story: story, Dependencies: upstream})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Dependencies of "+story))
		r.Println("")
		for _, module := range upstream {
			r.Printf("- %s\n", module)
		}
	default:
		for _, module := range upstream {
			r.Println(r.Styles().StoryPath.Render(module))
		}
		r.Muted(fmt.Sprintf("%d dependencies", len(upstream)))
	}
	return nil
}

func graphOutput(graph *dag.Graph, levels [][]string) GraphOutput {
	out := GraphOutput{
		Entries:      graph.Entries(),
		Levels:       make([]GraphLevel, 0, len(levels)),
		TotalStories: graph.Len(),
		TotalImports: graph.ImportCount(),
	}
	for i, level := range levels {
		graphLevel := GraphLevel{Level: i, Stories: make([]GraphNode, 0, len(level))}
		for _, story := range level {
			node, _ := graph.Story(story)
			graphLevel.Stories = append(graphLevel.Stories, GraphNode{
				Path:       story,
				Entry:      node != nil && node.Entry,
				Imports:    graph.Modules(story),
				ImportedBy: graph.Importers(story),
			})
		}
		out.Levels = append(out.Levels, graphLevel)
	}
	return out
}
