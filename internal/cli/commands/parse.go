package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/pkg/parser"
	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "parse [path]",
		Short: "Print the tree of each story",
		Long: `Parse the stories at path and print their trees.

Trees are printed after preprocessing, so inline expressions appear as the
synthetic assignments they were hoisted into. Use --raw for the trees as
parsed.`,
		Example: `  # Show the preprocessed tree of a story
  storyscript parse app/main.story

  # Show the tree as parsed, as JSON
  storyscript parse app/main.story --raw --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, storyPath(args), raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Skip preprocessing")
	return cmd
}

func runParse(cmd *cobra.Command, p string, raw bool) error {
	cmdCtx := NewCommandContext(cmd)
	build, err := cmdCtx.Build(cmd.Context(), p)
	if err != nil {
		return err
	}

	var trees map[string]*tree.Node
	if raw {
		trees = make(map[string]*tree.Node)
		for _, story := range build.FindStories() {
			source, err := build.LoadStory(story)
			if err != nil {
				return err
			}
			root, err := parser.Parse(source)
			if err != nil {
				return storyerror.Locate(err, story, source)
			}
			trees[story] = root
		}
	} else if trees, err = build.BundleTrees(cmd.Context()); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsStructured() {
		return r.Encode(trees)
	}
	for _, story := range sortedPaths(trees) {
		printBlock(r, story, trees[story].Pretty())
	}
	return nil
}

// NewLexCommand creates the lex command.
func NewLexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lex [path]",
		Short: "Print the tokens of each story",
		Long:  `Split the stories at path into tokens and print them with their positions.`,
		Example: `  # Show the tokens of a story
  storyscript lex app/main.story`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLex(cmd, storyPath(args))
		},
	}
}

func runLex(cmd *cobra.Command, p string) error {
	cmdCtx := NewCommandContext(cmd)
	build, err := cmdCtx.Build(cmd.Context(), p)
	if err != nil {
		return err
	}
	tokens, err := build.Lex()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsStructured() {
		return r.Encode(tokens)
	}
	for _, story := range sortedPaths(tokens) {
		var listing strings.Builder
		for _, tok := range tokens[story] {
			fmt.Fprintf(&listing, "%s:%d %s %q\n", tok.Line, tok.Column, tok.Kind, tok.Value)
		}
		printBlock(r, story, listing.String())
	}
	return nil
}

// printBlock prints text under a header naming the story.
func printBlock(r *output.Renderer, story, text string) {
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(2, story))
		r.Println("")
		r.Println("```text")
		r.Printf("%s", text)
		r.Println("```")
		r.Println("")
		return
	}
	r.Println(r.Styles().StoryPath.Render(story))
	r.Printf("%s", text)
	r.Println("")
}

func sortedPaths[V any](m map[string]V) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
