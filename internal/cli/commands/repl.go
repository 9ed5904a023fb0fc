package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/internal/compiler"
	"github.com/storyscript/storyc/pkg/parser"
	"github.com/storyscript/storyc/pkg/storyerror"
)

const (
	replPrompt         = "story> "
	replContinuePrompt = "  ...> "
	replStory          = "<repl>"
)

// blockKeywords start statements that continue on indented lines.
var blockKeywords = []string{"if", "foreach", "while", "function", "try"}

// lineReader reads REPL input.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Compile statements interactively",
		Long: `Start an interactive session that compiles each statement as a story
and prints the result.

Statements opening a block (if, foreach, while, function, try) continue
until an empty line. Synthetic names keep counting across the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

func runREPL(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	var historyFile string
	if cmdCtx.Cfg.StatePath != "" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Printf("Storyscript REPL (compiler %s)\n", Version)
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	return newSession(cmdCtx).run(rl)
}

// session compiles statements with one generator, so synthetic names stay
// unique across inputs.
type session struct {
	r        *output.Renderer
	color    bool
	pre      *compiler.Preprocessor
	compiler *compiler.Compiler
	showTree bool
}

func newSession(cmdCtx *CommandContext) *session {
	gen := compiler.NewGenerator()
	return &session{
		r:        cmdCtx.Renderer,
		color:    useColor(cmdCtx.Cfg.Color, cmdCtx.Renderer.ErrWriter()),
		pre:      compiler.NewPreprocessor(gen, cmdCtx.Logger),
		compiler: compiler.New(compiler.Config{Version: Version, Logger: cmdCtx.Logger}),
	}
}

func (s *session) run(rl lineReader) error {
	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			if buffer.Len() > 0 {
				s.evaluate(buffer.String())
			}
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case buffer.Len() > 0 && trimmed == "":
			s.evaluate(buffer.String())
			buffer.Reset()
			rl.SetPrompt(replPrompt)
		case buffer.Len() > 0:
			buffer.WriteString(line + "\n")
		case trimmed == "":
		case strings.HasPrefix(trimmed, "."):
			if quit := s.command(trimmed); quit {
				return nil
			}
		case opensBlock(trimmed):
			buffer.WriteString(line + "\n")
			rl.SetPrompt(replContinuePrompt)
		default:
			s.evaluate(line + "\n")
		}
	}
}

// command runs a dot-command and reports whether the session ends.
func (s *session) command(line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(s.r.Writer())
	case ".tree":
		s.showTree = !s.showTree
		if s.showTree {
			s.r.Muted("tree output on")
		} else {
			s.r.Muted("tree output off")
		}
	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", line))
	}
	return false
}

// evaluate compiles source and prints the story, or the error.
func (s *session) evaluate(source string) {
	story, err := s.compile(source)
	if err != nil {
		ReportError(s.r.ErrWriter(), err, s.color)
		return
	}
	if err := s.r.Encode(story); err != nil {
		s.r.Error(err.Error())
	}
}

func (s *session) compile(source string) (*compiler.Story, error) {
	root, err := parser.Parse(source)
	if err != nil {
		return nil, storyerror.Locate(err, replStory, source)
	}
	if root, err = s.pre.Process(root); err != nil {
		return nil, err
	}
	if s.showTree {
		s.r.Printf("%s", root.Pretty())
	}
	story, err := s.compiler.Compile(root)
	if err != nil {
		return nil, storyerror.Locate(err, replStory, source)
	}
	return story, nil
}

func opensBlock(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && slices.Contains(blockKeywords, fields[0])
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tree           Toggle printing the preprocessed tree
  .quit / .exit   Exit the REPL

Tips:
  - Blocks (if, foreach, while, function, try) end with an empty line
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter creates a readline completer for dot-commands and
// keywords.
func newREPLCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".tree"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	for _, keyword := range blockKeywords {
		items = append(items, readline.PcItem(keyword))
	}
	return readline.NewPrefixCompleter(items...)
}
