// Package cli provides the command-line interface for the storyscript
// compiler.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/cli/commands"
	"github.com/storyscript/storyc/internal/cli/config"
	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/pkg/storyerror"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "storyscript",
		Short: "Storyscript - story compiler",
		Long: `storyscript compiles stories, programs wiring services together, into
the JSON trees the runtime executes.

Stories are discovered below a directory, their imports resolved, inline
service calls hoisted into their own statements, and the result bundled
with the services it uses.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration with CLI flags
			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			// Store logger in context
			logger := config.NewLogger(cfg, cmd.ErrOrStderr())
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, config.LoggerKey(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Storyscript compiler built with Go
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: storyscript.yaml, searched upward)")
	flags.String("extension", "", "Extension of story files (default .story)")
	flags.StringSlice("ignore", nil, "Directories or stories to skip")
	flags.Bool("git-ignores", true, "Skip files ignored by git")
	flags.String("state", "", "Path to the build history database")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json|yaml)")
	flags.Int("indent", 0, "Indentation of JSON and YAML output")
	flags.String("color", "", "Colour diagnostics (auto|always|never)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Verbose output")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("color", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{storyerror.ColorAuto, storyerror.ColorAlways, storyerror.ColorNever}, cobra.ShellCompDirectiveNoFileComp
	})

	commands.Version = Version

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewBundleCommand())
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewLexCommand())
	rootCmd.AddCommand(commands.NewServicesCommand())
	rootCmd.AddCommand(commands.NewGraphCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewBuildsCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		mode := storyerror.ColorAuto
		if cfg := config.GetCurrentConfig(); cfg != nil {
			mode = cfg.Color
		}
		commands.ReportError(os.Stderr, err, storyerror.UseColor(mode, os.Stderr))
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for storyscript.

To load completions:

Bash:
  $ source <(storyscript completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ storyscript completion bash > /etc/bash_completion.d/storyscript
  # macOS:
  $ storyscript completion bash > $(brew --prefix)/etc/bash_completion.d/storyscript

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ storyscript completion zsh > "${fpath[1]}/_storyscript"

Fish:
  $ storyscript completion fish | source

PowerShell:
  PS> storyscript completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell: %s", args[0])
		},
	}
	return cmd
}
