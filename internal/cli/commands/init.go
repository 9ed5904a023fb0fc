package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/bundle"
	"github.com/storyscript/storyc/internal/cli/config"
	"github.com/storyscript/storyc/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Storyscript project",
		Long: `Initialize a new Storyscript project with a configuration file and a first story.

This creates:
  - storyscript.yaml configuration file
  - main.story
  - .gitignore excluding the build history

Use --example to create a project whose main story imports modules from lib/
and records its builds.`,
		Example: `  # Initialize in current directory
  storyscript init

  # Initialize with a full working example
  storyscript init --example

  # Initialize in a new directory
  storyscript init my-project --example

  # Force overwrite existing config
  storyscript init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := NewCommandContext(cmd).Renderer
			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example project with modules")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.DefaultConfigName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.DefaultConfigName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, err := listTemplateFiles(template)
	if err != nil {
		return err
	}
	groups := groupTemplateFiles(files, bundle.DefaultExtension)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.Success(f)
	}
	r.Println("")
	r.Header(2, "Stories")
	for _, f := range groups["stories"] {
		r.Success(f)
	}

	r.Println("")
	r.Success("Storyscript project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  storyscript check     Compile every story")
	r.Println("  storyscript bundle    Print the compiled bundle")
	r.Println("  storyscript graph     Show the import graph")
	r.Println("  storyscript watch     Recompile on every change")
	return nil
}
