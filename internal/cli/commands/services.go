package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/cli/output"
)

// NewServicesCommand creates the services command.
func NewServicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "services [path]",
		Short: "List the services the stories use",
		Long: `Compile the stories at path with their modules and list the services
they use, once each.`,
		Example: `  # List the services of a project
  storyscript services

  # List them as JSON
  storyscript services --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServices(cmd, storyPath(args))
		},
	}
}

func runServices(cmd *cobra.Command, p string) error {
	cmdCtx := NewCommandContext(cmd)
	build, err := cmdCtx.Build(cmd.Context(), p)
	if err != nil {
		return err
	}
	result, err := build.Bundle(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		return r.Encode(result.Services)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Services"))
		r.Println("")
		for _, service := range result.Services {
			r.Printf("- %s\n", service)
		}
	default:
		for _, service := range result.Services {
			r.Println(service)
		}
		r.Muted(fmt.Sprintf("%d services in %d stories", len(result.Services), len(result.Stories)))
	}
	return nil
}
