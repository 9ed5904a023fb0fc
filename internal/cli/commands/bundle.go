package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/bundle"
	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/internal/state"
)

// NewBundleCommand creates the bundle command.
func NewBundleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle [path]",
		Short: "Compile stories and the modules they import",
		Long: `Compile the stories at path, a story file or a directory, together with
every module they import, and print the bundle.

The bundle holds the compiled stories by path, the services they use and
the requested stories. It is written as JSON unless --output yaml is given.

When state_path is configured, each run is recorded in the build history
together with the content hash of every story.`,
		Example: `  # Bundle every story below the working directory
  storyscript bundle

  # Bundle one story as YAML
  storyscript bundle app/main.story --output yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd, storyPath(args))
		},
	}
}

func runBundle(cmd *cobra.Command, p string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	build, err := cmdCtx.Build(ctx, p)
	if err != nil {
		return err
	}

	store, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	var history state.Store
	if store != nil {
		defer func() { _ = store.Close() }()
		history = store
	}

	result, err := record(ctx, history, build, cmdCtx.Logger)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() != output.ModeYAML {
		r = output.NewRendererWithTTY(r.Writer(), r.ErrWriter(), r.IsTTY(), output.ModeJSON)
		r.SetIndent(cmdCtx.Cfg.Indent)
	}
	return r.Encode(result)
}

// record bundles build, tracking the run in store when it is set.
func record(ctx context.Context, store state.Store, build *bundle.Context, logger *slog.Logger) (*bundle.Result, error) {
	if store == nil {
		return build.Bundle(ctx)
	}

	run, err := store.CreateBuild(build.FindStories())
	if err != nil {
		return nil, err
	}

	result, bundleErr := build.Bundle(ctx)
	if bundleErr != nil {
		if err := store.CompleteBuild(run.ID, state.BuildStatusFailed, nil, bundleErr.Error()); err != nil {
			logger.Warn("failed to record build", "id", run.ID, "error", err)
		}
		return nil, bundleErr
	}

	sources := build.Sources()
	if changed, err := store.ChangedStories(sources); err == nil {
		logger.Info("stories changed since the last build", "changed", len(changed), "stories", changed)
	}

	hashes := make(map[string]string, len(sources))
	for path, source := range sources {
		hashes[path] = state.HashSource(source)
	}
	if err := store.SetStoryHashes(run.ID, hashes); err != nil {
		return nil, err
	}
	if err := store.CompleteBuild(run.ID, state.BuildStatusSucceeded, result.Services, ""); err != nil {
		return nil, fmt.Errorf("failed to record build: %w", err)
	}
	logger.Debug("recorded build", slog.String("id", run.ID), slog.Int("stories", len(result.Stories)))
	return result, nil
}
