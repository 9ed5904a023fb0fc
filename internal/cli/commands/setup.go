package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/bundle"
	"github.com/storyscript/storyc/internal/cli/config"
	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/internal/compiler"
	"github.com/storyscript/storyc/internal/state"
)

// Version is recorded in the stories commands compile.
var Version = compiler.DefaultVersion

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
	r.SetIndent(cfg.Indent)
	r.SetColor(useColor(cfg.Color, cmd.OutOrStdout()))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Options returns the discovery options of the configuration.
func (c *CommandContext) Options() bundle.Options {
	return bundle.Options{
		Extension:  c.Cfg.Extension,
		Ignore:     c.Cfg.Ignore,
		GitIgnores: c.Cfg.GitIgnores,
		Config: bundle.Config{
			Version: Version,
			Logger:  c.Logger,
		},
	}
}

// Build creates a build of the stories at p.
func (c *CommandContext) Build(ctx context.Context, p string) (*bundle.Context, error) {
	return bundle.FromPath(ctx, p, c.Options())
}

// OpenStore opens the build history, or returns nil when no state path is
// configured. The caller closes the store.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	if c.Cfg.StatePath == "" {
		return nil, nil
	}
	// Ensure state directory exists
	if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// getConfig returns the current configuration, or the defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Defaults()
}

// storyPath returns the path argument of a command, defaulting to the
// working directory.
func storyPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
