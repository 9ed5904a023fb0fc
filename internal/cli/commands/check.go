package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storyscript/storyc/internal/bundle"
)

// CheckResult is the outcome of checking one story.
type CheckResult struct {
	Story string `json:"story" yaml:"story"`
	OK    bool   `json:"ok" yaml:"ok"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Report the errors of every story",
		Long: `Compile every story at path independently and report all failures.

Unlike bundle, check does not stop at the first failing story: each story
is built on its own, concurrently, so a broken story never hides the
errors of its siblings.`,
		Example: `  # Check a project
  storyscript check

  # Check with at most two concurrent builds
  storyscript check --jobs 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, storyPath(args), jobs)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent builds (default: number of CPUs)")
	return cmd
}

func runCheck(cmd *cobra.Command, p string, jobs int) error {
	cmdCtx := NewCommandContext(cmd)
	build, err := cmdCtx.Build(cmd.Context(), p)
	if err != nil {
		return err
	}

	results, err := checkStories(cmd.Context(), build, jobs)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	failed := 0
	for _, result := range results {
		if !result.OK {
			failed++
		}
	}

	if r.IsStructured() {
		if err := r.Encode(results); err != nil {
			return err
		}
	} else {
		color := useColor(cmdCtx.Cfg.Color, r.ErrWriter())
		reported := make(map[string]bool)
		for _, result := range results {
			if result.OK || reported[result.Error] {
				continue
			}
			reported[result.Error] = true
			ReportError(r.ErrWriter(), result.err, color)
		}
		if failed == 0 {
			r.Success(fmt.Sprintf("%d stories checked", len(results)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d stories failed", failed, len(results))
	}
	return nil
}

// checkStories checks each story of build in its own fork, at most jobs at
// a time. Results follow the order of the stories.
func checkStories(ctx context.Context, build *bundle.Context, jobs int) ([]CheckResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	stories := build.FindStories()
	results := make([]CheckResult, len(stories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, story := range stories {
		g.Go(func() error {
			err := build.Fork(story).Check(gctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			results[i] = CheckResult{Story: story, OK: err == nil, err: err}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
