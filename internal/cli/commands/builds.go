package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/cli/output"
	"github.com/storyscript/storyc/internal/state"
)

// errNoState reports commands that need the build history without one.
var errNoState = errors.New("no build history: set state_path in storyscript.yaml or pass --state")

// NewBuildsCommand creates the builds command.
func NewBuildsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "builds [id]",
		Short: "Show the build history",
		Long: `List the recorded bundle runs, most recent first, or show one build.

Builds are recorded by the bundle command when state_path is configured.`,
		Example: `  # List the last ten builds
  storyscript builds --limit 10

  # Show one build
  storyscript builds 3f1c9a52-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(cmd, args, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of builds to list")
	return cmd
}

func runBuilds(cmd *cobra.Command, args []string, limit int) error {
	cmdCtx := NewCommandContext(cmd)
	store, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	if store == nil {
		return errNoState
	}
	defer func() { _ = store.Close() }()

	r := cmdCtx.Renderer
	if len(args) == 1 {
		build, err := store.GetBuild(args[0])
		if err != nil {
			return err
		}
		hashes, err := store.GetStoryHashes(build.ID)
		if err != nil {
			return err
		}
		return showBuild(r, build, hashes)
	}

	builds, err := store.ListBuilds(limit)
	if err != nil {
		return err
	}
	if r.IsStructured() {
		if builds == nil {
			builds = []*state.Build{}
		}
		return r.Encode(builds)
	}
	return renderBuilds(r.Writer(), builds, r.EffectiveMode() == output.ModeMarkdown, time.Now())
}

func renderBuilds(w io.Writer, builds []*state.Build, markdown bool, now time.Time) error {
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(w, "(0 builds)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Status", "Started", "Duration", "Stories", "Services"})
	for _, build := range builds {
		t.AppendRow(table.Row{
			shortID(build.ID),
			string(build.Status),
			humanize.RelTime(build.StartedAt, now, "ago", "from now"),
			formatDuration(build),
			strings.Join(build.Entrypoint, ", "),
			len(build.Services),
		})
	}

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	_, _ = fmt.Fprintf(w, "(%d builds)\n", len(builds))
	return nil
}

func showBuild(r *output.Renderer, build *state.Build, hashes map[string]string) error {
	if r.IsStructured() {
		return r.Encode(struct {
			state.Build `yaml:",inline"`
			Hashes      map[string]string `json:"hashes" yaml:"hashes"`
		}{*build, hashes})
	}

	r.Header(1, "Build "+build.ID)
	r.Println(output.FormatKeyValue("Status", string(build.Status)))
	r.Println(output.FormatKeyValue("Started", build.StartedAt.Format(time.RFC3339)))
	r.Println(output.FormatKeyValue("Duration", formatDuration(build)))
	r.Println(output.FormatKeyValue("Entrypoint", strings.Join(build.Entrypoint, ", ")))
	r.Println(output.FormatKeyValue("Services", strings.Join(build.Services, ", ")))
	if build.Error != "" {
		r.Println(output.FormatKeyValue("Error", build.Error))
	}
	if len(hashes) > 0 {
		r.Println("")
		r.Header(2, "Stories")
		for _, story := range sortedPaths(hashes) {
			r.Printf("- %s `%s`\n", story, hashes[story][:12])
		}
	}
	return nil
}

func formatDuration(build *state.Build) string {
	if build.CompletedAt == nil {
		return "-"
	}
	return build.Duration().Round(time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
