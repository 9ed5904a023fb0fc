package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/storyscript/storyc/internal/bundle"
	"github.com/storyscript/storyc/internal/dag"
)

// debounce is how long the watcher waits for writes to settle.
const debounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Recheck stories when they change",
		Long: `Check the stories below dir, then watch the directory and check again
whenever a story changes. Each report names the changed stories and every
story importing them.`,
		Example: `  # Watch the working directory
  storyscript watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, cmd, storyPath(args))
		},
	}
}

// watcher rebuilds the stories below a directory.
type watcher struct {
	cmdCtx *CommandContext
	dir    string
	graph  *dag.Graph
	logger *slog.Logger
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	cmdCtx := NewCommandContext(cmd)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch needs a directory: %s", dir)
	}

	w := &watcher{cmdCtx: cmdCtx, dir: dir, logger: cmdCtx.Logger}
	w.rebuild(ctx, nil)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := watchDirRecursive(fsw, dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes", dir))
	return w.loop(ctx, fsw)
}

// loop collects story changes and rebuilds once writes settle.
func (w *watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	changed := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			story, ok := w.story(event.Name)
			if !ok {
				continue
			}
			changed[story] = true
			timer.Reset(debounce)

		case <-timer.C:
			stories := sortedPaths(changed)
			clear(changed)
			w.logger.Debug("stories changed", "stories", stories)
			w.rebuild(ctx, stories)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// story returns the story path of a changed file, relative to the watched
// directory, and false for files that are not stories.
func (w *watcher) story(name string) (string, bool) {
	if !strings.HasSuffix(name, w.cmdCtx.Cfg.Extension) {
		return "", false
	}
	rel, err := filepath.Rel(w.dir, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// rebuild checks every story again and reports the outcome. changed lists
// the stories that triggered the rebuild; nil means the initial build.
func (w *watcher) rebuild(ctx context.Context, changed []string) {
	r := w.cmdCtx.Renderer

	if changed != nil && w.graph != nil {
		affected := w.graph.Affected(changed)
		for _, story := range changed {
			if _, ok := w.graph.Story(story); !ok {
				affected = append(affected, story)
			}
		}
		r.Muted(fmt.Sprintf("Changed: %s", strings.Join(affected, ", ")))
	}

	build, err := bundle.FromPath(ctx, w.dir, w.cmdCtx.Options())
	if err != nil {
		ReportError(r.ErrWriter(), err, useColor(w.cmdCtx.Cfg.Color, r.ErrWriter()))
		return
	}
	err = build.Check(ctx)
	w.graph = build.Graph()
	if err != nil {
		ReportError(r.ErrWriter(), err, useColor(w.cmdCtx.Cfg.Color, r.ErrWriter()))
		return
	}
	r.Success(fmt.Sprintf("%d stories compiled", len(build.Stories())))
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
}
