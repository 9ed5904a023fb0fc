package bundle

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/storyscript/storyc/pkg/storyerror"
)

// DefaultExtension marks story files.
const DefaultExtension = ".story"

// Options configures discovery for FromPath.
type Options struct {
	// Extension marks story files (defaults to DefaultExtension)
	Extension string
	// Ignore excludes directories or single stories (optional)
	Ignore []string
	// GitIgnores excludes files ignored by git
	GitIgnores bool
	// Config configures the build
	Config Config
}

// Discover returns the stories under the root of fsys, sorted. A story is
// excluded when its path, or the path of a directory above it, is in
// ignored.
func Discover(fsys fs.FS, extension string, ignored []string) ([]string, error) {
	if extension == "" {
		extension = DefaultExtension
	}
	skip := make(map[string]bool, len(ignored))
	for _, p := range ignored {
		if p = clean(p); p != "" {
			skip[p] = true
		}
	}

	var stories []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skip[p] {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(p, extension) {
			stories = append(stories, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(stories)
	return stories, nil
}

// GitIgnores lists the files git ignores in dir, relative to dir. Without
// git, or outside a repository, the list is empty.
func GitIgnores(ctx context.Context, dir string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--others", "--ignored", "--exclude-standard")
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		logger.Debug("git ignores unavailable", "dir", dir, "error", err)
		return nil
	}

	var ignored []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ignored = append(ignored, line)
		}
	}
	return ignored
}

// FromPath creates a build of the stories at p. A directory contributes
// every story below it, minus the ignored ones; a file is used as-is.
// Imports resolve inside the directory, or the directory of the file.
func FromPath(ctx context.Context, p string, opts Options) (*Context, error) {
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			dir, _ := os.Getwd()
			return nil, &storyerror.NotFoundError{Path: p, Dir: dir}
		}
		return nil, err
	}
	if !info.IsDir() {
		return New(os.DirFS(filepath.Dir(p)), []string{filepath.Base(p)}, opts.Config), nil
	}

	var ignored []string
	if opts.GitIgnores {
		ignored = GitIgnores(ctx, p, opts.Config.Logger)
	}
	for _, ignore := range opts.Ignore {
		if rel, ok := relative(p, ignore); ok {
			ignored = append(ignored, rel)
		}
	}

	fsys := os.DirFS(p)
	stories, err := Discover(fsys, opts.Extension, ignored)
	if err != nil {
		return nil, err
	}
	if opts.Config.Logger != nil {
		opts.Config.Logger.Debug("discovered stories", "dir", p, "stories", len(stories), "ignored", len(ignored))
	}
	return New(fsys, stories, opts.Config), nil
}

// relative returns target relative to root as a slash path, and false when
// target lies outside root.
func relative(root, target string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return path.Clean(rel), true
}
