// Package bundle compiles the stories that must be shipped together.
// It resolves the modules every story imports, compiling each module before
// the stories importing it, and aggregates the services of the whole
// program.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/storyscript/storyc/internal/compiler"
	"github.com/storyscript/storyc/internal/dag"
	"github.com/storyscript/storyc/pkg/parser"
	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// Parser turns story source into a tree.
type Parser interface {
	Parse(source string) (*tree.Node, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(source string) (*tree.Node, error)

// Parse calls f.
func (f ParserFunc) Parse(source string) (*tree.Node, error) {
	return f(source)
}

// Compiler turns a preprocessed tree into a story.
type Compiler interface {
	Compile(root *tree.Node) (*compiler.Story, error)
}

// Config holds bundle configuration.
type Config struct {
	// Parser parses story source (optional, defaults to the story parser)
	Parser Parser
	// Compiler compiles preprocessed trees (optional)
	Compiler Compiler
	// Version is recorded in compiled stories when Compiler is nil
	Version string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result is a compiled bundle.
type Result struct {
	Stories    map[string]*compiler.Story `json:"stories" yaml:"stories"`
	Services   []string                   `json:"services" yaml:"services"`
	Entrypoint []string                   `json:"entrypoint" yaml:"entrypoint"`
}

// Context is the state of one bundle build. Each file is read at most once
// and each story is compiled at most once per Context. A Context is not safe
// for concurrent use; concurrent builds each create their own.
type Context struct {
	fsys     fs.FS
	cfg      Config
	entries  []string
	parser   Parser
	compiler Compiler
	gen      *compiler.Generator
	pre      *compiler.Preprocessor
	logger   *slog.Logger

	files   map[string]string
	trees   map[string]*tree.Node
	stories map[string]*compiler.Story
	failed  map[string]error
	graph   *dag.Graph
	stack   []string // stories being resolved, outermost first
}

// New creates a build of the stories at entries, slash paths relative to
// the root of fsys.
func New(fsys fs.FS, entries []string, cfg Config) *Context {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := cfg.Parser
	if p == nil {
		p = ParserFunc(parser.Parse)
	}
	comp := cfg.Compiler
	if comp == nil {
		comp = compiler.New(compiler.Config{Version: cfg.Version, Logger: logger})
	}
	gen := compiler.NewGenerator()

	c := &Context{
		fsys:     fsys,
		cfg:      cfg,
		parser:   p,
		compiler: comp,
		gen:      gen,
		pre:      compiler.NewPreprocessor(gen, logger),
		logger:   logger,
		files:    make(map[string]string),
		trees:    make(map[string]*tree.Node),
		stories:  make(map[string]*compiler.Story),
		failed:   make(map[string]error),
		graph:    dag.NewGraph(),
	}
	for _, entry := range entries {
		entry = clean(entry)
		if slices.Contains(c.entries, entry) {
			continue
		}
		c.entries = append(c.entries, entry)
		c.graph.AddStory(entry, true)
	}
	return c
}

// clean normalises a story path to a slash path relative to the root.
func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, `\`, "/")), "/")
}

// Fork creates an independent build of entries over the same files and
// configuration. Forks share nothing with c and may run concurrently.
func (c *Context) Fork(entries ...string) *Context {
	return New(c.fsys, entries, c.cfg)
}

// FindStories returns the requested stories.
func (c *Context) FindStories() []string {
	return slices.Clone(c.entries)
}

// LoadStory returns the source of the story at p, reading it on first use.
func (c *Context) LoadStory(p string) (string, error) {
	return c.load(p, ".")
}

// load reads p, reporting a missing file as not found at dir.
func (c *Context) load(p, dir string) (string, error) {
	p = clean(p)
	if source, ok := c.files[p]; ok {
		return source, nil
	}
	data, err := fs.ReadFile(c.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &storyerror.NotFoundError{Path: p, Dir: dir}
		}
		return "", fmt.Errorf("failed to read story %s: %w", p, err)
	}
	c.logger.Debug("loaded story", "path", p, "bytes", len(data))
	c.files[p] = string(data)
	return c.files[p], nil
}

// Sources returns the source of every story read so far.
func (c *Context) Sources() map[string]string {
	sources := make(map[string]string, len(c.files))
	for p, source := range c.files {
		sources[p] = source
	}
	return sources
}

// tree returns the preprocessed tree of the story at p, parsing it on first
// use. Diagnostics are located in the story.
func (c *Context) tree(p, dir string) (*tree.Node, error) {
	if root, ok := c.trees[p]; ok {
		return root, nil
	}
	source, err := c.load(p, dir)
	if err != nil {
		return nil, err
	}
	root, err := c.parser.Parse(source)
	if err != nil {
		return nil, storyerror.Locate(err, p, source)
	}
	if root, err = c.pre.Process(root); err != nil {
		return nil, fmt.Errorf("failed to preprocess %s: %w", p, err)
	}
	c.trees[p] = root
	return root, nil
}

// pass is one walk over the stories reachable from the entries.
type pass struct {
	done  func(p string) bool
	visit func(p string, root *tree.Node) error
}

// resolve walks story p and, depth first, every module it imports. Each
// story is visited after all of its modules. Failures are remembered so
// that every story importing a failed module fails the same way.
func (c *Context) resolve(ctx context.Context, p, dir string, walk pass) error {
	if walk.done(p) {
		return nil
	}
	if err, ok := c.failed[p]; ok {
		return err
	}
	if i := slices.Index(c.stack, p); i >= 0 {
		return &dag.CycleError{Cycle: append(slices.Clone(c.stack[i:]), p)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.resolveStory(ctx, p, dir, walk)
	var cycle *dag.CycleError
	if err != nil && !errors.As(err, &cycle) && !errors.Is(err, ctx.Err()) {
		c.failed[p] = err
	}
	return err
}

func (c *Context) resolveStory(ctx context.Context, p, dir string, walk pass) error {
	root, err := c.tree(p, dir)
	if err != nil {
		return err
	}

	c.stack = append(c.stack, p)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	for _, imp := range compiler.Imports(root) {
		module := c.modulePath(p, imp.Path)
		c.graph.AddStory(module, false)
		if err := c.graph.AddImport(p, module); err != nil {
			return err
		}
		c.logger.Debug("resolving module", "story", p, "alias", imp.Alias, "module", module)
		if err := c.resolve(ctx, module, path.Dir(p), walk); err != nil {
			return err
		}
	}
	return walk.visit(p, root)
}

// modulePath resolves an import written in story against the story's
// directory.
func (c *Context) modulePath(story, module string) string {
	if strings.HasPrefix(module, "/") {
		return clean(module)
	}
	return clean(path.Join(path.Dir(story), module))
}

// compilePass compiles every story it visits.
func (c *Context) compilePass() pass {
	return pass{
		done: func(p string) bool {
			_, ok := c.stories[p]
			return ok
		},
		visit: func(p string, root *tree.Node) error {
			story, err := c.compiler.Compile(root)
			if err != nil {
				var shape *tree.ShapeError
				if errors.As(err, &shape) {
					return fmt.Errorf("failed to compile %s: %w", p, err)
				}
				return storyerror.Locate(err, p, c.files[p])
			}
			for _, imp := range compiler.Imports(root) {
				if story.Modules == nil {
					story.Modules = make(map[string]string)
				}
				story.Modules[imp.Alias] = c.modulePath(p, imp.Path)
			}
			c.stories[p] = story
			c.logger.Debug("compiled story", "path", p, "services", len(story.Services))
			return nil
		},
	}
}

// treePass parses the stories it visits without compiling them.
func (c *Context) treePass(seen map[string]bool) pass {
	return pass{
		done: func(p string) bool { return seen[p] },
		visit: func(p string, _ *tree.Node) error {
			seen[p] = true
			return nil
		},
	}
}

// Compile compiles the stories at paths and every module they import, and
// returns the compiled stories by path.
func (c *Context) Compile(ctx context.Context, paths ...string) (map[string]*compiler.Story, error) {
	walk := c.compilePass()
	for _, p := range paths {
		if err := c.resolve(ctx, clean(p), ".", walk); err != nil {
			return nil, err
		}
	}
	return c.Stories(), nil
}

// Stories returns every story compiled so far, modules included.
func (c *Context) Stories() map[string]*compiler.Story {
	stories := make(map[string]*compiler.Story, len(c.stories))
	for p, story := range c.stories {
		stories[p] = story
	}
	return stories
}

// Services returns the services used by the compiled stories, deduplicated
// and sorted.
func (c *Context) Services() []string {
	seen := make(map[string]bool)
	services := []string{}
	for _, story := range c.stories {
		for _, service := range story.Services {
			if !seen[service] {
				seen[service] = true
				services = append(services, service)
			}
		}
	}
	sort.Strings(services)
	return services
}

// Bundle compiles the requested stories and their modules. Any failure
// aborts the build.
func (c *Context) Bundle(ctx context.Context) (*Result, error) {
	entrypoint := c.FindStories()
	c.logger.Info("bundling stories", "entrypoint", len(entrypoint))

	stories, err := c.Compile(ctx, entrypoint...)
	if err != nil {
		return nil, err
	}
	return &Result{
		Stories:    stories,
		Services:   c.Services(),
		Entrypoint: entrypoint,
	}, nil
}

// BundleTrees parses and preprocesses the requested stories and their
// modules without compiling them, and returns the trees by path.
func (c *Context) BundleTrees(ctx context.Context) (map[string]*tree.Node, error) {
	seen := make(map[string]bool)
	walk := c.treePass(seen)
	for _, p := range c.entries {
		if err := c.resolve(ctx, p, ".", walk); err != nil {
			return nil, err
		}
	}
	trees := make(map[string]*tree.Node, len(seen))
	for p := range seen {
		trees[p] = c.trees[p]
	}
	return trees, nil
}

// Lex returns the tokens of each requested story.
func (c *Context) Lex() (map[string][]*tree.Token, error) {
	results := make(map[string][]*tree.Token, len(c.entries))
	for _, p := range c.entries {
		source, err := c.LoadStory(p)
		if err != nil {
			return nil, err
		}
		tokens, err := parser.Lex(source)
		if err != nil {
			return nil, storyerror.Locate(err, p, source)
		}
		results[p] = tokens
	}
	return results, nil
}

// Check compiles every requested story, continuing past failures. Stories
// that do not import a failing module still compile. It returns the failures
// joined, or nil.
func (c *Context) Check(ctx context.Context) error {
	walk := c.compilePass()
	var errs []error
	for _, p := range c.entries {
		if err := c.resolve(ctx, p, ".", walk); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !containsError(errs, err) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// containsError reports whether err is already in errs, so a failing module
// shared by several stories is reported once.
func containsError(errs []error, err error) bool {
	for _, e := range errs {
		if e == err {
			return true
		}
	}
	return false
}

// Graph returns the import graph of the stories resolved so far.
func (c *Context) Graph() *dag.Graph {
	return c.graph
}
