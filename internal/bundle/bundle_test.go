package bundle

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyscript/storyc/internal/compiler"
	"github.com/storyscript/storyc/internal/dag"
	"github.com/storyscript/storyc/internal/testutil"
	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

func story(source string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(source)}
}

// countingFS counts the files opened by name.
type countingFS struct {
	fsys  fs.FS
	opens map[string]int
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens[name]++
	return c.fsys.Open(name)
}

// countingCompiler counts the trees compiled.
type countingCompiler struct {
	compiler *compiler.Compiler
	calls    int
}

func (c *countingCompiler) Compile(root *tree.Node) (*compiler.Story, error) {
	c.calls++
	return c.compiler.Compile(root)
}

func newContext(t *testing.T, fsys fs.FS, entries ...string) *Context {
	t.Helper()
	return New(fsys, entries, Config{Logger: testutil.NewTestLogger(t)})
}

func TestBundle_SingleStory(t *testing.T) {
	c := newContext(t, fstest.MapFS{"main.story": story("alpine echo\n")}, "main.story")

	result, err := c.Bundle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"main.story"}, result.Entrypoint)
	assert.Equal(t, []string{"alpine"}, result.Services)
	require.Contains(t, result.Stories, "main.story")
	assert.Equal(t, compiler.DefaultVersion, result.Stories["main.story"].Version)
}

func TestBundle_Modules(t *testing.T) {
	fsys := fstest.MapFS{
		"main.story":     story("import 'lib/util.story' as util\nalpine echo\n"),
		"lib/util.story": story("import 'base.story' as base\nhttp get\n"),
		"lib/base.story": story("redis set\n"),
	}
	c := newContext(t, fsys, "main.story")

	result, err := c.Bundle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"main.story"}, result.Entrypoint)
	assert.Len(t, result.Stories, 3)
	assert.Equal(t, []string{"alpine", "http", "redis"}, result.Services)
	assert.Equal(t, map[string]string{"util": "lib/util.story"}, result.Stories["main.story"].Modules)
	assert.Equal(t, map[string]string{"base": "lib/base.story"}, result.Stories["lib/util.story"].Modules)

	sorted, err := c.Graph().TopologicalSort()
	require.NoError(t, err)
	var order []string
	for _, node := range sorted {
		order = append(order, node.Path)
	}
	assert.Equal(t, []string{"lib/base.story", "lib/util.story", "main.story"}, order)
	assert.Equal(t, []string{"main.story"}, c.Graph().Entries())
}

func TestBundle_Memoisation(t *testing.T) {
	fsys := &countingFS{
		fsys: fstest.MapFS{
			"a.story": story("import 'm.story' as m\nimport 'b.story' as b\n"),
			"b.story": story("import 'm.story' as m\n"),
			"m.story": story("x = 1\n"),
		},
		opens: map[string]int{},
	}
	counting := &countingCompiler{compiler: compiler.New(compiler.Config{})}
	c := New(fsys, []string{"a.story", "b.story"}, Config{Compiler: counting, Logger: testutil.NewTestLogger(t)})

	result, err := c.Bundle(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Stories, 3)
	assert.Equal(t, 1, fsys.opens["m.story"])
	assert.Equal(t, 1, fsys.opens["b.story"])
	assert.Equal(t, 3, counting.calls)

	source, err := c.LoadStory("m.story")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", source)
	assert.Equal(t, 1, fsys.opens["m.story"])
}

func TestBundle_ServiceAggregation(t *testing.T) {
	fsys := fstest.MapFS{
		"one.story": story("x run\ny run\n"),
		"two.story": story("y run\nz run\n"),
	}
	c := newContext(t, fsys, "one.story", "two.story")

	result, err := c.Bundle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, result.Services)
	assert.Equal(t, []string{"x", "y", "z"}, c.Services())
}

func TestBundle_SyntheticNamesAcrossStories(t *testing.T) {
	fsys := fstest.MapFS{
		"a.story": story("alpine echo text:(random value)\n"),
		"b.story": story("alpine echo text:(random value)\n"),
	}
	c := newContext(t, fsys, "a.story", "b.story")

	result, err := c.Bundle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"$00000001"}, result.Stories["a.story"].Tree["0.00000001"].Name)
	assert.Equal(t, []string{"$00000002"}, result.Stories["b.story"].Tree["0.00000002"].Name)
}

func TestBundle_NotFound(t *testing.T) {
	t.Run("entry", func(t *testing.T) {
		c := newContext(t, fstest.MapFS{}, "missing.story")

		_, err := c.Bundle(context.Background())
		var notFound *storyerror.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "missing.story", notFound.Path)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("module", func(t *testing.T) {
		fsys := fstest.MapFS{"app/main.story": story("import 'gone.story' as gone\n")}
		c := newContext(t, fsys, "app/main.story")

		_, err := c.Bundle(context.Background())
		var notFound *storyerror.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "app/gone.story", notFound.Path)
		assert.Equal(t, "app", notFound.Dir)
		assert.Equal(t, `File "app/gone.story" not found at app`, err.Error())
	})
}

func TestBundle_Cycle(t *testing.T) {
	t.Run("two stories", func(t *testing.T) {
		fsys := fstest.MapFS{
			"a.story": story("import 'b.story' as b\n"),
			"b.story": story("import 'a.story' as a\n"),
		}
		_, err := newContext(t, fsys, "a.story").Bundle(context.Background())

		var cycle *dag.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a.story", "b.story", "a.story"}, cycle.Cycle)
	})

	t.Run("self", func(t *testing.T) {
		fsys := fstest.MapFS{"a.story": story("import 'a.story' as a\n")}
		_, err := newContext(t, fsys, "a.story").Bundle(context.Background())

		var cycle *dag.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a.story", "a.story"}, cycle.Cycle)
	})
}

func TestBundle_Diagnostics(t *testing.T) {
	t.Run("syntax", func(t *testing.T) {
		fsys := fstest.MapFS{"bad.story": story("al.pine echo")}
		_, err := newContext(t, fsys, "bad.story").Bundle(context.Background())

		var storyErr *storyerror.Error
		require.ErrorAs(t, err, &storyErr)
		assert.Equal(t, storyerror.ServiceNameDot, storyErr.Code)
		assert.Equal(t, "bad.story", storyErr.Path)
		assert.Equal(t, "al.pine echo", storyErr.Source)
	})

	t.Run("compile", func(t *testing.T) {
		fsys := fstest.MapFS{"lib.story": story("return 1\n"), "main.story": story("import 'lib.story' as lib\n")}
		_, err := newContext(t, fsys, "main.story").Bundle(context.Background())

		var storyErr *storyerror.Error
		require.ErrorAs(t, err, &storyErr)
		assert.Equal(t, storyerror.ReturnOutsideFunction, storyErr.Code)
		assert.Equal(t, "lib.story", storyErr.Path)
	})
}

func TestBundle_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newContext(t, fstest.MapFS{"main.story": story("x = 1\n")}, "main.story")
	_, err := c.Bundle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck_SiblingIsolation(t *testing.T) {
	fsys := fstest.MapFS{
		"good.story":   story("alpine echo\n"),
		"bad.story":    story("import 'broken.story' as b\n"),
		"other.story":  story("import 'broken.story' as b\n"),
		"broken.story": story("a = \n"),
	}
	c := newContext(t, fsys, "bad.story", "good.story", "other.story")

	err := c.Check(context.Background())
	require.Error(t, err)

	var storyErr *storyerror.Error
	require.ErrorAs(t, err, &storyErr)
	assert.Equal(t, "broken.story", storyErr.Path)
	assert.Equal(t, storyerror.MissingValue, storyErr.Code)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 1)

	stories := c.Stories()
	assert.Contains(t, stories, "good.story")
	assert.NotContains(t, stories, "bad.story")
	assert.NotContains(t, stories, "other.story")
}

func TestCheck_Clean(t *testing.T) {
	c := newContext(t, fstest.MapFS{"a.story": story("x = 1\n")}, "a.story")
	assert.NoError(t, c.Check(context.Background()))
}

func TestBundleTrees(t *testing.T) {
	fsys := fstest.MapFS{
		"main.story": story("import 'lib.story' as lib\nalpine echo text:(random value)\n"),
		"lib.story":  story("x = 1\n"),
	}
	c := newContext(t, fsys, "main.story")

	trees, err := c.BundleTrees(context.Background())
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Empty(t, trees["main.story"].Find("inline_expression"))
	assert.Equal(t, "start", trees["lib.story"].Kind)
	assert.Empty(t, c.Stories())
}

func TestLex(t *testing.T) {
	c := newContext(t, fstest.MapFS{"main.story": story("alpine echo\n")}, "main.story")

	tokens, err := c.Lex()
	require.NoError(t, err)
	require.NotEmpty(t, tokens["main.story"])
	assert.Equal(t, "alpine", tokens["main.story"][0].Value)
}

func TestNew_CleansEntries(t *testing.T) {
	c := New(fstest.MapFS{}, []string{"./a.story", "a.story", "lib/../b.story"}, Config{})
	assert.Equal(t, []string{"a.story", "b.story"}, c.FindStories())
}

func TestNew_CustomParser(t *testing.T) {
	calls := 0
	p := ParserFunc(func(string) (*tree.Node, error) {
		calls++
		return tree.New("start"), nil
	})
	c := New(fstest.MapFS{"a.story": story("anything")}, []string{"a.story"}, Config{Parser: p})

	result, err := c.Bundle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, result.Stories["a.story"].Tree)
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"a.story":          story(""),
		"lib/b.story":      story(""),
		"lib/skip/c.story": story(""),
		"ignored.story":    story(""),
		"notes.txt":        story(""),
		"other.st":         story(""),
	}

	stories, err := Discover(fsys, "", []string{"lib/skip", "ignored.story"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.story", "lib/b.story"}, stories)

	stories, err = Discover(fsys, ".st", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.st"}, stories)
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	write := func(name, source string) {
		t.Helper()
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(source), 0o644))
	}
	write("main.story", "import 'lib/util.story' as util\nalpine echo\n")
	write("lib/util.story", "http get\n")
	write("drafts/wip.story", "redis set\n")

	t.Run("directory", func(t *testing.T) {
		c, err := FromPath(context.Background(), dir, Options{Ignore: []string{filepath.Join(dir, "drafts")}})
		require.NoError(t, err)
		assert.Equal(t, []string{"lib/util.story", "main.story"}, c.FindStories())

		result, err := c.Bundle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"alpine", "http"}, result.Services)
	})

	t.Run("file", func(t *testing.T) {
		c, err := FromPath(context.Background(), filepath.Join(dir, "main.story"), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"main.story"}, c.FindStories())

		result, err := c.Bundle(context.Background())
		require.NoError(t, err)
		assert.Len(t, result.Stories, 2)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := FromPath(context.Background(), filepath.Join(dir, "nope.story"), Options{})
		var notFound *storyerror.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestGitIgnores_NotARepository(t *testing.T) {
	assert.Empty(t, GitIgnores(context.Background(), t.TempDir(), testutil.NewTestLogger(t)))
}

func TestContext_Fork(t *testing.T) {
	fsys := fstest.MapFS{
		"a.story": {Data: []byte("alpine echo text:(random value)\n")},
		"b.story": {Data: []byte("alpine echo text:(random value)\n")},
	}
	c := New(fsys, []string{"a.story", "b.story"}, Config{})

	fork := c.Fork("b.story")
	assert.Equal(t, []string{"b.story"}, fork.FindStories())

	result, err := fork.Bundle(context.Background())
	require.NoError(t, err)
	// a fork numbers synthetic names from its own counters
	assert.Equal(t, []string{"$00000001"}, result.Stories["b.story"].Tree["0.00000001"].Name)
	assert.Empty(t, c.Stories(), "forks do not share compiled stories")
}
