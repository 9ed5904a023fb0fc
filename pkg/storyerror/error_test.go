package storyerror

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyscript/storyc/pkg/tree"
)

func TestError_Report(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		source string
		lines  map[int]string
	}{
		{
			name:   "service name",
			err:    New(ServiceNameDot, 1, 1, 8),
			source: "al.pine echo",
			lines: map[int]string{
				0: "Error: syntax error in story at line 1, column 1",
				1: "",
				2: "1|    al.pine echo",
				3: "      ^^^^^^^",
				4: "",
				5: "E0002: A service name can't contain `.`",
			},
		},
		{
			name:   "missing value",
			err:    New(MissingValue, 1, 5, 5),
			source: "a = ",
			lines: map[int]string{
				0: "Error: syntax error in story at line 1, column 5",
				2: "1|    a = ",
				3: "          ^",
				5: "E0007: Missing value after `=`",
			},
		},
		{
			name:   "second line",
			err:    New(ReservedKeyword, 2, 1, 3, "if"),
			source: "a = 1\nif = 2\n",
			lines: map[int]string{
				0: "Error: syntax error in story at line 2, column 1",
				2: "2|    if = 2",
				5: "E0008: `if` is a reserved keyword",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			located := Locate(tt.err, "", tt.source)
			var storyErr *Error
			require.True(t, errors.As(located, &storyErr))

			lines := strings.Split(storyErr.Report(false), "\n")
			for i, want := range tt.lines {
				require.Greater(t, len(lines), i)
				assert.Equal(t, want, lines[i], "line %d", i)
			}
		})
	}
}

func TestError_Report_NamesPath(t *testing.T) {
	err := Locate(New(VariableNameDash, 1, 1, 4), "stories/a.story", "a-b = 0")

	report := err.(*Error).Report(false)
	assert.True(t, strings.HasPrefix(report, "Error: syntax error in stories/a.story at line 1, column 1\n"))
}

func TestError_Report_WithoutSource(t *testing.T) {
	report := New(Indentation, 3, 1, 2).Report(false)

	assert.Equal(t, "Error: syntax error in story at line 3, column 1\n\nE0010: Inconsistent indentation\n", report)
}

func TestError_Report_Color(t *testing.T) {
	err := Locate(New(ServiceNameDot, 1, 1, 8), "", "al.pine echo").(*Error)

	assert.Contains(t, err.Report(true), "\x1b[")
	assert.NotContains(t, err.Report(false), "\x1b[")
}

func TestError_Error(t *testing.T) {
	err := New(ArgumentsNoService, 1, 1, 7)
	assert.Equal(t, "line 1, column 1: E0003: You have defined an argument, but not a service", err.Error())

	err.Path = "a.story"
	assert.Equal(t, "a.story: line 1, column 1: E0003: You have defined an argument, but not a service", err.Error())
}

func TestExpect(t *testing.T) {
	value := tree.New("entity", tree.New("values", tree.New("number", tree.NewToken("INT", "0", 1, 8))))

	require.NoError(t, Expect(value, true, ReturnOutsideFunction))

	err := Expect(value, false, ReturnOutsideFunction)
	var storyErr *Error
	require.True(t, errors.As(err, &storyErr))
	assert.Equal(t, ReturnOutsideFunction, storyErr.Code)
	assert.Equal(t, 1, storyErr.Line)
	assert.Equal(t, 8, storyErr.Column)
	assert.Equal(t, "`return` is allowed only inside functions", storyErr.Message)
}

func TestLocate(t *testing.T) {
	t.Run("wrapped diagnostic", func(t *testing.T) {
		original := New(VariableNameSlash, 1, 1, 4)
		err := Locate(fmt.Errorf("parsing: %w", original), "a.story", "a/b = 0")

		var storyErr *Error
		require.True(t, errors.As(err, &storyErr))
		assert.Equal(t, "a.story", storyErr.Path)
		assert.Equal(t, "a/b = 0", storyErr.Source)
		assert.Empty(t, original.Path, "the original is not modified")
	})

	t.Run("tree error", func(t *testing.T) {
		node := tree.New("path", tree.NewToken("NAME", "x", 4, 3))
		err := Locate(node.Expect(false, "boom"), "a.story", "")

		var storyErr *Error
		require.True(t, errors.As(err, &storyErr))
		assert.Equal(t, 4, storyErr.Line)
		assert.Equal(t, 3, storyErr.Column)
		assert.Equal(t, "boom", storyErr.Message)
		assert.Empty(t, storyErr.Code)
	})

	t.Run("other error", func(t *testing.T) {
		other := errors.New("disk on fire")
		assert.Same(t, other, Locate(other, "a.story", ""))
	})
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Path: "this-file-does-not-exist", Dir: "/work"}

	assert.Equal(t, `File "this-file-does-not-exist" not found at /work`, err.Error())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestUseColor(t *testing.T) {
	assert.True(t, UseColor(ColorAlways, nil))
	assert.False(t, UseColor(ColorNever, nil))
}
