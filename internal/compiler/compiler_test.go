package compiler

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyscript/storyc/internal/testutil"
	"github.com/storyscript/storyc/pkg/parser"
	"github.com/storyscript/storyc/pkg/storyerror"
)

func compile(t *testing.T, source string) *Story {
	t.Helper()
	story, err := tryCompile(t, source)
	require.NoError(t, err)
	return story
}

func tryCompile(t *testing.T, source string) (*Story, error) {
	t.Helper()
	root := preprocess(t, source)
	return New(Config{Logger: testutil.NewTestLogger(t)}).Compile(root)
}

func str(s string) Object {
	return Object{ObjectKey: "string", "string": s}
}

func path(paths ...string) Object {
	return Object{ObjectKey: "path", "paths": paths}
}

func expr(op string, lhs, rhs any) Object {
	return Object{ObjectKey: "expression", "expression": op, "values": []any{lhs, rhs}}
}

func arg(name string, value any) Object {
	return Object{ObjectKey: "argument", "name": name, "argument": value}
}

func TestCompile_Set(t *testing.T) {
	tests := []struct {
		source string
		want   any
	}{
		{source: "a = 1\n", want: int64(1)},
		{source: "a = -3\n", want: int64(-3)},
		{source: "a = 1.5\n", want: 1.5},
		{source: "a = true\n", want: true},
		{source: "a = 'it\\'s'\n", want: str("it's")},
		{source: `a = "hi"` + "\n", want: str("hi")},
		{source: "a = b.c\n", want: path("b", "c")},
		{source: "a = [1, b]\n", want: Object{ObjectKey: "list", "items": []any{int64(1), path("b")}}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			story := compile(t, tt.source)
			line := story.Tree["1"]
			require.NotNil(t, line)
			assert.Equal(t, MethodSet, line.Method)
			assert.Equal(t, []string{"a"}, line.Name)
			assert.Equal(t, []any{tt.want}, line.Args)
		})
	}
}

func TestCompile_Story(t *testing.T) {
	story := compile(t, "a = 1\nb = a\n")

	assert.Equal(t, DefaultVersion, story.Version)
	assert.Equal(t, "1", story.Entrypoint)
	assert.Empty(t, story.Services)
	assert.Equal(t, "2", story.Tree["1"].Next)
	assert.Empty(t, story.Tree["2"].Next)
	assert.Equal(t, []any{path("a")}, story.Tree["2"].Args)
}

func TestCompile_Version(t *testing.T) {
	root := preprocess(t, "a = 1\n")
	story, err := New(Config{Version: "1.2.3"}).Compile(root)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", story.Version)
}

func TestCompile_Expression(t *testing.T) {
	tests := []struct {
		source string
		want   Object
	}{
		{
			source: "a = 1 + 2 * 3\n",
			want:   expr("sum", int64(1), expr("multiplication", int64(2), int64(3))),
		},
		{
			source: "a = 1 - 2 - 3\n",
			want:   expr("subtraction", expr("subtraction", int64(1), int64(2)), int64(3)),
		},
		{
			source: "a = (1 + 2) * 3\n",
			want:   expr("multiplication", expr("sum", int64(1), int64(2)), int64(3)),
		},
		{
			source: "a = b ^ 2 % 3\n",
			want:   expr("modulus", expr("exponential", path("b"), int64(2)), int64(3)),
		},
		{
			source: "a = 6 / b\n",
			want:   expr("division", int64(6), path("b")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			line := compile(t, tt.source).Tree["1"]
			require.NotNil(t, line)
			assert.Equal(t, MethodExpression, line.Method)
			assert.Equal(t, []string{"a"}, line.Name)
			assert.Equal(t, []any{tt.want}, line.Args)
		})
	}
}

func TestCompile_AbsoluteExpression(t *testing.T) {
	line := compile(t, "3 + 4\n").Tree["1"]
	require.NotNil(t, line)
	assert.Equal(t, MethodExpression, line.Method)
	assert.Empty(t, line.Name)
	assert.Equal(t, []any{expr("sum", int64(3), int64(4))}, line.Args)
}

func TestCompile_Execute(t *testing.T) {
	story := compile(t, "alpine echo text:'hi' color:c as out\n")

	line := story.Tree["1"]
	require.NotNil(t, line)
	assert.Equal(t, MethodExecute, line.Method)
	assert.Equal(t, "alpine", line.Service)
	assert.Equal(t, "echo", line.Command)
	assert.Equal(t, []any{arg("text", str("hi")), arg("color", path("c"))}, line.Args)
	assert.Equal(t, []string{"out"}, line.Output)
	assert.Equal(t, []string{"alpine"}, story.Services)
}

func TestCompile_AssignedService(t *testing.T) {
	line := compile(t, "x = alpine echo\n").Tree["1"]
	require.NotNil(t, line)
	assert.Equal(t, MethodExecute, line.Method)
	assert.Equal(t, []string{"x"}, line.Name)
	assert.Equal(t, "alpine", line.Service)
}

func TestCompile_ServiceBlock(t *testing.T) {
	story := compile(t, "http server as client\n\tx = client\n")

	line := story.Tree["1"]
	assert.Equal(t, []string{"client"}, line.Output)
	assert.Equal(t, "2", line.Enter)
	assert.Equal(t, "1", story.Tree["2"].Parent)
}

func TestCompile_Hoisted(t *testing.T) {
	story := compile(t, "alpine echo text:(random value)\n")

	synthetic := story.Tree["0.00000001"]
	require.NotNil(t, synthetic)
	assert.Equal(t, MethodExecute, synthetic.Method)
	assert.Equal(t, []string{"$00000001"}, synthetic.Name)
	assert.Equal(t, "random", synthetic.Service)
	assert.Equal(t, "value", synthetic.Command)
	assert.Equal(t, "1", synthetic.Next)

	line := story.Tree["1"]
	require.NotNil(t, line)
	assert.Equal(t, []any{arg("text", path("$00000001"))}, line.Args)

	assert.Equal(t, "0.00000001", story.Entrypoint)
	assert.Equal(t, []string{"alpine", "random"}, story.Services)
}

func TestCompile_IfBlock(t *testing.T) {
	story := compile(t, "if a\n\tx = 1\nelse if b == 2\n\tx = 2\nelse\n\tx = 3\n")

	first := story.Tree["1"]
	require.NotNil(t, first)
	assert.Equal(t, MethodIf, first.Method)
	assert.Equal(t, []any{path("a")}, first.Args)
	assert.Equal(t, "2", first.Enter)
	assert.Equal(t, "3", first.Exit)

	elif := story.Tree["3"]
	require.NotNil(t, elif)
	assert.Equal(t, MethodElif, elif.Method)
	assert.Equal(t, []any{expr("equals", path("b"), int64(2))}, elif.Args)
	assert.Equal(t, "4", elif.Enter)
	assert.Equal(t, "5", elif.Exit)

	otherwise := story.Tree["5"]
	require.NotNil(t, otherwise)
	assert.Equal(t, MethodElse, otherwise.Method)
	assert.Equal(t, "6", otherwise.Enter)
	assert.Empty(t, otherwise.Exit)

	assert.Equal(t, "1", story.Tree["2"].Parent)
	assert.Equal(t, "3", story.Tree["4"].Parent)
	assert.Equal(t, "5", story.Tree["6"].Parent)
	assert.Empty(t, first.Parent)
}

func TestCompile_HoistedCondition(t *testing.T) {
	story := compile(t, "if (alpine check)\n\tx = 1\n")

	assert.Equal(t, MethodExecute, story.Tree["0.00000001"].Method)
	assert.Equal(t, []any{path("$00000001")}, story.Tree["1"].Args)
}

func TestCompile_Comparisons(t *testing.T) {
	tests := map[string]string{
		"==": "equals",
		"!=": "not_equal",
		"<":  "less",
		">":  "greater",
		"<=": "less_equal",
		">=": "greater_equal",
	}

	for operator, want := range tests {
		t.Run(operator, func(t *testing.T) {
			line := compile(t, "while a "+operator+" 1\n\tx = 1\n").Tree["1"]
			require.NotNil(t, line)
			assert.Equal(t, MethodWhile, line.Method)
			assert.Equal(t, []any{expr(want, path("a"), int64(1))}, line.Args)
		})
	}
}

func TestCompile_Foreach(t *testing.T) {
	story := compile(t, "foreach items as item\n\tx = item\n")

	line := story.Tree["1"]
	require.NotNil(t, line)
	assert.Equal(t, MethodFor, line.Method)
	assert.Equal(t, []any{path("items")}, line.Args)
	assert.Equal(t, []string{"item"}, line.Output)
	assert.Equal(t, "2", line.Enter)
}

func TestCompile_Function(t *testing.T) {
	story := compile(t, "function add a:int returns int\n\treturn a\nadd a:1\n")

	assert.Equal(t, map[string]string{"add": "1"}, story.Functions)

	function := story.Tree["1"]
	require.NotNil(t, function)
	assert.Equal(t, MethodFunction, function.Method)
	assert.Equal(t, "add", function.Function)
	assert.Equal(t, []any{arg("a", Object{ObjectKey: "type", "type": "int"})}, function.Args)
	assert.Equal(t, []string{"int"}, function.Output)

	ret := story.Tree["2"]
	require.NotNil(t, ret)
	assert.Equal(t, MethodReturn, ret.Method)
	assert.Equal(t, "1", ret.Parent)
	assert.Equal(t, []any{path("a")}, ret.Args)

	call := story.Tree["3"]
	require.NotNil(t, call)
	assert.Equal(t, MethodCall, call.Method)
	assert.Equal(t, "add", call.Function)
	assert.Equal(t, []any{arg("a", int64(1))}, call.Args)
	assert.Empty(t, story.Services)
}

func TestCompile_Try(t *testing.T) {
	story := compile(t, "try\n\tx = 0\ncatch as err\n\traise err\nfinally\n\tx = 1\n")

	assert.Equal(t, MethodTry, story.Tree["1"].Method)
	assert.Equal(t, "3", story.Tree["1"].Exit)

	catch := story.Tree["3"]
	require.NotNil(t, catch)
	assert.Equal(t, MethodCatch, catch.Method)
	assert.Equal(t, []string{"err"}, catch.Output)
	assert.Equal(t, "5", catch.Exit)

	raise := story.Tree["4"]
	require.NotNil(t, raise)
	assert.Equal(t, MethodRaise, raise.Method)
	assert.Equal(t, []any{path("err")}, raise.Args)

	assert.Equal(t, MethodFinally, story.Tree["5"].Method)
	assert.Equal(t, "6", story.Tree["5"].Enter)
}

func TestCompile_Imports(t *testing.T) {
	story := compile(t, "import 'lib/util.story' as util\n")

	assert.Equal(t, map[string]string{"util": "lib/util.story"}, story.Modules)
	line := story.Tree["1"]
	require.NotNil(t, line)
	assert.Equal(t, MethodImport, line.Method)
	assert.Equal(t, []string{"util"}, line.Output)
}

func TestImports(t *testing.T) {
	root, err := parser.Parse("import 'a.story' as a\nx = 1\nimport \"b/c.story\" as c\n")
	require.NoError(t, err)

	imports := Imports(root)
	require.Len(t, imports, 2)
	assert.Equal(t, "a", imports[0].Alias)
	assert.Equal(t, "a.story", imports[0].Path)
	assert.Equal(t, "c", imports[1].Alias)
	assert.Equal(t, "b/c.story", imports[1].Path)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   storyerror.Code
		line   int
		column int
	}{
		{name: "return outside function", source: "return 1\n", code: storyerror.ReturnOutsideFunction, line: 1, column: 8},
		{name: "inline expression in a loop", source: "while (alpine check)\n\tx = 1\n", code: storyerror.InlineExpression, line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tryCompile(t, tt.source)
			var storyErr *storyerror.Error
			require.True(t, errors.As(err, &storyErr), "got %v", err)
			assert.Equal(t, tt.code, storyErr.Code)
			assert.Equal(t, tt.line, storyErr.Line)
			if tt.column > 0 {
				assert.Equal(t, tt.column, storyErr.Column)
			}
		})
	}
}

func TestStory_JSON(t *testing.T) {
	story := compile(t, "alpine echo text:'hi'\n")

	data, err := json.Marshal(story)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1", decoded["entrypoint"])
	line := decoded["tree"].(map[string]any)["1"].(map[string]any)
	assert.Equal(t, "execute", line["method"])
	argument := line["args"].([]any)[0].(map[string]any)
	assert.Equal(t, "argument", argument[ObjectKey])
	assert.Equal(t, "text", argument["name"])
}
