package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

func kinds(tokens []*tree.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "assignment",
			input: "a = 1\n",
			want:  []string{KindName, KindEquals, KindInt, KindNewline, KindEOF},
		},
		{
			name:  "no trailing newline",
			input: "a = 1",
			want:  []string{KindName, KindEquals, KindInt, KindNewline, KindEOF},
		},
		{
			name:  "service with arguments",
			input: "alpine echo text:'hi'\n",
			want:  []string{KindName, KindName, KindName, KindColon, KindSingleQuoted, KindNewline, KindEOF},
		},
		{
			name:  "indentation",
			input: "if a\n\tb = 1\nc = 2\n",
			want: []string{
				KindIf, KindName, KindNewline,
				KindIndent, KindName, KindEquals, KindInt, KindNewline,
				KindDedent, KindName, KindEquals, KindInt, KindNewline,
				KindEOF,
			},
		},
		{
			name:  "dedent at end of input",
			input: "if a\n    b = 1",
			want: []string{
				KindIf, KindName, KindNewline,
				KindIndent, KindName, KindEquals, KindInt, KindNewline,
				KindDedent, KindEOF,
			},
		},
		{
			name:  "comments and blank lines",
			input: "# header\n\na = 1 # trailing\n   \n",
			want:  []string{KindName, KindEquals, KindInt, KindNewline, KindEOF},
		},
		{
			name:  "line breaks inside brackets",
			input: "a = [1,\n  2]\n",
			want: []string{
				KindName, KindEquals, KindLBracket, KindInt, KindComma, KindInt, KindRBracket,
				KindNewline, KindEOF,
			},
		},
		{
			name:  "operators",
			input: "a == b != c <= d > e\n",
			want: []string{
				KindName, KindOperator, KindName, KindOperator, KindName,
				KindOperator, KindName, KindOperator, KindName, KindNewline, KindEOF,
			},
		},
		{
			name:  "arithmetic",
			input: "1 + 2 - 3 * 4 / 5 % 6 ^ 7\n",
			want: []string{
				KindInt, KindPlus, KindInt, KindMinus, KindInt, KindMultiplier, KindInt,
				KindDivide, KindInt, KindModulus, KindInt, KindPower, KindInt, KindNewline, KindEOF,
			},
		},
		{
			name:  "keywords",
			input: "foreach items as item\n",
			want:  []string{KindForeach, KindName, KindAs, KindName, KindNewline, KindEOF},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{KindEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestLex_Names(t *testing.T) {
	tokens, err := Lex("org/container-name command\n")
	require.NoError(t, err)
	assert.Equal(t, "org/container-name", tokens[0].Value)
	assert.Equal(t, "command", tokens[1].Value)

	tokens, err = Lex("x-1\n")
	require.NoError(t, err)
	assert.Equal(t, []string{KindName, KindMinus, KindInt, KindNewline, KindEOF}, kinds(tokens))
}

func TestLex_Positions(t *testing.T) {
	tokens, err := Lex("a = 'text'\nb = 2.5")
	require.NoError(t, err)

	str := tokens[2]
	assert.Equal(t, KindSingleQuoted, str.Kind)
	assert.Equal(t, "'text'", str.Value)
	assert.Equal(t, tree.NewLine(1), str.Line)
	assert.Equal(t, 5, str.Column)
	assert.Equal(t, 11, str.EndColumn)

	newline := tokens[3]
	assert.Equal(t, KindNewline, newline.Kind)
	assert.Equal(t, 11, newline.Column)

	float := tokens[6]
	assert.Equal(t, KindFloat, float.Kind)
	assert.Equal(t, tree.NewLine(2), float.Line)
	assert.Equal(t, 5, float.Column)

	// The final line break is synthesised at the end of input.
	assert.Equal(t, 8, tokens[7].Column)
}

func TestLex_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		code   storyerror.Code
		line   int
		column int
	}{
		{name: "unterminated string", input: "a = 'text\n", code: storyerror.UnterminatedString, line: 1, column: 5},
		{name: "illegal char", input: "a = $b\n", code: storyerror.UnexpectedToken, line: 1, column: 5},
		{name: "bang", input: "a = !b\n", code: storyerror.UnexpectedToken, line: 1, column: 5},
		{name: "inconsistent dedent", input: "if a\n    b = 1\n  c = 2\n", code: storyerror.Indentation, line: 3, column: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			var storyErr *storyerror.Error
			require.True(t, errors.As(err, &storyErr), "got %v", err)
			assert.Equal(t, tt.code, storyErr.Code)
			assert.Equal(t, tt.line, storyErr.Line)
			assert.Equal(t, tt.column, storyErr.Column)
		})
	}
}
