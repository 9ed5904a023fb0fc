package parser

import (
	"github.com/storyscript/storyc/pkg/storyerror"
	"github.com/storyscript/storyc/pkg/tree"
)

// Lexer tokenizes story source. Indentation changes at the start of a
// logical line produce INDENT and DEDENT tokens; line breaks inside brackets
// are ignored.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        byte // current char under examination
	line      int  // current line number (1-based)
	lineStart int  // offset of the first char of the current line

	depth      int   // open brackets and parentheses
	indents    []int // indentation stack, always starting with 0
	atNewLine  bool
	hasContent bool // the current logical line produced a token
	done       bool
	pending    []*tree.Token
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:     input,
		line:      1,
		indents:   []int{0},
		atNewLine: true,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
		l.pos = len(l.input)
		return
	}
	l.ch = l.input[l.readPos]
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// column returns the 1-based column of the current char.
func (l *Lexer) column() int {
	return l.pos - l.lineStart + 1
}

func (l *Lexer) emit(kind, value string, column int) *tree.Token {
	tok := tree.NewToken(kind, value, l.line, column)
	l.pending = append(l.pending, tok)
	return tok
}

// NextToken returns the next token. After the end of input it keeps
// returning EOF.
func (l *Lexer) NextToken() (*tree.Token, error) {
	for len(l.pending) == 0 {
		if l.done {
			return tree.NewToken(KindEOF, "", l.line, l.column()), nil
		}
		if err := l.scan(); err != nil {
			return nil, err
		}
	}
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok, nil
}

// scan produces at least one pending token or consumes a line break.
func (l *Lexer) scan() error {
	if l.atNewLine && l.depth == 0 {
		if err := l.indentation(); err != nil {
			return err
		}
		if len(l.pending) > 0 {
			return nil
		}
	}

	l.skipWhitespaceAndComments()

	switch l.ch {
	case 0:
		l.finish()
		return nil
	case '\n':
		if l.hasContent {
			l.emit(KindNewline, "", l.column()).EndColumn = l.column() + 1
		}
		l.readChar()
		l.atNewLine = true
		l.hasContent = false
		return nil
	}

	l.hasContent = true
	return l.readToken()
}

// indentation measures the leading whitespace of a line holding content and
// emits the matching INDENT or DEDENT tokens.
func (l *Lexer) indentation() error {
	width := 0
	for l.ch == ' ' || l.ch == '\t' {
		width++
		l.readChar()
	}
	switch l.ch {
	case '\n', '\r', '#', 0:
		// Blank or comment-only line.
		return nil
	}
	l.atNewLine = false

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(KindIndent, "", l.column())
	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(KindDedent, "", l.column())
		}
		if width != l.indents[len(l.indents)-1] {
			return storyerror.New(storyerror.Indentation, l.line, 1, l.column())
		}
	}
	return nil
}

// finish closes the last line and every open indentation level.
func (l *Lexer) finish() {
	if l.hasContent {
		l.emit(KindNewline, "", l.column())
		l.hasContent = false
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(KindDedent, "", l.column())
	}
	l.emit(KindEOF, "", l.column())
	l.done = true
}

// skipWhitespaceAndComments skips blanks and # comments. Line breaks are
// skipped too while inside brackets.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n' && l.depth > 0:
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readToken reads one token starting at the current char.
func (l *Lexer) readToken() error {
	column := l.column()

	single := func(kind string) error {
		l.emit(kind, string(l.ch), column)
		l.readChar()
		return nil
	}

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			return l.pair(KindOperator, column)
		}
		return single(KindEquals)
	case '!':
		if l.peekChar() == '=' {
			return l.pair(KindOperator, column)
		}
	case '<', '>':
		if l.peekChar() == '=' {
			return l.pair(KindOperator, column)
		}
		return single(KindOperator)
	case '+':
		return single(KindPlus)
	case '-':
		return single(KindMinus)
	case '*':
		return single(KindMultiplier)
	case '/':
		return single(KindDivide)
	case '%':
		return single(KindModulus)
	case '^':
		return single(KindPower)
	case ':':
		return single(KindColon)
	case '.':
		return single(KindDot)
	case ',':
		return single(KindComma)
	case '(':
		l.depth++
		return single(KindLParen)
	case '[':
		l.depth++
		return single(KindLBracket)
	case ')':
		l.depth = max(l.depth-1, 0)
		return single(KindRParen)
	case ']':
		l.depth = max(l.depth-1, 0)
		return single(KindRBracket)
	case '\'':
		return l.readString(KindSingleQuoted, column)
	case '"':
		return l.readString(KindDoubleQuoted, column)
	}

	switch {
	case isLetter(l.ch) || l.ch == '_':
		ident := l.readIdentifier()
		l.emit(LookupIdent(ident), ident, column)
		return nil
	case isDigit(l.ch):
		kind, literal := l.readNumber()
		l.emit(kind, literal, column)
		return nil
	}
	return storyerror.New(storyerror.UnexpectedToken, l.line, column, column+1, "`"+string(l.ch)+"`")
}

// pair emits a two-character token.
func (l *Lexer) pair(kind string, column int) error {
	literal := string([]byte{l.ch, l.peekChar()})
	l.readChar()
	l.readChar()
	l.emit(kind, literal, column)
	return nil
}

// readString reads a quoted string, keeping the quotes. Backslash escapes
// are left to the compiler.
func (l *Lexer) readString(kind string, column int) error {
	quote := l.ch
	start := l.pos
	l.readChar() // skip opening quote
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return storyerror.New(storyerror.UnterminatedString, l.line, column, l.column())
		}
		if l.ch == '\\' && l.peekChar() != 0 && l.peekChar() != '\n' {
			l.readChar() // skip escape
		}
		l.readChar()
	}
	l.readChar() // skip closing quote
	l.emit(kind, l.input[start:l.pos], column)
	return nil
}

// readIdentifier reads a name. A '-' or '/' followed by a letter continues
// the name, so that org/service-name is a single token.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for {
		switch {
		case isLetter(l.ch) || isDigit(l.ch) || l.ch == '_':
			l.readChar()
		case (l.ch == '-' || l.ch == '/') && isLetter(l.peekChar()):
			l.readChar()
		default:
			return l.input[start:l.pos]
		}
	}
}

// readNumber reads an integer or a decimal literal.
func (l *Lexer) readNumber() (string, string) {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
		return KindFloat, l.input[start:l.pos]
	}
	return KindInt, l.input[start:l.pos]
}

// isLetter returns true if ch is an ASCII letter.
func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Lex returns all tokens of input, ending with EOF.
func Lex(input string) ([]*tree.Token, error) {
	l := NewLexer(input)
	var tokens []*tree.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == KindEOF {
			return tokens, nil
		}
	}
}
