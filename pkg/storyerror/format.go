package storyerror

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Color modes accepted by UseColor.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type styles struct {
	enabled bool
	header  lipgloss.Style
	gutter  lipgloss.Style
	caret   lipgloss.Style
	code    lipgloss.Style
}

func (s styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

func newStyles(color bool) styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	return styles{
		enabled: color,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		gutter:  r.NewStyle().Foreground(lipgloss.Color("8")),
		caret:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		code:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}

// Report renders the diagnostic as a multi-line message: a header naming the
// position, the offending source line with a caret marker, and the coded
// message.
func (e *Error) Report(color bool) string {
	s := newStyles(color)
	story := e.Path
	if story == "" {
		story = "story"
	}

	var sb strings.Builder
	sb.WriteString(s.render(s.header, fmt.Sprintf("Error: syntax error in %s at line %d, column %d", story, e.Line, e.Column)))
	sb.WriteString("\n\n")

	if text, ok := sourceLine(e.Source, e.Line); ok {
		gutter := fmt.Sprintf("%d|    ", e.Line)
		sb.WriteString(s.render(s.gutter, gutter))
		sb.WriteString(text)
		sb.WriteString("\n")

		width := e.EndColumn - e.Column
		if width < 1 {
			width = 1
		}
		sb.WriteString(strings.Repeat(" ", len(gutter)+max(e.Column-1, 0)))
		sb.WriteString(s.render(s.caret, strings.Repeat("^", width)))
		sb.WriteString("\n\n")
	}

	if e.Code != "" {
		sb.WriteString(s.render(s.code, string(e.Code)))
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	sb.WriteString("\n")
	return sb.String()
}

func sourceLine(source string, line int) (string, bool) {
	if source == "" || line < 1 {
		return "", false
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[line-1], "\r"), true
}

// UseColor decides whether reports written to f are coloured. In auto mode
// colour is used only for terminals and when NO_COLOR is unset.
func UseColor(mode string, f *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}
