package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the text styles of a renderer.
type Styles struct {
	Header1   lipgloss.Style
	Header2   lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
	Muted     lipgloss.Style
	StoryPath lipgloss.Style
}

// NewStyles creates the styles, plain unless color is set.
func NewStyles(color bool) *Styles {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Header1:   r.NewStyle().Bold(true).Underline(true),
		Header2:   r.NewStyle().Bold(true),
		Success:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:      r.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		StoryPath: r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}
