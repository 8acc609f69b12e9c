package theme

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles maps the engine's output roles onto a palette.
type Styles struct {
	Prompt    lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Heading   lipgloss.Style
	Category  lipgloss.Style
	Command   lipgloss.Style
	Directory lipgloss.Style
	Banner    lipgloss.Style
	Muted     lipgloss.Style
}

// NewStyles builds role styles for p. Output always goes to a remote
// terminal, so the renderer is pinned to true color instead of probing the
// local stdout.
func NewStyles(p Palette) Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	r.SetHasDarkBackground(true)
	role := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	return Styles{
		Prompt:    role(p.Green),
		Error:     role(p.Red),
		Success:   role(p.Green),
		Heading:   role(p.Yellow),
		Category:  role(p.Magenta),
		Command:   role(p.Cyan),
		Directory: role(p.Blue),
		Banner:    role(p.Yellow),
		Muted:     r.NewStyle().Foreground(lipgloss.Color(p.BrightBlack)),
	}
}
