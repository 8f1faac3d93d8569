package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

// Styles colors status text. Colors are dropped when w is not a terminal.
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

func newStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s *Styles) status(st core.RunStatus) string {
	switch st {
	case core.RunStatusCompleted:
		return s.Success.Render(string(st))
	case core.RunStatusHalted:
		return s.Warning.Render(string(st))
	case core.RunStatusFailed:
		return s.Error.Render(string(st))
	default:
		return s.Muted.Render(string(st))
	}
}
