package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
)

// ColorMuted is the secondary text color, also used by the progress line.
const ColorMuted = lipgloss.Color("245")

const (
	colorAccent = lipgloss.Color("39")
	colorText   = lipgloss.Color("255")
)

var (
	headerBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1).
			MarginBottom(1)

	totalsBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	pathStyle   = valueStyle
	digestStyle = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
)

// outcomeStyles colors counts and section titles by what happened to the
// files they describe.
var outcomeStyles = map[checker.Outcome]lipgloss.Style{
	checker.Hashed:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	checker.Verified:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	checker.NotFound:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	checker.Failed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	checker.Unreadable: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	checker.Malformed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
}

func outcomeStyle(o checker.Outcome) lipgloss.Style {
	if s, ok := outcomeStyles[o]; ok {
		return s
	}
	return valueStyle
}
