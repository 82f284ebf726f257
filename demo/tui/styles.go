package tui

import (
	"github.com/charmbracelet/lipgloss"

	"slidestudio/types"
)

// Palette, matched to the slide panel and accent colors of rendered slides
const (
	colorAccent  = "#4DA6FF"
	colorPanel   = "#1E2128"
	colorBody    = "#E0E0E0"
	colorMuted   = "#7A7F8A"
	colorDone    = "#04B575"
	colorFailed  = "#FF5F5F"
	colorWorking = "#F5C542"
)

var (
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorAccent)).
		MarginTop(1)

	StatusStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorWorking))

	ErrorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorFailed))

	InfoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorMuted))

	// BoxStyle frames the finished run like a slide: dark panel, accent rule on the left.
	BoxStyle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(colorAccent)).
		Background(lipgloss.Color(colorPanel)).
		Foreground(lipgloss.Color(colorBody)).
		Padding(1, 2)

	HighlightStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorPanel)).
		Background(lipgloss.Color(colorDone)).
		Padding(0, 1)
)

var slideStyles = map[types.SlideState]lipgloss.Style{
	types.SlidePending:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)),
	types.SlideUnitReady: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDone)),
	types.SlideFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorFailed)),
}

// slideStyle colors a slide row by state; in-progress states share one color.
func slideStyle(s types.SlideState) lipgloss.Style {
	if st, ok := slideStyles[s]; ok {
		return st
	}
	return StatusStyle
}
