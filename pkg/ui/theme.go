package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme carries the renderer and the adaptive colors used by every view.
type Theme struct {
	Renderer *lipgloss.Renderer
	Name     string // "dark" or "light"

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor

	Runnable     lipgloss.AdaptiveColor
	Blocked      lipgloss.AdaptiveColor
	Waiting      lipgloss.AdaptiveColor
	TimedWaiting lipgloss.AdaptiveColor
	Hot          lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor
}

// DefaultTheme returns the Dracula-based theme. name selects the light or
// dark variants of the adaptive colors; anything but "light" is dark.
func DefaultTheme(r *lipgloss.Renderer, name string) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if name != "light" {
		name = "dark"
	}
	r.SetHasDarkBackground(name == "dark")

	return Theme{
		Renderer: r,
		Name:     name,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#EEEEEE", Dark: "#44475A"},

		Runnable:     lipgloss.AdaptiveColor{Light: "#00A800", Dark: "#50FA7B"},
		Blocked:      lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"},
		Waiting:      lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		TimedWaiting: lipgloss.AdaptiveColor{Light: "#7A3DB8", Dark: "#BD93F9"},
		Hot:          lipgloss.AdaptiveColor{Light: "#C05000", Dark: "#FFB86C"},

		Success: lipgloss.AdaptiveColor{Light: "#00A800", Dark: "#50FA7B"},
		Warning: lipgloss.AdaptiveColor{Light: "#A08000", Dark: "#F1FA8C"},
		Danger:  lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"},
	}
}
