package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/model"
)

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
)

// Layout breakpoints.
const (
	// BreakpointNarrow is the width below which summary cards stack.
	BreakpointNarrow = 80
	// BreakpointWide is the width from which state bars sit beside the cards.
	BreakpointWide = 140
	// MinContentHeight is the minimum height of the table area.
	MinContentHeight = 5
)

// StateColor returns the color for a thread state. Unrecognized states are
// drawn in the secondary color.
func StateColor(s model.State, t Theme) lipgloss.TerminalColor {
	switch s {
	case model.StateRunnable:
		return t.Runnable
	case model.StateBlocked:
		return t.Blocked
	case model.StateWaiting:
		return t.Waiting
	case model.StateTimedWaiting:
		return t.TimedWaiting
	default:
		return t.Secondary
	}
}

// RenderStateBadge returns a styled state label.
func RenderStateBadge(s model.State, text string, t Theme) string {
	return t.Renderer.NewStyle().Foreground(StateColor(s, t)).Render(text)
}

// RenderHealthBadge returns a styled health tag. Only HOT and BLOCKED get
// a color of their own; other tags are opaque.
func RenderHealthBadge(h model.Health, text string, t Theme) string {
	style := t.Renderer.NewStyle()
	switch h {
	case model.HealthHot:
		style = style.Foreground(t.Hot).Bold(true)
	case model.HealthBlocked:
		style = style.Foreground(t.Blocked)
	default:
		style = style.Foreground(t.Subtext)
	}
	return style.Render(text)
}

// RenderSeverity colors a CPU percentage by its severity tier.
func RenderSeverity(text string, sev format.Severity, t Theme) string {
	style := t.Renderer.NewStyle()
	switch sev {
	case format.SeverityHigh:
		style = style.Foreground(t.Danger).Bold(true)
	case format.SeverityMedium:
		style = style.Foreground(t.Warning)
	default:
		style = style.Foreground(t.Secondary)
	}
	return style.Render(text)
}

// RenderMiniBar renders a mini horizontal bar for a value between 0 and 1
func RenderMiniBar(value float64, width int, color lipgloss.TerminalColor, t Theme) string {
	if width <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}

	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(color).Render(bar)
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}
