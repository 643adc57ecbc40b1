package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/tdv/pkg/analysis"
	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/model"
)

type summaryCard struct {
	label string
	value int
	color lipgloss.TerminalColor
}

func summaryCards(s model.SummaryCounts, t Theme) []summaryCard {
	return []summaryCard{
		{"Total", s.Total, t.Primary},
		{"Runnable", s.Runnable, t.Runnable},
		{"Blocked", s.Blocked, t.Blocked},
		{"Waiting", s.Waiting, t.Waiting},
		{"Timed Waiting", s.TimedWaiting, t.TimedWaiting},
		{"Hot", s.Hot, t.Hot},
		{"Daemon", s.Daemon, t.Subtext},
	}
}

// renderSummary renders the summary counts as a row of cards, or as a
// compact line when the terminal is narrow.
func renderSummary(s model.SummaryCounts, width int, t Theme) string {
	cards := summaryCards(s, t)

	if width < BreakpointNarrow {
		parts := make([]string, len(cards))
		for i, c := range cards {
			v := t.Renderer.NewStyle().Foreground(c.color).Bold(true).Render(strconv.Itoa(c.value))
			parts[i] = c.label + " " + v
		}
		return strings.Join(parts, "  ")
	}

	cardWidth := (width - SpaceSM) / len(cards)
	if cardWidth > 16 {
		cardWidth = 16
	}
	boxes := make([]string, len(cards))
	for i, c := range cards {
		value := t.Renderer.NewStyle().Foreground(c.color).Bold(true).Render(strconv.Itoa(c.value))
		label := t.Renderer.NewStyle().Foreground(t.Subtext).Render(strings.ToUpper(c.label))
		boxes[i] = t.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Width(cardWidth - 2).
			Align(lipgloss.Center).
			Render(value + "\n" + label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// renderStateBars renders the state breakdown with mini bars.
func renderStateBars(s model.SummaryCounts, t Theme) []string {
	total := s.Total
	if total == 0 {
		total = 1
	}
	rows := []struct {
		label string
		count int
		color lipgloss.TerminalColor
	}{
		{"Runnable:", s.Runnable, t.Runnable},
		{"Blocked:", s.Blocked, t.Blocked},
		{"Waiting:", s.Waiting, t.Waiting},
		{"Timed:", s.TimedWaiting, t.TimedWaiting},
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		dot := t.Renderer.NewStyle().Foreground(r.color).Render("●")
		lines[i] = fmt.Sprintf(" %s %-10s %4d %s", dot, r.label, r.count,
			RenderMiniBar(float64(r.count)/float64(total), 10, r.color, t))
	}
	return lines
}

// renderCPUStats renders the CPU usage line, or "" when no thread has a
// measured percentage.
func renderCPUStats(c analysis.CPUStats, t Theme) string {
	if c.Measured == 0 {
		return ""
	}
	label := t.Renderer.NewStyle().Foreground(t.Secondary).Render("CPU")
	maxText, sev := format.Percent(&c.MaxPercent)
	busiest := ""
	if c.Busiest != "" {
		busiest = " (" + format.SingleLine(c.Busiest) + ")"
	}
	return fmt.Sprintf("%s  mean %s · p95 %s · max %s%s · total %s ms · %d measured",
		label,
		pctText(c.MeanPercent),
		pctText(c.P95Percent),
		RenderSeverity(maxText, sev, t),
		busiest,
		format.Duration(&c.TotalCPUMs),
		c.Measured,
	)
}

func pctText(v float64) string {
	s, _ := format.Percent(&v)
	return s
}
