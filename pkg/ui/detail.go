package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/model"
	"github.com/kraitsura/tdv/pkg/report"
)

// threadMarkdown describes one thread as markdown for the detail pane.
// Every value is made terminal-safe first; stack traces go into a fenced
// block so markdown in frame names is not interpreted.
func threadMarkdown(t model.ThreadRecord, row report.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", format.SingleLine(t.Name))

	fields := []struct{ name, value string }{
		{"Ordinal", row.Cells[report.ColOrdinal]},
		{"Thread no.", row.Cells[report.ColThreadNum]},
		{"State", row.Cells[report.ColState]},
		{"State detail", row.Cells[report.ColStateDetail]},
		{"Health", row.Cells[report.ColHealth]},
		{"Daemon", row.Cells[report.ColDaemon]},
		{"Priority", row.Cells[report.ColPriority]},
		{"OS priority", row.Cells[report.ColOSPriority]},
		{"TID", row.Cells[report.ColTID]},
		{"NID", row.Cells[report.ColNID]},
		{"NID (decimal)", row.Cells[report.ColNIDDecimal]},
		{"CPU ms", row.Cells[report.ColCPU]},
		{"Elapsed ms", row.Cells[report.ColElapsed]},
		{"CPU %", row.Cells[report.ColCPUPercent]},
	}
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, f := range fields {
		v := format.SingleLine(f.value)
		if v == "" {
			v = " "
		}
		fmt.Fprintf(&b, "| %s | %s |\n", f.name, strings.ReplaceAll(v, "|", "\\|"))
	}

	if row.Detail.LockInfo != "" {
		b.WriteString("\n## Lock\n\n```\n")
		b.WriteString(fence(format.SanitizeTerminal(row.Detail.LockInfo)))
		b.WriteString("\n```\n")
	}

	b.WriteString("\n## Stack trace\n\n")
	if !row.Detail.HasTrace {
		fmt.Fprintf(&b, "_%s_\n", row.Detail.StackTrace)
		return b.String()
	}
	b.WriteString("```\n")
	b.WriteString(fence(format.SanitizeTerminal(strings.TrimRight(row.Detail.StackTrace, "\n"))))
	b.WriteString("\n```\n")
	return b.String()
}

// fence keeps content from closing the surrounding code block.
func fence(s string) string {
	return strings.ReplaceAll(s, "```", "` ` `")
}

// renderMarkdown renders md for a terminal of the given width, falling
// back to the raw markdown if glamour fails.
func renderMarkdown(md string, width int, theme Theme) string {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.Name),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
