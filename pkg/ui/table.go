package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/report"
)

// column describes one table column in the terminal.
type column struct {
	Index int
	Width int
	Right bool
}

// columnWidths are the preferred terminal widths, by report column.
var columnWidths = [report.NumColumns]int{
	report.ColOrdinal:     4,
	report.ColName:        28,
	report.ColThreadNum:   6,
	report.ColState:       13,
	report.ColStateDetail: 20,
	report.ColHealth:      7,
	report.ColDaemon:      6,
	report.ColPriority:    4,
	report.ColOSPriority:  7,
	report.ColTID:         18,
	report.ColNID:         8,
	report.ColNIDDecimal:  9,
	report.ColCPU:         11,
	report.ColElapsed:     11,
	report.ColCPUPercent:  6,
	report.ColLockInfo:    format.DefaultLockInfoWidth + 1,
	report.ColTrace:       8,
}

// columnPriority is the order in which columns are given space. The first
// group is always shown; the rest are added while the terminal is wide
// enough.
var columnPriority = []int{
	report.ColOrdinal, report.ColName, report.ColState, report.ColHealth,
	report.ColCPUPercent, report.ColTrace,
	report.ColCPU, report.ColNID, report.ColDaemon, report.ColLockInfo,
	report.ColElapsed, report.ColThreadNum, report.ColStateDetail,
	report.ColPriority, report.ColOSPriority, report.ColNIDDecimal, report.ColTID,
}

const alwaysShown = 6

func rightAligned(col int) bool {
	switch col {
	case report.ColOrdinal, report.ColCPU, report.ColElapsed, report.ColCPUPercent,
		report.ColPriority, report.ColOSPriority, report.ColNIDDecimal:
		return true
	}
	return false
}

// layoutColumns picks the columns that fit in width, in display order.
func layoutColumns(width int) []column {
	chosen := make(map[int]bool, report.NumColumns)
	used := 0
	for i, col := range columnPriority {
		w := columnWidths[col] + 1
		if i >= alwaysShown && used+w > width {
			continue
		}
		chosen[col] = true
		used += w
	}

	cols := make([]column, 0, len(chosen))
	for idx := 0; idx < report.NumColumns; idx++ {
		if chosen[idx] {
			cols = append(cols, column{Index: idx, Width: columnWidths[idx], Right: rightAligned(idx)})
		}
	}
	return cols
}

// fitCell makes s safe for the terminal and pads or truncates it to
// exactly width cells.
func fitCell(s string, width int, right bool) string {
	s = format.SingleLine(s)
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, format.Ellipsis)
	}
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

// tableLine is one rendered terminal line of the table body.
type tableLine struct {
	text    string
	ordinal int  // row the line belongs to
	detail  bool // part of the expanded trace
}

func (m Model) renderHeader(cols []column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fitCell(report.Headers[c.Index], c.Width, c.Right)
	}
	style := m.theme.Renderer.NewStyle().Bold(true).Foreground(m.theme.Primary)
	return style.Render(strings.Join(parts, " "))
}

func (m Model) renderRow(row report.Row, cols []column, selected bool) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		cell := fitCell(row.Cells[c.Index], c.Width, c.Right)
		if selected {
			parts[i] = cell
			continue
		}
		switch c.Index {
		case report.ColState:
			cell = RenderStateBadge(row.Key.State, cell, m.theme)
		case report.ColHealth:
			cell = RenderHealthBadge(row.Key.Health, cell, m.theme)
		case report.ColCPUPercent:
			cell = RenderSeverity(cell, row.Severity, m.theme)
		case report.ColDaemon:
			if !row.Daemon {
				cell = m.theme.Renderer.NewStyle().Foreground(m.theme.Warning).Render(cell)
			}
		}
		parts[i] = cell
	}
	line := strings.Join(parts, " ")
	if selected {
		return m.theme.Renderer.NewStyle().
			Background(m.theme.Highlight).
			Bold(true).
			Render(line)
	}
	return line
}

// detailLines renders a row's expanded trace, indented under the row.
func (m Model) detailLines(row report.Row, width int) []string {
	style := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)
	indent := "      "
	avail := width - len(indent)
	if avail < 10 {
		avail = 10
	}

	var lines []string
	if row.Detail.LockInfo != "" {
		lines = append(lines, style.Render(indent+fitCell("lock: "+row.Detail.LockInfo, avail, false)))
	}
	if !row.Detail.HasTrace {
		return append(lines, style.Italic(true).Render(indent+row.Detail.StackTrace))
	}
	trace := strings.ReplaceAll(row.Detail.StackTrace, "\r\n", "\n")
	trace = format.SanitizeTerminal(trace)
	trace = strings.ReplaceAll(trace, "\t", "    ")
	for _, l := range strings.Split(strings.TrimRight(trace, "\n"), "\n") {
		if runewidth.StringWidth(l) > avail {
			l = runewidth.Truncate(l, avail, format.Ellipsis)
		}
		lines = append(lines, style.Render(indent+l))
	}
	return lines
}

// tableLines renders every visible row plus the traces of open rows.
func (m Model) tableLines(cols []column, width int) []tableLine {
	rep := m.session.Report()
	rows := rep.VisibleRows()
	lines := make([]tableLine, 0, len(rows))
	for i, row := range rows {
		lines = append(lines, tableLine{
			text:    m.renderRow(row, cols, i == m.cursor),
			ordinal: row.Ordinal,
		})
		if rep.DetailVisible(row.Ordinal) {
			for _, d := range m.detailLines(row, width) {
				lines = append(lines, tableLine{text: d, ordinal: row.Ordinal, detail: true})
			}
		}
	}
	return lines
}

// scrollWindow returns the first line to show so that line cur is inside
// a window of height lines starting near offset.
func scrollWindow(offset, cur, height, total int) int {
	if height <= 0 {
		return 0
	}
	if cur < offset {
		offset = cur
	}
	if cur >= offset+height {
		offset = cur - height + 1
	}
	if last := total - height; offset > last {
		offset = last
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}
