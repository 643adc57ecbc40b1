package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/report"
)

// HTMLOptions configures the HTML report.
type HTMLOptions struct {
	Title       string
	Source      string    // dump file the report was built from
	GeneratedAt time.Time // zero means now
	// VisibleOnly exports only the rows passing the report's current filter.
	VisibleOnly bool
}

// RenderHTML returns a standalone HTML page for r. Every value taken from
// the thread data is escaped.
func RenderHTML(r *report.Report, opts HTMLOptions) []byte {
	if opts.Title == "" {
		opts.Title = "Thread Dump Report"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	esc := format.EscapeHTML

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n", esc(opts.Title), reportCSS)

	fmt.Fprintf(&b, "<header><h1>%s</h1><p>", esc(opts.Title))
	if opts.Source != "" {
		fmt.Fprintf(&b, "%s &middot; ", esc(opts.Source))
	}
	fmt.Fprintf(&b, "generated %s</p></header>\n", esc(opts.GeneratedAt.Format(time.RFC1123)))

	writeSummary(&b, r)
	writeChart(&b, r)
	writeTable(&b, r, opts.VisibleOnly)

	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}

func writeSummary(b *bytes.Buffer, r *report.Report) {
	s := r.Summary()
	cards := []struct {
		label string
		value int
		class string
	}{
		{"Total", s.Total, ""},
		{"Runnable", s.Runnable, "green"},
		{"Blocked", s.Blocked, "red"},
		{"Waiting", s.Waiting, "blue"},
		{"Timed Waiting", s.TimedWaiting, "purple"},
		{"Hot", s.Hot, "orange"},
		{"Daemon", s.Daemon, ""},
	}
	b.WriteString("<section class=\"cards\">\n")
	for _, c := range cards {
		fmt.Fprintf(b, "<div class=\"card %s\"><div class=\"value\">%d</div><div class=\"label\">%s</div></div>\n",
			c.class, c.value, format.EscapeHTML(c.label))
	}
	b.WriteString("</section>\n")

	if cpu := r.CPUStats(); cpu.Measured > 0 {
		fmt.Fprintf(b, "<p class=\"cpu\">CPU%%: mean %s &middot; p95 %s &middot; max %s (%s) &middot; total CPU %s ms over %d threads</p>\n",
			pct(cpu.MeanPercent), pct(cpu.P95Percent), pct(cpu.MaxPercent),
			format.EscapeHTML(cpu.Busiest), format.Duration(&cpu.TotalCPUMs), cpu.Measured)
	}
}

func pct(v float64) string {
	s, _ := format.Percent(&v)
	return s
}

func writeChart(b *bytes.Buffer, r *report.Report) {
	var chart bytes.Buffer
	WriteStateChartSVG(&chart, "Thread states", r.Summary())
	fmt.Fprintf(b, "<section class=\"chart\"><img alt=\"Thread state distribution\" src=\"data:image/svg+xml;base64,%s\"></section>\n",
		base64.StdEncoding.EncodeToString(chart.Bytes()))
}

func severityClass(s format.Severity) string {
	switch s {
	case format.SeverityHigh:
		return "red"
	case format.SeverityMedium:
		return "yellow"
	case format.SeverityLow:
		return "muted"
	}
	return "muted"
}

func writeTable(b *bytes.Buffer, r *report.Report, visibleOnly bool) {
	esc := format.EscapeHTML
	rows := r.Rows()
	if visibleOnly {
		rows = r.VisibleRows()
	}

	b.WriteString("<table>\n<thead><tr>")
	for _, h := range report.Headers {
		fmt.Fprintf(b, "<th>%s</th>", esc(h))
	}
	b.WriteString("</tr></thead>\n<tbody>\n")

	for _, row := range rows {
		c := row.Cells
		cls := func(col int) string {
			switch col {
			case report.ColState:
				return "badge badge-" + esc(c[col])
			case report.ColHealth:
				return "health health-" + esc(c[col])
			case report.ColDaemon:
				if row.Daemon {
					return "muted"
				}
				return "yellow"
			case report.ColCPUPercent:
				return severityClass(row.Severity)
			case report.ColTID, report.ColNID, report.ColNIDDecimal:
				return "mono"
			case report.ColCPU:
				return "blue"
			case report.ColLockInfo:
				return "small"
			}
			return ""
		}

		fmt.Fprintf(b, "<tr id=\"thread-%d\">", row.Ordinal)
		for col := 0; col < report.NumColumns; col++ {
			switch col {
			case report.ColLockInfo:
				fmt.Fprintf(b, "<td class=\"%s\" title=\"%s\">%s</td>", cls(col), esc(row.Detail.LockInfo), esc(c[col]))
			case report.ColTrace:
				fmt.Fprintf(b, "<td><a href=\"#trace-%d\">%s</a></td>", row.Ordinal, esc(c[col]))
			default:
				fmt.Fprintf(b, "<td class=\"%s\">%s</td>", cls(col), esc(c[col]))
			}
		}
		b.WriteString("</tr>\n")

		fmt.Fprintf(b, "<tr class=\"stack-row\"><td colspan=\"%d\"><details id=\"trace-%d\"><summary>%s</summary>",
			report.NumColumns, row.Ordinal, esc(row.Cells[report.ColName]))
		if row.Detail.HasTrace {
			fmt.Fprintf(b, "<pre>%s</pre>", esc(row.Detail.StackTrace))
		} else {
			fmt.Fprintf(b, "<span class=\"muted\">%s</span>", esc(row.Detail.StackTrace))
		}
		b.WriteString("</details></td></tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")

	if len(rows) == 0 {
		b.WriteString("<p class=\"empty\">No threads match the current filter.</p>\n")
	}
}

// SaveHTML writes the report page to path.
func SaveHTML(path string, r *report.Report, opts HTMLOptions) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, RenderHTML(r, opts), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// WriteBundle writes the report as index.html in dir, ready for the
// preview server.
func WriteBundle(dir string, r *report.Report, opts HTMLOptions) (string, error) {
	path := filepath.Join(dir, "index.html")
	return path, SaveHTML(path, r, opts)
}

var reportCSS = strings.Join([]string{
	":root{--bg:#fff;--fg:#1a1a2e;--card:#f8f9fa;--border:#dee2e6;--muted:#6c757d}",
	"@media (prefers-color-scheme:dark){:root{--bg:#1a1a2e;--fg:#e9ecef;--card:#16213e;--border:#495057;--muted:#adb5bd}}",
	"body{font-family:-apple-system,BlinkMacSystemFont,\"Segoe UI\",Roboto,sans-serif;background:var(--bg);color:var(--fg);margin:0 auto;padding:1rem;max-width:1600px}",
	"header p,.muted{color:var(--muted)}",
	".cards{display:grid;grid-template-columns:repeat(auto-fit,minmax(110px,1fr));gap:.75rem;margin:1rem 0}",
	".card{background:var(--card);border:1px solid var(--border);border-radius:8px;padding:.75rem;text-align:center}",
	".card .value{font-size:1.5rem;font-weight:700}.card .label{font-size:.75rem;color:var(--muted);text-transform:uppercase}",
	"table{width:100%;border-collapse:collapse;font-size:.8rem}th,td{padding:.4rem .5rem;text-align:left;border-bottom:1px solid var(--border)}",
	"thead{position:sticky;top:0;background:var(--card)}",
	".stack-row td{border-bottom:none;padding:0 .5rem}.stack-row summary{cursor:pointer;color:var(--muted);font-size:.75rem}",
	"pre{font-size:.75rem;white-space:pre-wrap;margin:.25rem 0 .75rem}",
	".mono{font-family:ui-monospace,monospace}.small{font-size:.75rem}",
	".red,.badge-BLOCKED,.health-BLOCKED{color:#dc3545}.yellow{color:#d39e00}.green,.badge-RUNNABLE{color:#2ea043}",
	".blue,.badge-WAITING{color:#0d6efd}.purple,.badge-TIMED_WAITING{color:#6f42c1}.orange,.health-HOT{color:#fd7e14;font-weight:700}",
	".empty{text-align:center;color:var(--muted);padding:2rem}",
}, "\n")
