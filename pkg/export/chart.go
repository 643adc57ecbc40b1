// Package export writes a thread report to files: a standalone HTML page,
// and SVG or PNG snapshots of the state distribution chart.
package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/kraitsura/tdv/pkg/model"
)

// bar is one column of the state distribution chart.
type bar struct {
	Label string
	Count int
	Color color.RGBA
}

var (
	colorRunnable = color.RGBA{0x2e, 0xa0, 0x43, 0xff}
	colorBlocked  = color.RGBA{0xdc, 0x35, 0x45, 0xff}
	colorWaiting  = color.RGBA{0x0d, 0x6e, 0xfd, 0xff}
	colorTimed    = color.RGBA{0x6f, 0x42, 0xc1, 0xff}
	colorOther    = color.RGBA{0x6c, 0x75, 0x7d, 0xff}
	colorHot      = color.RGBA{0xfd, 0x7e, 0x14, 0xff}
)

// stateBars returns the chart columns for s. States outside the four named
// ones are grouped as "other".
func stateBars(s model.SummaryCounts) []bar {
	other := s.Total - s.Runnable - s.Blocked - s.Waiting - s.TimedWaiting
	return []bar{
		{"RUNNABLE", s.Runnable, colorRunnable},
		{"BLOCKED", s.Blocked, colorBlocked},
		{"WAITING", s.Waiting, colorWaiting},
		{"TIMED_WAITING", s.TimedWaiting, colorTimed},
		{"other", other, colorOther},
		{"HOT", s.Hot, colorHot},
	}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Chart geometry, shared by the SVG and PNG renderings.
const (
	chartWidth   = 640
	chartHeight  = 260
	chartMargin  = 30
	chartLabelH  = 30
	chartBarGap  = 14
	chartTitleH  = 24
	chartMaxBarH = chartHeight - chartMargin - chartLabelH - chartTitleH
)

type barRect struct {
	bar
	X, Y, W, H int
}

func layoutBars(bars []bar) []barRect {
	highest := 0
	for _, b := range bars {
		if b.Count > highest {
			highest = b.Count
		}
	}
	n := len(bars)
	w := (chartWidth - 2*chartMargin - (n-1)*chartBarGap) / n
	base := chartHeight - chartLabelH

	rects := make([]barRect, n)
	for i, b := range bars {
		h := 0
		if highest > 0 {
			h = b.Count * chartMaxBarH / highest
		}
		rects[i] = barRect{
			bar: b,
			X:   chartMargin + i*(w+chartBarGap),
			Y:   base - h,
			W:   w,
			H:   h,
		}
	}
	return rects
}

// WriteStateChartSVG draws the state distribution of s as SVG.
func WriteStateChartSVG(w io.Writer, title string, s model.SummaryCounts) {
	canvas := svg.New(w)
	canvas.Start(chartWidth, chartHeight)
	canvas.Rect(0, 0, chartWidth, chartHeight, "fill:#ffffff")
	canvas.Text(chartMargin, chartTitleH-6, title, "font-family:sans-serif;font-size:14px;font-weight:bold;fill:#1a1a2e")

	for _, r := range layoutBars(stateBars(s)) {
		canvas.Rect(r.X, r.Y, r.W, r.H, "fill:"+hexColor(r.Color))
		canvas.Text(r.X+r.W/2, r.Y-4, strconv.Itoa(r.Count), "font-family:sans-serif;font-size:12px;text-anchor:middle;fill:#1a1a2e")
		canvas.Text(r.X+r.W/2, chartHeight-chartLabelH+16, r.Label, "font-family:sans-serif;font-size:10px;text-anchor:middle;fill:#6c757d")
	}
	canvas.End()
}

// WriteStateChartPNG draws the state distribution of s as PNG.
func WriteStateChartPNG(w io.Writer, title string, s model.SummaryCounts) error {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetRGB255(0x1a, 0x1a, 0x2e)
	dc.DrawString(title, chartMargin, chartTitleH-6)

	for _, r := range layoutBars(stateBars(s)) {
		dc.SetRGB255(int(r.Color.R), int(r.Color.G), int(r.Color.B))
		dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.W), float64(r.H))
		dc.Fill()

		cx := float64(r.X) + float64(r.W)/2
		dc.SetRGB255(0x1a, 0x1a, 0x2e)
		dc.DrawStringAnchored(strconv.Itoa(r.Count), cx, float64(r.Y-4), 0.5, 0)
		dc.SetRGB255(0x6c, 0x75, 0x7d)
		dc.DrawStringAnchored(r.Label, cx, float64(chartHeight-chartLabelH+16), 0.5, 0)
	}
	return dc.EncodePNG(w)
}

// SnapshotOptions configures SaveSnapshot.
type SnapshotOptions struct {
	Path    string
	Format  string // "svg" or "png"; empty means infer from Path
	Title   string
	Summary model.SummaryCounts
}

// SaveSnapshot writes the state distribution chart to opts.Path.
func SaveSnapshot(opts SnapshotOptions) error {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Path)), ".")
	}
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("Thread states (%d threads)", opts.Summary.Total)
	}

	var buf bytes.Buffer
	switch format {
	case "svg":
		WriteStateChartSVG(&buf, title, opts.Summary)
	case "png":
		if err := WriteStateChartPNG(&buf, title, opts.Summary); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	default:
		return fmt.Errorf("unsupported snapshot format %q (want svg or png)", format)
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
