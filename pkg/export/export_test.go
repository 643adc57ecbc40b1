package export

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kraitsura/tdv/pkg/model"
	"github.com/kraitsura/tdv/pkg/report"
)

func testReport(t *testing.T) *report.Report {
	t.Helper()
	threads := []model.ThreadRecord{
		{
			Name: "main", ThreadNum: 1, State: model.StateRunnable, Health: model.HealthHot,
			Priority: 5, OSPriority: 0, CPUPercent: model.Float(55), CPUMs: model.Float(1234.5),
			StackTrace: "at Main.run(Main.java:10)",
		},
		{
			Name: "<script>alert(1)</script>", ThreadNum: model.Unknown, State: model.StateBlocked,
			Health: model.HealthBlocked, Priority: model.Unknown, OSPriority: model.Unknown,
			LockInfo: `waiting to lock <0x1> (a "java.lang.Object") & more`,
		},
	}
	r, err := report.Build(context.Background(), threads, report.RenderOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func TestRenderHTML_EscapesThreadData(t *testing.T) {
	r := testReport(t)
	page := string(RenderHTML(r, HTMLOptions{Title: "Dump <1>", GeneratedAt: time.Unix(0, 0)}))

	if strings.Contains(page, "<script>") {
		t.Error("thread name must be escaped")
	}
	if !strings.Contains(page, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Error("escaped thread name missing")
	}
	if !strings.Contains(page, "&quot;java.lang.Object&quot;) &amp; more") {
		t.Error("lock info should be escaped in full in the title attribute")
	}
	if !strings.Contains(page, "<title>Dump &lt;1&gt;</title>") {
		t.Error("title must be escaped")
	}
}

func TestRenderHTML_Structure(t *testing.T) {
	r := testReport(t)
	page := string(RenderHTML(r, HTMLOptions{Source: "dump.txt"}))

	if got := strings.Count(page, "<th>"); got != report.NumColumns {
		t.Errorf("expected %d header cells, got %d", report.NumColumns, got)
	}
	if got := strings.Count(page, "<details id=\"trace-"); got != 2 {
		t.Errorf("expected 2 detail rows, got %d", got)
	}
	for _, want := range []string{
		"at Main.run(Main.java:10)",
		"No stack trace available",
		"data:image/svg+xml;base64,",
		"class=\"red\">55.0%",
		"dump.txt",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "No threads match") {
		t.Error("empty message shown with rows present")
	}
}

func TestRenderHTML_VisibleOnly(t *testing.T) {
	r := testReport(t)
	r.ApplyFilter(report.Criteria{Query: "no-such-thread"})

	page := string(RenderHTML(r, HTMLOptions{VisibleOnly: true}))
	if strings.Contains(page, "<details") {
		t.Error("filtered-out rows must not be exported")
	}
	if !strings.Contains(page, "No threads match the current filter.") {
		t.Error("expected the empty message")
	}

	page = string(RenderHTML(r, HTMLOptions{}))
	if strings.Count(page, "<details") != 2 {
		t.Error("full export should ignore the filter")
	}
}

func TestWriteBundle(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteBundle(dir, testReport(t), HTMLOptions{})
	if err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	if path != filepath.Join(dir, "index.html") {
		t.Errorf("path = %s", path)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("index.html not written: %v", err)
	}
}

func TestSaveSnapshot_SVGAndPNG(t *testing.T) {
	summary := testReport(t).Summary()
	tmp := t.TempDir()

	for _, name := range []string{"states.svg", "states.png"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(tmp, name)
			if err := SaveSnapshot(SnapshotOptions{Path: out, Summary: summary}); err != nil {
				t.Fatalf("SaveSnapshot error: %v", err)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if len(data) == 0 {
				t.Fatal("output file is empty")
			}
			if strings.HasSuffix(name, ".png") {
				img, err := png.Decode(bytes.NewReader(data))
				if err != nil {
					t.Fatalf("invalid png: %v", err)
				}
				if img.Bounds().Dx() != chartWidth || img.Bounds().Dy() != chartHeight {
					t.Errorf("unexpected size %v", img.Bounds())
				}
			} else if !strings.Contains(string(data), "<svg") {
				t.Error("svg output missing <svg> element")
			}
		})
	}
}

func TestSaveSnapshot_InvalidFormat(t *testing.T) {
	err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(t.TempDir(), "chart.txt")})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestStateBars(t *testing.T) {
	bars := stateBars(model.SummaryCounts{Total: 10, Runnable: 3, Blocked: 2, Waiting: 1, TimedWaiting: 1, Hot: 2})
	if bars[4].Label != "other" || bars[4].Count != 3 {
		t.Errorf("other bar = %+v", bars[4])
	}

	rects := layoutBars(bars)
	if rects[0].H != chartMaxBarH {
		t.Errorf("tallest bar should use the full height, got %d", rects[0].H)
	}
	for _, r := range layoutBars(stateBars(model.SummaryCounts{})) {
		if r.H != 0 {
			t.Error("empty summary should draw zero-height bars")
		}
	}
}
