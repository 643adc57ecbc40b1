package report

import (
	"context"

	"github.com/kraitsura/tdv/pkg/analysis"
	"github.com/kraitsura/tdv/pkg/model"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// Report is the view of one analysis result: rendered rows, summary counts
// and the filter/detail state that belongs to them. A new analysis builds
// a new Report; nothing carries over from the previous one.
type Report struct {
	rows     []Row
	summary  model.SummaryCounts
	cpu      analysis.CPUStats
	threads  []model.ThreadRecord
	criteria Criteria
	details  *DetailToggle

	visibleCount int
}

// Build summarizes and renders a thread collection. The summary and the
// rows are computed concurrently over the same read-only input; the report
// is returned only when both finished, so callers never see a summary
// without its table. All rows start visible with their details closed.
func Build(ctx context.Context, threads []model.ThreadRecord, opts RenderOptions) (*Report, error) {
	var (
		rows    []Row
		summary model.SummaryCounts
		cpu     analysis.CPUStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		summary = analysis.Summarize(threads)
		cpu = analysis.ComputeCPUStats(threads)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		rows, err = RenderRows(threads, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		rows:         rows,
		summary:      summary,
		cpu:          cpu,
		threads:      threads,
		details:      NewDetailToggle(),
		visibleCount: len(rows),
	}, nil
}

// Summary returns the summary counts.
func (r *Report) Summary() model.SummaryCounts {
	return r.summary
}

// CPUStats returns the CPU usage distribution.
func (r *Report) CPUStats() analysis.CPUStats {
	return r.cpu
}

// Len returns the number of rows.
func (r *Report) Len() int {
	return len(r.rows)
}

// Rows returns a copy of all rows, visible or not.
func (r *Report) Rows() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// Row returns the row with the given 1-based ordinal.
func (r *Report) Row(ordinal int) (Row, bool) {
	if ordinal < 1 || ordinal > len(r.rows) {
		return Row{}, false
	}
	return r.rows[ordinal-1], true
}

// Thread returns the record behind a row.
func (r *Report) Thread(ordinal int) (model.ThreadRecord, bool) {
	if ordinal < 1 || ordinal > len(r.threads) {
		return model.ThreadRecord{}, false
	}
	return r.threads[ordinal-1], true
}

// visibleNames adapts the visible rows for fuzzy matching.
type visibleNames []Row

func (v visibleNames) String(i int) string { return v[i].Cells[ColName] }
func (v visibleNames) Len() int            { return len(v) }

// Jump finds the visible row whose name best matches query, fuzzily.
// It returns the row's ordinal.
func (r *Report) Jump(query string) (int, bool) {
	if query == "" {
		return 0, false
	}
	rows := visibleNames(r.VisibleRows())
	matches := fuzzy.FindFrom(query, rows)
	if len(matches) == 0 {
		return 0, false
	}
	return rows[matches[0].Index].Ordinal, true
}
