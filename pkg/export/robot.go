package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kraitsura/tdv/pkg/analysis"
	"github.com/kraitsura/tdv/pkg/model"
	"github.com/kraitsura/tdv/pkg/report"
)

// RobotFilter echoes the filter a robot output was produced with.
type RobotFilter struct {
	Query  string       `json:"query,omitempty"`
	State  model.State  `json:"state,omitempty"`
	Health model.Health `json:"health,omitempty"`
}

// RobotSummary is the --robot-summary document.
type RobotSummary struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Source      string              `json:"source,omitempty"`
	Summary     model.SummaryCounts `json:"summary"`
	CPU         analysis.CPUStats   `json:"cpu"`
	Filter      RobotFilter         `json:"filter"`
	Visible     int                 `json:"visible"`
	States      []model.State       `json:"states"`
	Healths     []model.Health      `json:"healths"`
}

// RobotRow is one visible thread in the --robot-rows document.
type RobotRow struct {
	Ordinal int                `json:"ordinal"`
	Thread  model.ThreadRecord `json:"thread"`
	Display map[string]string  `json:"display"`
}

// RobotRows is the --robot-rows document.
type RobotRows struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Source      string      `json:"source,omitempty"`
	Filter      RobotFilter `json:"filter"`
	Rows        []RobotRow  `json:"rows"`
}

func robotFilter(r *report.Report) RobotFilter {
	c := r.Criteria()
	return RobotFilter{Query: c.Query, State: c.State, Health: c.Health}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode robot output: %w", err)
	}
	return nil
}

// WriteRobotSummary writes the report summary as JSON. The summary always
// covers the full collection; Visible counts the rows passing the filter.
func WriteRobotSummary(w io.Writer, r *report.Report, source string, now time.Time) error {
	return writeJSON(w, RobotSummary{
		GeneratedAt: now.UTC(),
		Source:      source,
		Summary:     r.Summary(),
		CPU:         r.CPUStats(),
		Filter:      robotFilter(r),
		Visible:     r.VisibleCount(),
		States:      r.StateOptions(),
		Healths:     r.HealthOptions(),
	})
}

// WriteRobotRows writes the visible rows as JSON, each with its raw record
// and the formatted cell values keyed by column header.
func WriteRobotRows(w io.Writer, r *report.Report, source string, now time.Time) error {
	visible := r.VisibleRows()
	rows := make([]RobotRow, 0, len(visible))
	for _, row := range visible {
		t, _ := r.Thread(row.Ordinal)
		display := make(map[string]string, report.NumColumns)
		for i, h := range report.Headers {
			if i == report.ColTrace {
				continue
			}
			display[h] = row.Cells[i]
		}
		rows = append(rows, RobotRow{Ordinal: row.Ordinal, Thread: t, Display: display})
	}
	return writeJSON(w, RobotRows{
		GeneratedAt: now.UTC(),
		Source:      source,
		Filter:      robotFilter(r),
		Rows:        rows,
	})
}
