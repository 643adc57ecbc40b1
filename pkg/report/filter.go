package report

import (
	"strings"

	"github.com/kraitsura/tdv/pkg/model"
)

// Criteria is the compound filter: a case-insensitive name substring plus
// exact state and health matches. Empty fields impose no constraint.
type Criteria struct {
	Query  string
	State  model.State
	Health model.Health
}

// IsEmpty returns true when no constraint is active
func (c Criteria) IsEmpty() bool {
	return c.Query == "" && c.State == "" && c.Health == ""
}

// Matches evaluates the criteria against a filter key. It depends on the
// key alone, so evaluation order and repetition do not matter.
func (c Criteria) Matches(k FilterKey) bool {
	if c.Query != "" && !strings.Contains(k.Name, strings.ToLower(c.Query)) {
		return false
	}
	if c.State != "" && k.State != c.State {
		return false
	}
	if c.Health != "" && k.Health != c.Health {
		return false
	}
	return true
}

// ApplyFilter re-evaluates every row against c, updates row visibility and
// returns the number of visible rows.
func (r *Report) ApplyFilter(c Criteria) int {
	r.criteria = c
	visible := 0
	for i := range r.rows {
		match := c.Matches(r.rows[i].Key)
		r.rows[i].visible = match
		if match {
			visible++
		}
	}
	r.visibleCount = visible
	return visible
}

// Criteria returns the filter currently applied.
func (r *Report) Criteria() Criteria {
	return r.criteria
}

// VisibleCount returns the number of rows passing the current filter.
func (r *Report) VisibleCount() int {
	return r.visibleCount
}

// NoResults reports whether the "no results" indicator should show.
func (r *Report) NoResults() bool {
	return r.visibleCount == 0
}

// VisibleRows returns the rows passing the current filter, in order.
func (r *Report) VisibleRows() []Row {
	out := make([]Row, 0, r.visibleCount)
	for _, row := range r.rows {
		if row.visible {
			out = append(out, row)
		}
	}
	return out
}

// DetailVisible reports whether the detail row of the given ordinal is
// shown: its parent row must pass the filter and its toggle must be open.
func (r *Report) DetailVisible(ordinal int) bool {
	row, ok := r.Row(ordinal)
	if !ok {
		return false
	}
	return row.visible && r.details.IsOpen(ordinal)
}

// StateOptions returns the distinct states present, known states first in
// display order and the rest in first-seen order.
func (r *Report) StateOptions() []model.State {
	seen := make(map[model.State]bool)
	for _, row := range r.rows {
		seen[row.Key.State] = true
	}
	var out []model.State
	for _, s := range model.KnownStates {
		if seen[s] {
			out = append(out, s)
			delete(seen, s)
		}
	}
	for _, row := range r.rows {
		if seen[row.Key.State] {
			out = append(out, row.Key.State)
			delete(seen, row.Key.State)
		}
	}
	return out
}

// HealthOptions returns the distinct non-empty health tags present, known
// tags first in display order and the rest in first-seen order. An empty
// tag is not offered since the empty criterion means "any health".
func (r *Report) HealthOptions() []model.Health {
	seen := make(map[model.Health]bool)
	for _, row := range r.rows {
		if row.Key.Health != "" {
			seen[row.Key.Health] = true
		}
	}
	var out []model.Health
	for _, h := range model.KnownHealths {
		if seen[h] {
			out = append(out, h)
			delete(seen, h)
		}
	}
	for _, row := range r.rows {
		if seen[row.Key.Health] {
			out = append(out, row.Key.Health)
			delete(seen, row.Key.Health)
		}
	}
	return out
}
