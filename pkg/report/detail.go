package report

const (
	labelCollapsed = "▶ trace"
	labelExpanded  = "▼ trace"
)

// DetailLabel returns the affordance label for a detail row state.
func DetailLabel(open bool) string {
	if open {
		return labelExpanded
	}
	return labelCollapsed
}

// DetailToggle holds the open/closed state of each row's detail, keyed by
// row ordinal. Rows start closed.
type DetailToggle struct {
	open map[int]bool
}

// NewDetailToggle creates a toggle set with every row closed.
func NewDetailToggle() *DetailToggle {
	return &DetailToggle{open: make(map[int]bool)}
}

// Toggle flips the state of one row and returns the new state.
func (d *DetailToggle) Toggle(ordinal int) bool {
	open := !d.open[ordinal]
	if open {
		d.open[ordinal] = true
	} else {
		delete(d.open, ordinal)
	}
	return open
}

// IsOpen reports whether the row's detail is open.
func (d *DetailToggle) IsOpen(ordinal int) bool {
	return d.open[ordinal]
}

// OpenCount returns how many rows have their detail open.
func (d *DetailToggle) OpenCount() int {
	return len(d.open)
}

// ToggleDetail flips the detail of the row with the given ordinal and
// returns the new state with its label. Unknown ordinals are ignored and
// report closed.
func (r *Report) ToggleDetail(ordinal int) (bool, string) {
	if _, ok := r.Row(ordinal); !ok {
		return false, DetailLabel(false)
	}
	open := r.details.Toggle(ordinal)
	r.rows[ordinal-1].Cells[ColTrace] = DetailLabel(open)
	return open, DetailLabel(open)
}

// DetailOpen reports the toggle state of a row regardless of filtering.
func (r *Report) DetailOpen(ordinal int) bool {
	return r.details.IsOpen(ordinal)
}
