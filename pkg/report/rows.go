// Package report turns an analyzed thread collection into a filterable view:
// one rendered row per thread plus its companion detail, the summary counts,
// and the per-row visibility and detail state.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/model"
)

// Column indexes into Row.Cells, in display order.
const (
	ColOrdinal = iota
	ColName
	ColThreadNum
	ColState
	ColStateDetail
	ColHealth
	ColDaemon
	ColPriority
	ColOSPriority
	ColTID
	ColNID
	ColNIDDecimal
	ColCPU
	ColElapsed
	ColCPUPercent
	ColLockInfo
	ColTrace
	NumColumns
)

// Headers are the column titles, indexed by the Col constants.
var Headers = [NumColumns]string{
	"#", "Thread", "No.", "State", "Detail", "Health", "Daemon", "Prio", "OS Prio",
	"TID", "NID", "NID (dec)", "CPU ms", "Elapsed ms", "CPU %", "Lock", "Trace",
}

// FilterKey is the part of a row the filter engine matches on. It is fixed
// when the row is rendered.
type FilterKey struct {
	Name   string       // lowercased thread name
	State  model.State  // raw state
	Health model.Health // raw health
}

// Detail is the content of a row's companion detail row.
type Detail struct {
	StackTrace string // full trace, or the absence placeholder
	HasTrace   bool
	LockInfo   string // full, untruncated lock info
}

// Row is one rendered thread. Ordinal is the 1-based position in the input
// and doubles as the row's identity.
type Row struct {
	Ordinal  int
	Key      FilterKey
	Cells    [NumColumns]string
	Severity format.Severity // CPU % severity class
	Daemon   bool
	Detail   Detail

	visible bool
}

// Visible reports whether the row passes the current filter.
func (r Row) Visible() bool {
	return r.visible
}

// RenderOptions tunes the compact presentation.
type RenderOptions struct {
	// LockInfoWidth is the compact lock info width in runes.
	// Zero means format.DefaultLockInfoWidth.
	LockInfoWidth int
}

func (o RenderOptions) lockInfoWidth() int {
	if o.LockInfoWidth <= 0 {
		return format.DefaultLockInfoWidth
	}
	return o.LockInfoWidth
}

// RenderRows renders one row per thread, preserving input order. Every
// optional field has a fallback; a record missing its name or state is an
// upstream contract violation and stops rendering with a ContractError.
// Cell values are raw display text; callers escape for their medium.
func RenderRows(threads []model.ThreadRecord, opts RenderOptions) ([]Row, error) {
	rows := make([]Row, 0, len(threads))
	for i := range threads {
		row, err := RenderRow(i+1, &threads[i], opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RenderRow renders a single thread at the given 1-based ordinal.
func RenderRow(ordinal int, t *model.ThreadRecord, opts RenderOptions) (Row, error) {
	if err := t.Validate(); err != nil {
		return Row{}, fmt.Errorf("render row %d: %w", ordinal, err)
	}

	pct, severity := format.Percent(t.CPUPercent)

	row := Row{
		Ordinal: ordinal,
		Key: FilterKey{
			Name:   strings.ToLower(t.Name),
			State:  t.State,
			Health: t.Health,
		},
		Severity: severity,
		Daemon:   t.Daemon,
		Detail: Detail{
			StackTrace: format.StackTrace(t.StackTrace),
			HasTrace:   t.StackTrace != "",
			LockInfo:   format.Text(t.LockInfo),
		},
		visible: true,
	}

	row.Cells[ColOrdinal] = strconv.Itoa(ordinal)
	row.Cells[ColName] = t.Name
	row.Cells[ColThreadNum] = format.ThreadNum(t.ThreadNum)
	row.Cells[ColState] = string(t.State)
	row.Cells[ColStateDetail] = format.Text(t.StateDetail)
	row.Cells[ColHealth] = string(t.Health)
	row.Cells[ColDaemon] = format.Daemon(t.Daemon)
	row.Cells[ColPriority] = format.Sentinel(t.Priority)
	row.Cells[ColOSPriority] = format.Sentinel(t.OSPriority)
	row.Cells[ColTID] = format.Ident(t.TID)
	row.Cells[ColNID] = format.Ident(t.NID)
	row.Cells[ColNIDDecimal] = format.Ident(t.NIDDecimal)
	row.Cells[ColCPU] = format.Duration(t.CPUMs)
	row.Cells[ColElapsed] = format.Duration(t.ElapsedMs)
	row.Cells[ColCPUPercent] = pct
	row.Cells[ColLockInfo] = format.Truncate(t.LockInfo, opts.lockInfoWidth())
	row.Cells[ColTrace] = DetailLabel(false)

	return row, nil
}
