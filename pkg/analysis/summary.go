package analysis

import (
	"sort"

	"github.com/kraitsura/tdv/pkg/model"

	"gonum.org/v1/gonum/stat"
)

// Summarize aggregates a thread collection into category counts in a
// single pass. State counters are mutually exclusive; threads in any
// other state contribute to Total only. Hot and Daemon are counted
// independently of state. The input is not modified.
func Summarize(threads []model.ThreadRecord) model.SummaryCounts {
	counts := model.SummaryCounts{Total: len(threads)}
	for i := range threads {
		t := &threads[i]
		switch t.State {
		case model.StateRunnable:
			counts.Runnable++
		case model.StateBlocked:
			counts.Blocked++
		case model.StateWaiting:
			counts.Waiting++
		case model.StateTimedWaiting:
			counts.TimedWaiting++
		}
		if t.Health.IsHot() {
			counts.Hot++
		}
		if t.Daemon {
			counts.Daemon++
		}
	}
	return counts
}

// CPUStats describes the distribution of measured CPU usage. Threads
// without a cpuPercent or cpuMs value are left out rather than read as
// zero.
type CPUStats struct {
	Measured    int     `json:"measured"`     // threads with a cpuPercent value
	MeanPercent float64 `json:"mean_percent"` // arithmetic mean of cpuPercent
	MaxPercent  float64 `json:"max_percent"`
	P95Percent  float64 `json:"p95_percent"`
	TotalCPUMs  float64 `json:"total_cpu_ms"` // sum of present cpuMs
	Busiest     string  `json:"busiest,omitempty"`
}

// ComputeCPUStats derives CPUStats from a thread collection.
func ComputeCPUStats(threads []model.ThreadRecord) CPUStats {
	var s CPUStats
	var values []float64
	for i := range threads {
		t := &threads[i]
		if t.CPUMs != nil {
			s.TotalCPUMs += *t.CPUMs
		}
		if t.CPUPercent == nil {
			continue
		}
		v := *t.CPUPercent
		values = append(values, v)
		if len(values) == 1 || v > s.MaxPercent {
			s.MaxPercent = v
			s.Busiest = t.Name
		}
	}

	s.Measured = len(values)
	if s.Measured == 0 {
		return s
	}

	s.MeanPercent = stat.Mean(values, nil)
	sort.Float64s(values)
	s.P95Percent = stat.Quantile(0.95, stat.Empirical, values, nil)
	return s
}
