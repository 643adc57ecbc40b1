package model

import (
	"encoding/json"
	"fmt"
)

// Unknown is the in-band sentinel the analyzer uses for integer fields it
// could not read from the dump (threadNum, priority, osPriority).
const Unknown = -1

// ThreadRecord is one analyzed thread as produced by the analyzer service.
// Records are treated as immutable once decoded.
type ThreadRecord struct {
	Name        string   `json:"name"`
	ThreadNum   int      `json:"threadNum"`
	State       State    `json:"state"`
	StateDetail string   `json:"stateDetail,omitempty"`
	Health      Health   `json:"health"`
	Daemon      bool     `json:"daemon"`
	Priority    int      `json:"priority"`
	OSPriority  int      `json:"osPriority"`
	TID         string   `json:"tid,omitempty"`
	NID         string   `json:"nid,omitempty"`
	NIDDecimal  string   `json:"nidDecimal,omitempty"`
	CPUMs       *float64 `json:"cpuMs"`
	ElapsedMs   *float64 `json:"elapsedMs"`
	CPUPercent  *float64 `json:"cpuPercent"`
	LockInfo    string   `json:"lockInfo,omitempty"`
	StackTrace  string   `json:"stackTrace,omitempty"`
}

// UnmarshalJSON decodes a record, defaulting the sentinel integer fields to
// Unknown when their keys are missing so that an omitted value never reads
// as a real zero.
func (t *ThreadRecord) UnmarshalJSON(data []byte) error {
	type plain ThreadRecord
	rec := plain{
		ThreadNum:  Unknown,
		Priority:   Unknown,
		OSPriority: Unknown,
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*t = ThreadRecord(rec)
	return nil
}

// Validate checks the fields the presentation layer cannot do without.
// A failure means the upstream producer broke its contract.
func (t *ThreadRecord) Validate() error {
	if t.Name == "" {
		return &ContractError{Field: "name"}
	}
	if t.State == "" {
		return &ContractError{Field: "state", Thread: t.Name}
	}
	return nil
}

// ContractError reports a required field missing from an otherwise
// well-formed thread record.
type ContractError struct {
	Field  string
	Thread string
}

func (e *ContractError) Error() string {
	if e.Thread != "" {
		return fmt.Sprintf("thread %q is missing required field %q", e.Thread, e.Field)
	}
	return fmt.Sprintf("thread record is missing required field %q", e.Field)
}

// State is the java.lang.Thread.State reported for a thread. Values outside
// the named constants pass through uninterpreted.
type State string

const (
	StateRunnable     State = "RUNNABLE"
	StateBlocked      State = "BLOCKED"
	StateWaiting      State = "WAITING"
	StateTimedWaiting State = "TIMED_WAITING"
)

// KnownStates lists the states with dedicated counters, in display order.
var KnownStates = []State{StateRunnable, StateBlocked, StateWaiting, StateTimedWaiting}

// IsKnown returns true if the state has a dedicated summary counter
func (s State) IsKnown() bool {
	switch s {
	case StateRunnable, StateBlocked, StateWaiting, StateTimedWaiting:
		return true
	}
	return false
}

// Health is the analyzer's classification tag. It is opaque here; only
// HealthHot is counted specially.
type Health string

const (
	HealthHot     Health = "HOT"
	HealthActive  Health = "ACTIVE"
	HealthBlocked Health = "BLOCKED"
	HealthIdle    Health = "IDLE"
)

// KnownHealths lists the health tags the analyzer is known to emit, in
// display order.
var KnownHealths = []Health{HealthHot, HealthActive, HealthBlocked, HealthIdle}

// IsHot returns true for threads classified as CPU hot spots
func (h Health) IsHot() bool {
	return h == HealthHot
}

// SummaryCounts aggregates a thread collection. It is always recomputed
// wholesale from a full collection.
type SummaryCounts struct {
	Total        int `json:"total"`
	Runnable     int `json:"runnable"`
	Blocked      int `json:"blocked"`
	Waiting      int `json:"waiting"`
	TimedWaiting int `json:"timed_waiting"`
	Hot          int `json:"hot"`
	Daemon       int `json:"daemon"`
}

// Float returns a pointer to v, for building records with present
// numeric durations.
func Float(v float64) *float64 {
	return &v
}
