package report

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/kraitsura/tdv/pkg/format"
	"github.com/kraitsura/tdv/pkg/model"
)

func sampleThreads() []model.ThreadRecord {
	return []model.ThreadRecord{
		{
			Name: "main", ThreadNum: 1, State: model.StateRunnable, Health: model.HealthHot,
			Priority: 5, OSPriority: 0, TID: "0x00007f1a2b3c", NID: "0x1a2b", NIDDecimal: "6699",
			CPUMs: model.Float(55553.41), ElapsedMs: model.Float(100000), CPUPercent: model.Float(55.0),
			StackTrace: "at com.example.Main.run(Main.java:10)",
		},
		{
			Name: "Worker-Pool-1", ThreadNum: model.Unknown, State: model.StateBlocked, Health: model.HealthBlocked,
			Daemon: true, Priority: model.Unknown, OSPriority: model.Unknown,
			LockInfo: "waiting to lock <0x000000076ab62208> (a java.lang.Object) held by main",
		},
		{
			Name: "Worker-Pool-2", ThreadNum: 3, State: model.StateBlocked, Health: model.HealthBlocked,
			Priority: 5, OSPriority: 0, CPUPercent: model.Float(50.0),
		},
		{
			Name: "GC Thread#0", ThreadNum: 4, State: "UNKNOWN", Health: model.HealthIdle,
			Priority: model.Unknown, OSPriority: model.Unknown,
		},
	}
}

func buildReport(t *testing.T, threads []model.ThreadRecord) *Report {
	t.Helper()
	r, err := Build(context.Background(), threads, RenderOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func TestRenderRows_OrderAndFormatting(t *testing.T) {
	rows, err := RenderRows(sampleThreads(), RenderOptions{})
	if err != nil {
		t.Fatalf("RenderRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Ordinal != i+1 {
			t.Errorf("row %d has ordinal %d", i, row.Ordinal)
		}
		if row.Cells[ColOrdinal] != strconv.Itoa(i+1) {
			t.Errorf("row %d ordinal cell = %q", i, row.Cells[ColOrdinal])
		}
		if !row.Visible() {
			t.Errorf("row %d should start visible", i)
		}
		if row.Cells[ColTrace] != DetailLabel(false) {
			t.Errorf("row %d trace label = %q", i, row.Cells[ColTrace])
		}
	}

	main := rows[0]
	if main.Key.Name != "main" || main.Key.State != model.StateRunnable || main.Key.Health != model.HealthHot {
		t.Errorf("unexpected filter key: %+v", main.Key)
	}
	checks := map[int]string{
		ColThreadNum:  "#1",
		ColPriority:   "5",
		ColOSPriority: "0",
		ColNID:        "0x1a2b",
		ColCPU:        "55,553.41",
		ColElapsed:    "100,000",
		ColCPUPercent: "55.0%",
		ColDaemon:     "no",
	}
	for col, want := range checks {
		if main.Cells[col] != want {
			t.Errorf("main %s = %q, want %q", Headers[col], main.Cells[col], want)
		}
	}
	if main.Severity != format.SeverityHigh {
		t.Errorf("main severity = %v, want high", main.Severity)
	}
	if !main.Detail.HasTrace || main.Detail.StackTrace != "at com.example.Main.run(Main.java:10)" {
		t.Errorf("unexpected detail: %+v", main.Detail)
	}

	worker := rows[1]
	if worker.Key.Name != "worker-pool-1" {
		t.Errorf("filter name should be lowercased, got %q", worker.Key.Name)
	}
	for _, col := range []int{ColThreadNum, ColPriority, ColOSPriority, ColTID, ColNID, ColNIDDecimal, ColCPU, ColElapsed} {
		if worker.Cells[col] != format.Dash {
			t.Errorf("worker %s = %q, want dash", Headers[col], worker.Cells[col])
		}
	}
	if worker.Cells[ColCPUPercent] != "" || worker.Severity != format.SeverityNone {
		t.Errorf("absent cpu%% should be empty/neutral, got %q/%v", worker.Cells[ColCPUPercent], worker.Severity)
	}
	if worker.Detail.HasTrace || worker.Detail.StackTrace != format.NoStackTrace {
		t.Errorf("expected trace placeholder, got %+v", worker.Detail)
	}
	if !strings.HasSuffix(worker.Cells[ColLockInfo], format.Ellipsis) {
		t.Errorf("long lock info should be truncated, got %q", worker.Cells[ColLockInfo])
	}
	if worker.Detail.LockInfo != sampleThreads()[1].LockInfo {
		t.Error("detail must keep the full lock info")
	}

	if rows[2].Severity != format.SeverityMedium {
		t.Errorf("cpu 50.0 should be medium, got %v", rows[2].Severity)
	}
}

func TestRenderRows_LockInfoWidth(t *testing.T) {
	threads := []model.ThreadRecord{{Name: "a", State: model.StateWaiting, LockInfo: "parking to wait for <0x1>"}}
	rows, err := RenderRows(threads, RenderOptions{LockInfoWidth: 7})
	if err != nil {
		t.Fatalf("RenderRows: %v", err)
	}
	if rows[0].Cells[ColLockInfo] != "parking…" {
		t.Errorf("lock cell = %q", rows[0].Cells[ColLockInfo])
	}
}

func TestRenderRows_ContractViolation(t *testing.T) {
	threads := sampleThreads()
	threads[2].State = ""

	_, err := RenderRows(threads, RenderOptions{})
	var ce *model.ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ContractError, got %v", err)
	}
	if ce.Field != "state" {
		t.Errorf("field = %q, want state", ce.Field)
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Errorf("error should name the row: %v", err)
	}

	if _, err := Build(context.Background(), threads, RenderOptions{}); !errors.As(err, &ce) {
		t.Errorf("Build should surface the contract violation, got %v", err)
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := Build(ctx, sampleThreads(), RenderOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if r != nil {
		t.Error("no report should be returned")
	}
}

func TestBuild_Summary(t *testing.T) {
	r := buildReport(t, sampleThreads())
	s := r.Summary()
	want := model.SummaryCounts{Total: 4, Runnable: 1, Blocked: 2, Hot: 1, Daemon: 1}
	if s != want {
		t.Errorf("summary = %+v, want %+v", s, want)
	}
	if r.Len() != 4 || r.VisibleCount() != 4 {
		t.Errorf("Len/VisibleCount = %d/%d", r.Len(), r.VisibleCount())
	}
	if r.CPUStats().Measured != 2 {
		t.Errorf("cpu measured = %d, want 2", r.CPUStats().Measured)
	}
}

func TestApplyFilter_EmptyCriteriaShowsAll(t *testing.T) {
	r := buildReport(t, sampleThreads())
	r.ApplyFilter(Criteria{State: model.StateBlocked})
	if got := r.ApplyFilter(Criteria{}); got != 4 {
		t.Errorf("empty criteria should show all rows, got %d", got)
	}
	if r.NoResults() {
		t.Error("NoResults should be false")
	}
}

func TestApplyFilter_Combinations(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []int
	}{
		{"query case-insensitive", Criteria{Query: "WORKER"}, []int{2, 3}},
		{"query substring", Criteria{Query: "pool-2"}, []int{3}},
		{"state only", Criteria{State: model.StateBlocked}, []int{2, 3}},
		{"health only", Criteria{Health: model.HealthHot}, []int{1}},
		{"passthrough state", Criteria{State: "UNKNOWN"}, []int{4}},
		{"query and state", Criteria{Query: "worker", State: model.StateBlocked}, []int{2, 3}},
		{"all three", Criteria{Query: "main", State: model.StateRunnable, Health: model.HealthHot}, []int{1}},
		{"conflicting", Criteria{Query: "main", State: model.StateBlocked}, nil},
		{"no name match", Criteria{Query: "does-not-exist"}, nil},
	}

	r := buildReport(t, sampleThreads())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ApplyFilter(tt.criteria)
			if got != len(tt.want) {
				t.Errorf("visible = %d, want %d", got, len(tt.want))
			}
			var ordinals []int
			for _, row := range r.VisibleRows() {
				ordinals = append(ordinals, row.Ordinal)
			}
			if !equalInts(ordinals, tt.want) {
				t.Errorf("visible ordinals = %v, want %v", ordinals, tt.want)
			}
			if r.NoResults() != (len(tt.want) == 0) {
				t.Errorf("NoResults = %v", r.NoResults())
			}
			// brute force against Matches for every row
			for _, row := range r.Rows() {
				if row.Visible() != tt.criteria.Matches(row.Key) {
					t.Errorf("row %d visibility disagrees with Matches", row.Ordinal)
				}
			}
		})
	}
}

func TestApplyFilter_Idempotent(t *testing.T) {
	r := buildReport(t, sampleThreads())
	c := Criteria{Query: "worker"}
	first := r.ApplyFilter(c)
	second := r.ApplyFilter(c)
	if first != second {
		t.Errorf("filter not idempotent: %d vs %d", first, second)
	}
	if r.Criteria() != c {
		t.Errorf("Criteria() = %+v", r.Criteria())
	}
}

func TestApplyFilter_ScenarioF(t *testing.T) {
	threads := []model.ThreadRecord{
		{Name: "a", State: model.StateRunnable, Health: model.HealthActive},
		{Name: "b", State: model.StateWaiting, Health: model.HealthIdle},
	}
	r := buildReport(t, threads)
	before := r.Summary()

	if got := r.ApplyFilter(Criteria{State: model.StateBlocked}); got != 0 {
		t.Fatalf("expected zero visible rows, got %d", got)
	}
	if !r.NoResults() {
		t.Error("empty-result indicator should show")
	}
	if r.Len() != 2 || r.Summary() != before {
		t.Error("underlying rows and summary must stay intact")
	}

	if got := r.ApplyFilter(Criteria{}); got != 2 {
		t.Errorf("clearing filters should restore all rows, got %d", got)
	}
}

func TestApplyFilter_ZeroRows(t *testing.T) {
	r := buildReport(t, nil)
	if got := r.ApplyFilter(Criteria{Query: "x"}); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if !r.NoResults() {
		t.Error("NoResults should be true for an empty table")
	}
	if len(r.VisibleRows()) != 0 {
		t.Error("expected no visible rows")
	}
}

func TestToggleDetail_RoundTrip(t *testing.T) {
	r := buildReport(t, sampleThreads())

	open, label := r.ToggleDetail(2)
	if !open || label != "▼ trace" {
		t.Fatalf("first toggle = %v %q", open, label)
	}
	row, _ := r.Row(2)
	if row.Cells[ColTrace] != "▼ trace" {
		t.Errorf("trace cell not updated: %q", row.Cells[ColTrace])
	}

	open, label = r.ToggleDetail(2)
	if open || label != "▶ trace" {
		t.Fatalf("second toggle = %v %q", open, label)
	}
	if r.DetailOpen(2) {
		t.Error("row should be closed again")
	}
}

func TestToggleDetail_Independence(t *testing.T) {
	r := buildReport(t, sampleThreads())
	r.ApplyFilter(Criteria{Query: "worker"})
	visibleBefore := r.VisibleCount()

	r.ToggleDetail(1)
	r.ToggleDetail(3)

	if !r.DetailOpen(1) || !r.DetailOpen(3) || r.DetailOpen(2) || r.DetailOpen(4) {
		t.Error("toggling a row affected another row")
	}
	if r.VisibleCount() != visibleBefore {
		t.Error("toggling changed filter visibility")
	}
	for _, row := range r.Rows() {
		if row.Visible() != (row.Ordinal == 2 || row.Ordinal == 3) {
			t.Errorf("row %d visibility changed by toggle", row.Ordinal)
		}
	}
}

func TestDetailVisible_IsAndOfFilterAndToggle(t *testing.T) {
	r := buildReport(t, sampleThreads())
	r.ToggleDetail(1)
	r.ToggleDetail(2)

	r.ApplyFilter(Criteria{State: model.StateBlocked})
	if r.DetailVisible(1) {
		t.Error("detail of a filtered-out row must be hidden")
	}
	if !r.DetailVisible(2) {
		t.Error("open detail of a visible row must show")
	}
	if r.DetailVisible(3) {
		t.Error("closed detail must be hidden")
	}

	r.ApplyFilter(Criteria{})
	if !r.DetailVisible(1) {
		t.Error("detail should reappear with its row, still open")
	}
	if r.DetailVisible(99) {
		t.Error("unknown ordinal should not be visible")
	}
}

func TestToggleDetail_UnknownOrdinal(t *testing.T) {
	r := buildReport(t, sampleThreads())
	if open, _ := r.ToggleDetail(0); open {
		t.Error("ordinal 0 should be ignored")
	}
	if open, _ := r.ToggleDetail(10); open {
		t.Error("out-of-range ordinal should be ignored")
	}
}

func TestDetailToggle(t *testing.T) {
	d := NewDetailToggle()
	if d.IsOpen(1) {
		t.Error("rows start closed")
	}
	d.Toggle(1)
	d.Toggle(5)
	if d.OpenCount() != 2 {
		t.Errorf("OpenCount = %d", d.OpenCount())
	}
	d.Toggle(1)
	if d.IsOpen(1) || !d.IsOpen(5) || d.OpenCount() != 1 {
		t.Error("unexpected toggle state")
	}
}

func TestOptions(t *testing.T) {
	r := buildReport(t, sampleThreads())
	states := r.StateOptions()
	wantStates := []model.State{model.StateRunnable, model.StateBlocked, "UNKNOWN"}
	if len(states) != len(wantStates) {
		t.Fatalf("StateOptions = %v", states)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] {
			t.Errorf("StateOptions[%d] = %s, want %s", i, states[i], wantStates[i])
		}
	}
	health := r.HealthOptions()
	if len(health) != 3 || health[0] != model.HealthHot {
		t.Errorf("HealthOptions = %v", health)
	}
}

func TestHealthOptions_SkipsEmptyAndOrdersKnownFirst(t *testing.T) {
	threads := []model.ThreadRecord{
		{Name: "a", State: model.StateRunnable, Health: "WARM"},
		{Name: "b", State: model.StateRunnable, Health: ""},
		{Name: "c", State: model.StateRunnable, Health: model.HealthIdle},
		{Name: "d", State: model.StateRunnable, Health: model.HealthHot},
	}
	r := buildReport(t, threads)
	got := r.HealthOptions()
	want := []model.Health{model.HealthHot, model.HealthIdle, "WARM"}
	if len(got) != len(want) {
		t.Fatalf("HealthOptions = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("HealthOptions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestJump(t *testing.T) {
	r := buildReport(t, sampleThreads())
	if ord, ok := r.Jump("wp2"); !ok || ord != 3 {
		t.Errorf("Jump(wp2) = %d, %v; want 3", ord, ok)
	}
	r.ApplyFilter(Criteria{State: model.StateRunnable})
	if _, ok := r.Jump("Worker"); ok {
		t.Error("Jump should only consider visible rows")
	}
	if _, ok := r.Jump(""); ok {
		t.Error("empty query should not jump")
	}
}

func TestThreadLookup(t *testing.T) {
	r := buildReport(t, sampleThreads())
	th, ok := r.Thread(2)
	if !ok || th.Name != "Worker-Pool-1" {
		t.Errorf("Thread(2) = %v, %v", th.Name, ok)
	}
	if _, ok := r.Thread(0); ok {
		t.Error("Thread(0) should fail")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
