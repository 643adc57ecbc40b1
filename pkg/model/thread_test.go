package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestUnmarshalDefaultsSentinels(t *testing.T) {
	var rec ThreadRecord
	if err := json.Unmarshal([]byte(`{"name":"main","state":"RUNNABLE","health":"ACTIVE"}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ThreadNum != Unknown || rec.Priority != Unknown || rec.OSPriority != Unknown {
		t.Errorf("missing integer keys should decode to Unknown, got %d/%d/%d", rec.ThreadNum, rec.Priority, rec.OSPriority)
	}
	if rec.CPUMs != nil || rec.ElapsedMs != nil || rec.CPUPercent != nil {
		t.Error("missing durations should stay nil")
	}
}

func TestUnmarshalKeepsPresentValues(t *testing.T) {
	data := `{"name":"worker-1","threadNum":0,"state":"WAITING","health":"IDLE","daemon":true,
		"priority":5,"osPriority":0,"cpuMs":0,"elapsedMs":null,"cpuPercent":12.5}`
	var rec ThreadRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ThreadNum != 0 || rec.Priority != 5 || rec.OSPriority != 0 {
		t.Errorf("unexpected integers: %+v", rec)
	}
	if rec.CPUMs == nil || *rec.CPUMs != 0 {
		t.Error("cpuMs=0 must be present, not absent")
	}
	if rec.ElapsedMs != nil {
		t.Error("elapsedMs=null must be absent")
	}
	if rec.CPUPercent == nil || *rec.CPUPercent != 12.5 {
		t.Errorf("cpuPercent = %v, want 12.5", rec.CPUPercent)
	}
	if !rec.Daemon {
		t.Error("daemon should be true")
	}
}

func TestUnmarshalArray(t *testing.T) {
	var recs []ThreadRecord
	if err := json.Unmarshal([]byte(`[{"name":"a","state":"BLOCKED"},{"name":"b","state":"NEW","threadNum":3}]`), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ThreadNum != Unknown {
		t.Errorf("first record threadNum = %d, want Unknown", recs[0].ThreadNum)
	}
	if recs[1].ThreadNum != 3 {
		t.Errorf("second record threadNum = %d, want 3", recs[1].ThreadNum)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		rec   ThreadRecord
		field string
	}{
		{"ok", ThreadRecord{Name: "main", State: StateRunnable}, ""},
		{"missing name", ThreadRecord{State: StateRunnable}, "name"},
		{"missing state", ThreadRecord{Name: "main"}, "state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *ContractError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ContractError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestStateIsKnown(t *testing.T) {
	for _, s := range KnownStates {
		if !s.IsKnown() {
			t.Errorf("%s should be known", s)
		}
	}
	if State("NEW").IsKnown() {
		t.Error("NEW should not be known")
	}
	if !HealthHot.IsHot() || HealthActive.IsHot() {
		t.Error("IsHot mismatch")
	}
}
