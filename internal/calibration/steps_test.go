package calibration

import (
	"testing"

	"pressurebench/internal/protocol"
)

func TestStepsPerStatus(t *testing.T) {
	tests := []struct {
		name   string
		status protocol.CalibrationStatus
		want   [StepCount]StepState
	}{
		{
			name:   "none-reported",
			status: "",
			want:   [StepCount]StepState{StepPending, StepPending, StepPending, StepPending},
		},
		{
			name:   "started",
			status: protocol.StatusStarted,
			want:   [StepCount]StepState{StepComplete, StepActive, StepPending, StepPending},
		},
		{
			name:   "tared",
			status: protocol.StatusTared,
			want:   [StepCount]StepState{StepComplete, StepComplete, StepActive, StepPending},
		},
		{
			name:   "complete",
			status: protocol.StatusComplete,
			want:   [StepCount]StepState{StepComplete, StepComplete, StepComplete, StepActive},
		},
		{
			name:   "verified",
			status: protocol.StatusVerified,
			want:   [StepCount]StepState{StepComplete, StepComplete, StepComplete, StepComplete},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Steps(tc.status)
			if got != tc.want {
				t.Fatalf("steps mismatch: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestFinished(t *testing.T) {
	if Finished(protocol.StatusStarted) || Finished(protocol.StatusTared) {
		t.Fatalf("started/tared must not be finished")
	}
	if !Finished(protocol.StatusComplete) || !Finished(protocol.StatusVerified) {
		t.Fatalf("complete/verified must be finished")
	}
}

func TestTrackerObserveAndReset(t *testing.T) {
	var tr Tracker
	if tr.Latest() != nil {
		t.Fatalf("fresh tracker must have no latest event")
	}
	if tr.Finished() {
		t.Fatalf("fresh tracker must not be finished")
	}

	ru := 215.4
	tr.Observe(protocol.CalibrationEvent{Status: protocol.StatusComplete, ReferenceUnit: &ru})
	if got := tr.Steps(); got[3] != StepActive {
		t.Fatalf("verification step mismatch: got=%v want=%v", got[3], StepActive)
	}
	if !tr.Finished() {
		t.Fatalf("tracker must be finished after complete")
	}
	if tr.Latest() == nil || tr.Latest().ReferenceUnit == nil || *tr.Latest().ReferenceUnit != 215.4 {
		t.Fatalf("latest event not retained")
	}

	tr.Reset()
	if tr.Latest() != nil {
		t.Fatalf("reset must clear latest event")
	}
	if got := tr.Steps(); got != ([StepCount]StepState{StepPending, StepPending, StepPending, StepPending}) {
		t.Fatalf("reset steps mismatch: got=%v", got)
	}
}
