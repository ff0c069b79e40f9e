package scheduler

import "testing"

func TestParseJobState(t *testing.T) {
	tests := []struct {
		raw  string
		want JobState
	}{
		{"PENDING", StatePending},
		{"RUNNING", StateRunning},
		{"COMPLETED", StateCompleted},
		{"completed", StateCompleted},
		{"FAILED", StateFailed},
		{"CANCELLED by 1000", StateCancelled},
		{"CANCELLED+", StateCancelled},
		{"TIMEOUT", StateTimeout},
		{"NODE_FAIL", StateNodeFail},
		{"OUT_OF_MEMORY", StateOutOfMemory},
		{"  RUNNING  ", StateRunning},
		{"REQUEUED", StateUnknown},
		{"SUSPENDED", StateUnknown},
		{"", StateUnknown},
	}
	for _, tt := range tests {
		if got := ParseJobState(tt.raw); got != tt.want {
			t.Errorf("ParseJobState(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestJobStateIsTerminal(t *testing.T) {
	terminal := []JobState{StateCompleted, StateFailed, StateCancelled, StateTimeout, StateNodeFail, StateOutOfMemory}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobState{StatePending, StateRunning, StateUnknown, JobState("REQUEUED")} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
