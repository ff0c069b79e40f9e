package scheduler

import "strings"

// JobState is the lifecycle state of a Slurm job as reported by accounting.
type JobState string

const (
	StatePending     JobState = "PENDING"
	StateRunning     JobState = "RUNNING"
	StateCompleted   JobState = "COMPLETED"
	StateFailed      JobState = "FAILED"
	StateCancelled   JobState = "CANCELLED"
	StateTimeout     JobState = "TIMEOUT"
	StateNodeFail    JobState = "NODE_FAIL"
	StateOutOfMemory JobState = "OUT_OF_MEMORY"
	StateUnknown     JobState = "UNKNOWN"
)

// terminalStates are the states after which no further transition happens.
var terminalStates = map[JobState]bool{
	StateCompleted:   true,
	StateFailed:      true,
	StateCancelled:   true,
	StateTimeout:     true,
	StateNodeFail:    true,
	StateOutOfMemory: true,
}

// IsTerminal reports whether the job has finished.
func (s JobState) IsTerminal() bool {
	return terminalStates[s]
}

func (s JobState) String() string {
	return string(s)
}

// ParseJobState maps a raw sacct State field to a JobState.
// Only the first word counts ("CANCELLED by 1000" is CANCELLED); a trailing
// "+" from truncated columns is ignored. Unrecognised values are UNKNOWN.
func ParseJobState(raw string) JobState {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return StateUnknown
	}
	state := JobState(strings.ToUpper(strings.TrimRight(fields[0], "+")))
	switch state {
	case StatePending, StateRunning:
		return state
	}
	if state.IsTerminal() {
		return state
	}
	return StateUnknown
}
