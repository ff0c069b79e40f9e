package scheduler

import (
	"slices"
	"time"

	"github.com/kballard/go-shellquote"
)

// NoJob is the job identifier sentinel for "no job was created".
const NoJob = 0

// CommandOutcome is the record of one external process invocation.
type CommandOutcome struct {
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Stdout   string        `json:"stdout" yaml:"stdout"`
	Stderr   string        `json:"stderr" yaml:"stderr"`
	Args     []string      `json:"args" yaml:"args"`
	RunID    string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// CommandLine returns Args quoted for a POSIX shell.
func (o CommandOutcome) CommandLine() string {
	return shellquote.Join(o.Args...)
}

// Succeeded reports a zero exit code.
func (o CommandOutcome) Succeeded() bool {
	return o.ExitCode == 0
}

// AccountingRecord is one parsed sacct record for a job.
type AccountingRecord struct {
	State      JobState      `json:"state" yaml:"state"`
	RawState   string        `json:"raw_state,omitempty" yaml:"raw_state,omitempty"`
	ExitCode   int           `json:"exit_code" yaml:"exit_code"`
	Signal     int           `json:"signal,omitempty" yaml:"signal,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	StdoutPath string        `json:"stdout_path,omitempty" yaml:"stdout_path,omitempty"`
	StderrPath string        `json:"stderr_path,omitempty" yaml:"stderr_path,omitempty"`
}

// SubmissionOutcome is the combined result of submitting (and optionally waiting for) a job.
//
// Without waiting, ExitCode/Stdout/Stderr are those of the submission tool.
// After waiting, ExitCode is the job's own exit code and Stdout/Stderr hold the
// job's output paths from accounting. Submission always keeps the raw
// submission-tool outcome.
type SubmissionOutcome struct {
	JobID      int               `json:"job_id" yaml:"job_id"`
	State      JobState          `json:"state" yaml:"state"`
	ExitCode   int               `json:"exit_code" yaml:"exit_code"`
	Stdout     string            `json:"stdout" yaml:"stdout"`
	Stderr     string            `json:"stderr" yaml:"stderr"`
	Args       []string          `json:"args" yaml:"args"`
	Submission CommandOutcome    `json:"submission" yaml:"submission"`
	Accounting *AccountingRecord `json:"accounting,omitempty" yaml:"accounting,omitempty"`
}

func newSubmissionOutcome(out CommandOutcome, jobID int, state JobState) SubmissionOutcome {
	return SubmissionOutcome{
		JobID:      jobID,
		State:      state,
		ExitCode:   out.ExitCode,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
		Args:       slices.Clone(out.Args),
		Submission: out,
	}
}

// WithState returns a copy of o with State replaced.
func (o SubmissionOutcome) WithState(state JobState) SubmissionOutcome {
	o.State = state
	return o
}

// WithAccounting returns a copy of o describing the job's final accounting record.
func (o SubmissionOutcome) WithAccounting(rec AccountingRecord) SubmissionOutcome {
	o.State = rec.State
	o.ExitCode = rec.ExitCode
	o.Stdout = rec.StdoutPath
	o.Stderr = rec.StderrPath
	o.Accounting = &rec
	return o
}

// degraded is the outcome reported when the final accounting record could
// not be read.
func (o SubmissionOutcome) degraded() SubmissionOutcome {
	o.State = StateUnknown
	o.ExitCode = 0
	o.Stdout = ""
	o.Stderr = ""
	o.Accounting = nil
	return o
}
