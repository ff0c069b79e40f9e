package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	// ErrToolNotFound indicates a Slurm executable could not be located
	ErrToolNotFound = errors.New("scheduler binary not found")

	// ErrTimeout indicates an invocation exceeded its wall-clock budget
	ErrTimeout = errors.New("command timed out")

	// ErrCommandFailed indicates a non-zero exit under strict checking
	ErrCommandFailed = errors.New("command failed")

	// ErrInvocationFailed indicates the process could not be run for any other reason
	ErrInvocationFailed = errors.New("command invocation failed")

	// ErrJobIDParseFailed indicates parsing job ID from output failed
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")

	// ErrAccountingParseFailed indicates sacct output held no usable record
	ErrAccountingParseFailed = errors.New("failed to parse accounting record")

	// ErrEmptyCommand indicates an empty argument vector
	ErrEmptyCommand = errors.New("empty command")

	// ErrInvalidOption indicates a malformed key[=value] option
	ErrInvalidOption = errors.New("invalid option")

	// ErrInvalidTimeFormat indicates time format is invalid
	ErrInvalidTimeFormat = errors.New("invalid time format")

	// ErrInvalidJobID indicates a job ID that cannot name a job
	ErrInvalidJobID = errors.New("invalid job ID")

	// ErrInvalidVersion indicates the Slurm version could not be read
	ErrInvalidVersion = errors.New("invalid slurm version")
)

// ToolNotFoundError is returned when an executable cannot be resolved.
type ToolNotFoundError struct {
	Tool string // Name or path that was searched for
	Err  error  // Underlying lookup error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %q (is Slurm on PATH?)", e.Tool)
}

func (e *ToolNotFoundError) Is(target error) bool { return target == ErrToolNotFound }

func (e *ToolNotFoundError) Unwrap() error { return e.Err }

// TimeoutError carries whatever output was captured before the timeout fired.
type TimeoutError struct {
	Timeout time.Duration
	Outcome CommandOutcome
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s: %s", e.Timeout, e.Outcome.CommandLine())
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// CommandFailedError is returned for a non-zero exit code when strict checking is on.
type CommandFailedError struct {
	Outcome CommandOutcome
}

func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("command failed (exit %d): %s", e.Outcome.ExitCode, e.Outcome.CommandLine())
	if stderr := strings.TrimSpace(e.Outcome.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *CommandFailedError) Is(target error) bool { return target == ErrCommandFailed }

// ParseError represents an expected pattern missing from scheduler output
type ParseError struct {
	Scheduler string // Scheduler name (e.g., "SLURM")
	Content   string // Raw output that failed to parse
	Reason    string // Reason for parse failure
	Err       error  // Sentinel describing what was being parsed
}

func (e *ParseError) Error() string {
	if strings.TrimSpace(e.Content) != "" {
		return fmt.Sprintf("%s parse error: %s\nOutput: %s", e.Scheduler, e.Reason, strings.TrimSpace(e.Content))
	}
	return fmt.Sprintf("%s parse error: %s (empty output)", e.Scheduler, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvocationError wraps any other failure to run a process, unchanged.
type InvocationError struct {
	Args []string
	Err  error
}

func (e *InvocationError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("invocation failed: %v", e.Err)
	}
	return fmt.Sprintf("invoking %s: %v", e.Args[0], e.Err)
}

func (e *InvocationError) Is(target error) bool { return target == ErrInvocationFailed }

func (e *InvocationError) Unwrap() error { return e.Err }

// WaitError is returned when waiting for a job is cancelled or hits its deadline.
type WaitError struct {
	JobID     int
	LastState JobState // Last non-terminal state observed
	Err       error    // context.Canceled or context.DeadlineExceeded
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("waiting for job %d stopped (last state %s): %v", e.JobID, e.LastState, e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }

// ScriptCreationError represents an error creating a batch script
type ScriptCreationError struct {
	Path string // Script path
	Err  error  // Underlying error
}

func (e *ScriptCreationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to create batch script: %v", e.Err)
	}
	return fmt.Sprintf("failed to create batch script at %s: %v", e.Path, e.Err)
}

func (e *ScriptCreationError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewToolNotFoundError creates a new ToolNotFoundError
func NewToolNotFoundError(tool string, err error) *ToolNotFoundError {
	return &ToolNotFoundError{Tool: tool, Err: err}
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(timeout time.Duration, outcome CommandOutcome) *TimeoutError {
	return &TimeoutError{Timeout: timeout, Outcome: outcome}
}

// NewCommandFailedError creates a new CommandFailedError
func NewCommandFailedError(outcome CommandOutcome) *CommandFailedError {
	return &CommandFailedError{Outcome: outcome}
}

// NewParseError creates a new ParseError
func NewParseError(scheduler string, content string, reason string, err error) *ParseError {
	return &ParseError{
		Scheduler: scheduler,
		Content:   content,
		Reason:    reason,
		Err:       err,
	}
}

// NewInvocationError creates a new InvocationError
func NewInvocationError(args []string, err error) *InvocationError {
	return &InvocationError{Args: args, Err: err}
}

// NewWaitError creates a new WaitError
func NewWaitError(jobID int, last JobState, err error) *WaitError {
	return &WaitError{JobID: jobID, LastState: last, Err: err}
}

// NewScriptCreationError creates a new ScriptCreationError
func NewScriptCreationError(path string, err error) *ScriptCreationError {
	return &ScriptCreationError{Path: path, Err: err}
}

// IsTimeoutError checks if an error is a TimeoutError
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCommandFailedError checks if an error is a CommandFailedError
func IsCommandFailedError(err error) bool {
	var ce *CommandFailedError
	return errors.As(err, &ce)
}

// IsParseError checks if an error is a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsWaitError checks if an error is a WaitError
func IsWaitError(err error) bool {
	var we *WaitError
	return errors.As(err, &we)
}

// OutcomeOf returns the CommandOutcome attached to a Timeout or CommandFailed error.
func OutcomeOf(err error) (CommandOutcome, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Outcome, true
	}
	var ce *CommandFailedError
	if errors.As(err, &ce) {
		return ce.Outcome, true
	}
	return CommandOutcome{}, false
}
