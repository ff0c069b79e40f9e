// Package scheduler drives the Slurm command-line tools to submit batch jobs,
// extract their identifiers and wait for them to finish.
package scheduler

import (
	"context"
	"os"
)

// SchedulerName is the label attached to parse errors.
const SchedulerName = "SLURM"

// Default executable names, resolved on PATH.
const (
	DefaultSbatchBin  = "sbatch"
	DefaultSrunBin    = "srun"
	DefaultScancelBin = "scancel"
	DefaultSacctBin   = "sacct"
)

// Runner executes one argument vector and reports what happened.
// *Invoker is the production implementation.
type Runner interface {
	Run(ctx context.Context, args []string, opts RunOptions) (CommandOutcome, error)
}

// StateQuerier reports the current state of a job.
// The Poller treats any error as transient.
type StateQuerier interface {
	QueryState(ctx context.Context, jobID int) (JobState, error)
}

// StateQuerierFunc adapts a function to StateQuerier.
type StateQuerierFunc func(ctx context.Context, jobID int) (JobState, error)

func (f StateQuerierFunc) QueryState(ctx context.Context, jobID int) (JobState, error) {
	return f(ctx, jobID)
}

// IsInsideJob reports whether the current process runs inside a Slurm allocation.
func IsInsideJob() bool {
	_, ok := os.LookupEnv("SLURM_JOB_ID")
	return ok
}
