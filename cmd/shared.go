package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/scheduler"
	"github.com/Justype/quickslurm/internal/utils"
)

// Exit codes used by various commands
const (
	// Generic error code
	ExitCodeError = 1
)

// exitCodeError ends the process with code without printing anything.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// JobFlags holds the flags shared by submit, run, srun and cancel.
type JobFlags struct {
	Options []string
	Env     []string
	Check   bool

	GPUs         int
	GPUType      string
	GPUTime      string
	GPUPartition string
	GPUMem       string
	GPUCPUs      int
}

// RegisterJobFlags registers the option and environment flags on a cobra command.
// withGPU adds the GPU preset flags.
func RegisterJobFlags(cmd *cobra.Command, flags *JobFlags, withGPU bool) {
	cmd.Flags().StringArrayVarP(&flags.Options, "option", "o", nil, "Slurm option 'key[=value]', e.g. -o mem=4G -o exclusive (can be used multiple times)")
	cmd.Flags().StringArrayVar(&flags.Env, "env", nil, "set environment variable 'KEY=VALUE' (can be used multiple times)")
	cmd.Flags().BoolVar(&flags.Check, "check", true, "treat a non-zero exit of the Slurm tool as an error")

	if withGPU {
		cmd.Flags().IntVar(&flags.GPUs, "gpu", 0, "request N GPUs with the GPU preset (time and gres)")
		cmd.Flags().StringVar(&flags.GPUType, "gpu-type", "gpu", "gres type for --gpu")
		cmd.Flags().StringVar(&flags.GPUTime, "gpu-time", "01:00:00", "walltime for --gpu")
		cmd.Flags().StringVar(&flags.GPUPartition, "gpu-partition", "", "partition for --gpu")
		cmd.Flags().StringVar(&flags.GPUMem, "gpu-mem", "", "memory for --gpu, e.g. 32G")
		cmd.Flags().IntVar(&flags.GPUCPUs, "gpu-cpus", 0, "cpus-per-task for --gpu")
		cmd.RegisterFlagCompletionFunc("gpu-type", fixedCompletion("gpu", "a100", "h100", "v100"))
	}
	cmd.RegisterFlagCompletionFunc("option", optionKeyCompletion)
}

// BuildOptions layers config defaults, the GPU preset and -o options, in
// that order of precedence.
func (f *JobFlags) BuildOptions(defaults scheduler.OptionMap) (scheduler.OptionMap, error) {
	opts := defaults
	if f.GPUs > 0 {
		opts = opts.Merge(scheduler.DefaultGPUOptions(scheduler.GPUPreset{
			GPUs:        f.GPUs,
			GresType:    f.GPUType,
			Time:        f.GPUTime,
			Partition:   f.GPUPartition,
			Mem:         f.GPUMem,
			CPUsPerTask: f.GPUCPUs,
		}))
	}
	explicit, err := scheduler.ParseOptions(f.Options)
	if err != nil {
		return nil, err
	}
	return opts.Merge(explicit), nil
}

// EnvMap returns the --env entries as a map.
func (f *JobFlags) EnvMap() (map[string]string, error) {
	for _, e := range f.Env {
		if key, _, ok := strings.Cut(e, "="); !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q: expected KEY=VALUE", e)
		}
	}
	return scheduler.ParseEnvList(f.Env), nil
}

// WaitFlags holds the flags of commands that can block on a job.
type WaitFlags struct {
	Wait     bool
	Timeout  time.Duration
	ExitCode bool
}

// RegisterWaitFlags registers the wait flags. withWait adds --wait itself.
func RegisterWaitFlags(cmd *cobra.Command, flags *WaitFlags, withWait bool) {
	if withWait {
		cmd.Flags().BoolVarP(&flags.Wait, "wait", "w", false, "wait until the job reaches a terminal state")
	}
	cmd.Flags().DurationVar(&flags.Timeout, "wait-timeout", 0, "give up waiting after this long, e.g. 2h (0 = config poll.timeout)")
	cmd.Flags().BoolVar(&flags.ExitCode, "exit-code", false, "exit with the job's exit code")
}

// newSlurm builds a Slurm client from the global config and the log sink.
// detectVersion runs sbatch --version when no version is configured.
func newSlurm(ctx context.Context, wait WaitFlags, detectVersion bool) *scheduler.Slurm {
	cfg := config.Global.SlurmConfig()
	cfg.Logger = logSink.Logger
	if wait.Timeout > 0 {
		cfg.WaitTimeout = wait.Timeout
	}
	cfg.OnState = func(jobID int, state scheduler.JobState) {
		utils.PrintDebug("Job %s: %s", utils.StyleNumber(jobID), utils.StyleState(state.String()))
	}

	if cfg.Version == "" && detectVersion {
		runner := scheduler.NewInvoker(cfg.Logger, cfg.BaseEnv, cfg.Timeout)
		version, err := scheduler.DetectVersion(ctx, runner, cfg.SbatchBin, scheduler.RunOptions{})
		if err != nil {
			utils.PrintDebug("Slurm version not detected: %v", err)
		} else {
			utils.PrintDebug("Slurm version: %s", utils.StyleNumber(version))
			cfg.Version = version
		}
	}
	return scheduler.NewSlurm(cfg)
}

// finishSubmission prints a submission outcome and maps it to the command error.
// Outcomes of bounded waits are printed before the wait error is returned.
func finishSubmission(cmd *cobra.Command, result scheduler.SubmissionOutcome, err error, wait WaitFlags) error {
	if err != nil {
		if !scheduler.IsWaitError(err) {
			return err
		}
		if renderErr := renderSubmission(cmd.OutOrStdout(), outputFormat, result); renderErr != nil {
			return errors.Join(err, renderErr)
		}
		return err
	}

	if result.JobID == scheduler.NoJob && !result.Submission.Succeeded() {
		utils.PrintWarning("sbatch exited with code %s; no job was submitted", utils.StyleNumber(result.Submission.ExitCode))
	}
	if err := renderSubmission(cmd.OutOrStdout(), outputFormat, result); err != nil {
		return err
	}
	if wait.ExitCode && result.ExitCode != 0 {
		return &exitCodeError{code: result.ExitCode}
	}
	return nil
}

// parseJobIDs converts positional arguments into job IDs.
func parseJobIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= scheduler.NoJob {
			return nil, fmt.Errorf("%w: %q", scheduler.ErrInvalidJobID, arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ============================================================================
// Shell Completion Functions
// ============================================================================

// commonOptionKeys are suggested for -o/--option.
var commonOptionKeys = []string{
	"account=", "cpus-per-task=", "error=", "exclusive", "gres=", "job-name=",
	"mem=", "nodes=", "ntasks=", "output=", "partition=", "qos=", "time=",
}

func optionKeyCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return commonOptionKeys, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func fixedCompletion(choices ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return choices, cobra.ShellCompDirectiveNoFileComp
	}
}
