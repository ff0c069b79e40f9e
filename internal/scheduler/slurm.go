package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SlurmConfig configures a Slurm client. Zero values select defaults.
type SlurmConfig struct {
	SbatchBin  string
	SrunBin    string
	ScancelBin string
	SacctBin   string

	BaseEnv map[string]string // Applied to every invocation
	Timeout time.Duration     // Default per-invocation budget; zero means none

	AccountingTimeout time.Duration // Per sacct call; zero means 10s
	PollInterval      time.Duration
	RetryInterval     time.Duration
	MaxRetryInterval  time.Duration
	WaitTimeout       time.Duration // Bounds Wait; zero means unbounded

	// Version is the Slurm version ("23.02.6"). Empty means unknown, in
	// which case output paths are requested from sacct.
	Version string

	Logger  *zap.Logger
	Runner  Runner // Defaults to an Invoker using Logger
	OnState func(jobID int, state JobState)
}

// SubmitRequest holds the per-call settings of Sbatch.
type SubmitRequest struct {
	ScriptArgs []string
	Options    OptionMap
	Env        map[string]string
	Timeout    time.Duration
	Check      bool // Non-zero sbatch exit becomes a *CommandFailedError
	Wait       bool // Block until the job reaches a terminal state
}

// InlineRequest holds the per-call settings of SubmitInline.
type InlineRequest struct {
	SubmitRequest
	Shebang   string // Defaults to DefaultShebang
	Workdir   string // cd target inside the script
	ScriptDir string // Where the temp script is written; defaults to the temp dir
}

// RunRequest holds the per-call settings of Srun and Scancel.
type RunRequest struct {
	Options OptionMap
	Env     map[string]string
	Timeout time.Duration
	Check   bool
}

// Slurm submits, runs, cancels and waits for Slurm jobs.
// It holds no mutable state and is safe for concurrent use.
type Slurm struct {
	sbatchBin  string
	srunBin    string
	scancelBin string
	baseEnv    map[string]string
	timeout    time.Duration
	version    string
	fields     []string

	runner     Runner
	accounting *Accounting
	poller     *Poller
	logger     *zap.Logger
}

// NewSlurm creates a Slurm client.
func NewSlurm(cfg SlurmConfig) *Slurm {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = NewInvoker(logger, nil, 0)
	}

	s := &Slurm{
		sbatchBin:  orDefault(cfg.SbatchBin, DefaultSbatchBin),
		srunBin:    orDefault(cfg.SrunBin, DefaultSrunBin),
		scancelBin: orDefault(cfg.ScancelBin, DefaultScancelBin),
		baseEnv:    maps.Clone(cfg.BaseEnv),
		timeout:    cfg.Timeout,
		version:    cfg.Version,
		fields:     ResultFields(cfg.Version),
		runner:     runner,
		logger:     logger,
	}
	s.accounting = &Accounting{
		Runner:  runner,
		Bin:     orDefault(cfg.SacctBin, DefaultSacctBin),
		Env:     s.baseEnv,
		Timeout: cfg.AccountingTimeout,
	}
	s.poller = &Poller{
		Querier:          s.accounting,
		Interval:         cfg.PollInterval,
		RetryInterval:    cfg.RetryInterval,
		MaxRetryInterval: cfg.MaxRetryInterval,
		Timeout:          cfg.WaitTimeout,
		Logger:           logger,
		OnState:          cfg.OnState,
	}
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Version returns the configured Slurm version, or "" when unknown.
func (s *Slurm) Version() string { return s.version }

// ResultFields returns the sacct fields used for final lookups.
func (s *Slurm) ResultFields() []string { return append([]string(nil), s.fields...) }

func (s *Slurm) runOptions(env map[string]string, timeout time.Duration) RunOptions {
	merged := maps.Clone(s.baseEnv)
	if merged == nil && len(env) > 0 {
		merged = make(map[string]string, len(env))
	}
	maps.Copy(merged, env)
	if timeout == 0 {
		timeout = s.timeout
	}
	return RunOptions{Env: merged, Timeout: timeout}
}

// Sbatch submits a batch script.
//
// A non-zero sbatch exit is a *CommandFailedError when req.Check is set;
// otherwise the outcome carries NoJob and StateUnknown and no job ID is read
// from the failed output. Without req.Wait the outcome reports sbatch's own
// exit code and output, in state StateUnknown.
func (s *Slurm) Sbatch(ctx context.Context, script string, req SubmitRequest) (SubmissionOutcome, error) {
	args := []string{s.sbatchBin}
	args = append(args, EncodeFlags(req.Options)...)
	args = append(args, script)
	args = append(args, req.ScriptArgs...)

	out, err := s.runner.Run(ctx, args, s.runOptions(req.Env, req.Timeout))
	if err != nil {
		return newSubmissionOutcome(out, NoJob, StateUnknown), err
	}
	if out.ExitCode != 0 {
		if err := CheckOutcome(out, req.Check); err != nil {
			return newSubmissionOutcome(out, NoJob, StateUnknown), err
		}
		s.logger.Warn("sbatch failed", zap.Int("exit_code", out.ExitCode), zap.String("stderr", out.Stderr))
		return newSubmissionOutcome(out, NoJob, StateUnknown), nil
	}

	jobID, err := ExtractJobID(out.Stdout)
	if err != nil {
		return newSubmissionOutcome(out, NoJob, StateUnknown), err
	}
	s.logger.Info("submitted", zap.Int("job_id", jobID), zap.String("script", script))

	result := newSubmissionOutcome(out, jobID, StateUnknown)
	if !req.Wait {
		return result, nil
	}
	return s.wait(ctx, result)
}

// SubmitInline writes command into a temporary batch script and submits it
// with Sbatch. The script is removed afterwards whatever the outcome.
// req.ScriptArgs is ignored.
func (s *Slurm) SubmitInline(ctx context.Context, command []string, req InlineRequest) (SubmissionOutcome, error) {
	if len(command) == 0 {
		return SubmissionOutcome{State: StateUnknown}, NewInvocationError(command, ErrEmptyCommand)
	}
	path, err := WriteInlineScript(req.ScriptDir, RenderInlineScript(command, req.Shebang, req.Workdir))
	if err != nil {
		return SubmissionOutcome{State: StateUnknown}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("removing inline script", zap.String("path", path), zap.Error(err))
		}
	}()

	sub := req.SubmitRequest
	sub.ScriptArgs = nil
	return s.Sbatch(ctx, path, sub)
}

// Srun runs command through srun and waits for the process to exit.
// The outcome has JobID NoJob and state StateCompleted or StateFailed.
func (s *Slurm) Srun(ctx context.Context, command []string, req RunRequest) (SubmissionOutcome, error) {
	if len(command) == 0 {
		return SubmissionOutcome{State: StateUnknown}, NewInvocationError(command, ErrEmptyCommand)
	}
	args := []string{s.srunBin}
	args = append(args, EncodeFlags(req.Options)...)
	args = append(args, command...)

	out, err := s.runner.Run(ctx, args, s.runOptions(req.Env, req.Timeout))
	if err != nil {
		return newSubmissionOutcome(out, NoJob, StateUnknown), err
	}
	state := StateCompleted
	if out.ExitCode != 0 {
		state = StateFailed
	}
	result := newSubmissionOutcome(out, NoJob, state)
	if err := CheckOutcome(out, req.Check); err != nil {
		return result, err
	}
	return result, nil
}

// Scancel cancels a job. Only the exit code of scancel is meaningful.
func (s *Slurm) Scancel(ctx context.Context, jobID int, req RunRequest) (CommandOutcome, error) {
	if jobID <= NoJob {
		return CommandOutcome{}, fmt.Errorf("%w: %d", ErrInvalidJobID, jobID)
	}
	args := []string{s.scancelBin}
	args = append(args, EncodeFlags(req.Options)...)
	args = append(args, strconv.Itoa(jobID))

	out, err := s.runner.Run(ctx, args, s.runOptions(req.Env, req.Timeout))
	if err != nil {
		return out, err
	}
	if err := CheckOutcome(out, req.Check); err != nil {
		return out, err
	}
	s.logger.Info("cancelled", zap.Int("job_id", jobID))
	return out, nil
}

// Wait blocks until an existing job finishes and returns its final
// accounting outcome.
func (s *Slurm) Wait(ctx context.Context, jobID int) (SubmissionOutcome, error) {
	return s.wait(ctx, SubmissionOutcome{JobID: jobID, State: StateUnknown})
}

// Status returns a single accounting lookup for a job.
func (s *Slurm) Status(ctx context.Context, jobID int) (AccountingRecord, error) {
	if jobID <= NoJob {
		return AccountingRecord{}, fmt.Errorf("%w: %d", ErrInvalidJobID, jobID)
	}
	return s.accounting.Lookup(ctx, jobID, s.fields)
}

// wait polls until result.JobID is terminal, then replaces the outcome with
// the job's final accounting record. A failed final lookup yields
// StateUnknown with exit code 0 and no output paths.
func (s *Slurm) wait(ctx context.Context, result SubmissionOutcome) (SubmissionOutcome, error) {
	if result.JobID == NoJob {
		return result, nil
	}
	state, err := s.poller.Wait(ctx, result.JobID)
	if err != nil {
		return result.WithState(state), err
	}

	rec, err := s.accounting.Lookup(ctx, result.JobID, s.fields)
	if err != nil {
		s.logger.Warn("final accounting lookup failed",
			zap.Int("job_id", result.JobID),
			zap.String("polled_state", state.String()),
			zap.Error(err))
		return result.degraded(), nil
	}
	s.logger.Debug("job result",
		zap.Int("job_id", result.JobID),
		zap.String("state", rec.State.String()),
		zap.Int("exit_code", rec.ExitCode))
	return result.WithAccounting(rec), nil
}

// Info describes the local Slurm installation.
type Info struct {
	Type      string `json:"type" yaml:"type"`
	Binary    string `json:"binary" yaml:"binary"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	InJob     bool   `json:"in_job" yaml:"in_job"`
	Available bool   `json:"available" yaml:"available"`
}

// Info resolves sbatch on PATH and reports the detected version.
// Submission is considered unavailable from inside an allocation.
func (s *Slurm) Info(ctx context.Context) Info {
	info := Info{Type: SchedulerName, InJob: IsInsideJob(), Version: s.version}
	path, err := exec.LookPath(s.sbatchBin)
	if err != nil {
		return info
	}
	info.Binary = path
	info.Available = !info.InJob
	if info.Version == "" {
		if v, err := DetectVersion(ctx, s.runner, s.sbatchBin, s.runOptions(nil, 0)); err == nil {
			info.Version = v
		}
	}
	return info
}
