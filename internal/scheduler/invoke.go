package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
)

// defaultWaitDelay bounds how long Run waits for output pipes after the
// process has been killed.
const defaultWaitDelay = time.Second

// RunOptions are per-call settings for Invoker.Run.
type RunOptions struct {
	Env     map[string]string // Layered over the invoker's base environment
	Input   string            // Written to stdin when non-empty
	Timeout time.Duration     // Overrides Invoker.Timeout when non-zero
}

// Invoker runs external commands with a merged environment and an optional
// wall-clock budget. It is safe for concurrent use.
type Invoker struct {
	BaseEnv   map[string]string
	Timeout   time.Duration // Zero means no limit
	WaitDelay time.Duration
	Logger    *zap.Logger

	// Environ supplies the inherited environment. Defaults to os.Environ.
	Environ func() []string
}

// NewInvoker creates an Invoker logging to logger (nil for silent).
func NewInvoker(logger *zap.Logger, baseEnv map[string]string, timeout time.Duration) *Invoker {
	return &Invoker{BaseEnv: baseEnv, Timeout: timeout, Logger: logger}
}

func (inv *Invoker) log() *zap.Logger {
	if inv.Logger == nil {
		return zap.NewNop()
	}
	return inv.Logger
}

// Run executes args and captures its output.
//
// A non-zero exit code is reported in the outcome, not as an error. Errors are
// *ToolNotFoundError when the executable is missing, *TimeoutError (with
// partial output and exit code -1) when the budget runs out, and
// *InvocationError for anything else, including caller cancellation.
func (inv *Invoker) Run(ctx context.Context, args []string, opts RunOptions) (CommandOutcome, error) {
	if len(args) == 0 {
		return CommandOutcome{}, NewInvocationError(args, ErrEmptyCommand)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = inv.Timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	log := inv.log().With(zap.String("run_id", runID))
	log.Info("running", zap.String("cmd", shellquote.Join(args...)))

	environ := os.Environ
	if inv.Environ != nil {
		environ = inv.Environ
	}

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Env = MergeEnv(environ(), inv.BaseEnv, opts.Env)
	cmd.WaitDelay = inv.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	if opts.Input != "" {
		cmd.Stdin = strings.NewReader(opts.Input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	outcome := CommandOutcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Args:     append([]string(nil), args...),
		RunID:    runID,
		Duration: time.Since(start),
	}

	if runErr == nil {
		log.Debug("finished",
			zap.Int("exit_code", 0),
			zap.String("stdout", outcome.Stdout),
			zap.String("stderr", outcome.Stderr),
			zap.Duration("duration", outcome.Duration))
		return outcome, nil
	}

	// The budget fired while the caller's context is still live.
	if timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		outcome.ExitCode = -1
		if outcome.Stderr == "" {
			outcome.Stderr = fmt.Sprintf("timed out after %s", timeout)
		}
		log.Error("timed out", zap.Duration("timeout", timeout), zap.String("stdout", outcome.Stdout))
		return outcome, NewTimeoutError(timeout, outcome)
	}

	if err := ctx.Err(); err != nil {
		log.Error("cancelled", zap.Error(err))
		return outcome, NewInvocationError(args, fmt.Errorf("%w: %v", err, runErr))
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		log.Debug("finished",
			zap.Int("exit_code", outcome.ExitCode),
			zap.String("stdout", outcome.Stdout),
			zap.String("stderr", outcome.Stderr),
			zap.Duration("duration", outcome.Duration))
		return outcome, nil
	}

	if isNotFound(runErr) {
		log.Error("command not found", zap.String("tool", args[0]), zap.Error(runErr))
		return CommandOutcome{}, NewToolNotFoundError(args[0], runErr)
	}

	log.Error("invocation failed", zap.Error(runErr))
	return outcome, NewInvocationError(args, runErr)
}

// isNotFound reports whether err means the executable itself is missing.
func isNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return false
	}
	return errors.Is(err, fs.ErrNotExist)
}

// CheckOutcome applies strict checking: with check set, a non-zero exit code
// becomes a *CommandFailedError carrying the outcome.
func CheckOutcome(out CommandOutcome, check bool) error {
	if check && out.ExitCode != 0 {
		return NewCommandFailedError(out)
	}
	return nil
}
