package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Justype/quickslurm/internal/scheduler"
)

func TestSrunPrintsOutput(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand(t, "srun", "--", "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
}

func TestSrunExitCode(t *testing.T) {
	setupCLI(t)

	_, err := executeCommand(t, "srun", "--check=false", "--exit-code", "--", "sh", "-c", "exit 4")
	assert.Equal(t, 4, exitStatus(err))

	_, err = executeCommand(t, "srun", "--", "sh", "-c", "exit 4")
	assert.True(t, scheduler.IsCommandFailedError(err))

	out, err := executeCommand(t, "--output", "yaml", "srun", "--check=false", "--", "sh", "-c", "exit 4")
	require.NoError(t, err)
	var result scheduler.SubmissionOutcome
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, scheduler.StateFailed, result.State)
	assert.Equal(t, 4, result.ExitCode)
	assert.Equal(t, scheduler.NoJob, result.JobID)
}

func TestCancel(t *testing.T) {
	f, console := setupCLI(t)

	_, err := executeCommand(t, "cancel", "-o", "signal=USR1", "11", "12")
	require.NoError(t, err)
	assert.Equal(t, "--signal=USR1\n11\n--signal=USR1\n12\n", f.recorded(t, "scancel.args"))
	assert.Contains(t, console.String(), "Cancelled job 12")
}

func TestCancelRejectsInvalidIDs(t *testing.T) {
	f, _ := setupCLI(t)

	for _, arg := range []string{"abc", "0", "-3"} {
		_, err := executeCommand(t, "cancel", "--", arg)
		assert.ErrorIs(t, err, scheduler.ErrInvalidJobID, arg)
	}
	assert.Empty(t, f.recorded(t, "scancel.args"))
}

func TestWaitMultipleJobs(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand(t, "--output", "yaml", "wait", "--parallel", "2", "1", "2", "3")
	require.NoError(t, err)

	var results []scheduler.SubmissionOutcome
	require.NoError(t, yaml.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i+1, r.JobID)
		assert.Equal(t, scheduler.StateCompleted, r.State)
		assert.Equal(t, "/tmp/job.out", r.Stdout)
	}
}

func TestWaitExitCode(t *testing.T) {
	setupCLI(t)
	t.Setenv("FAKE_EXIT", "2")

	out, err := executeCommand(t, "wait", "--exit-code", "5")
	assert.Equal(t, 2, exitStatus(err))
	assert.Contains(t, out, "Job ID:    5")
}

func TestStatusTable(t *testing.T) {
	setupCLI(t)

	out, err := executeCommand(t, "status", "7", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "JOBID")
	assert.Regexp(t, `7\s+COMPLETED\s+0\s+00:00:05\s+/tmp/job.out`, out)
	assert.Regexp(t, `8\s+COMPLETED`, out)
}

func TestInfo(t *testing.T) {
	f, _ := setupCLI(t)
	t.Setenv("SLURM_JOB_ID", "")
	require.NoError(t, os.Unsetenv("SLURM_JOB_ID"))

	out, err := executeCommand(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Binary:    "+f.path("sbatch"))
	assert.Contains(t, out, "Version:   23.02.6")
	assert.Contains(t, out, "sacct reports StdOut/StdErr")
	assert.Contains(t, out, "Available")
}

func TestInfoDetectsVersion(t *testing.T) {
	setupCLI(t)
	t.Setenv("QUICKSLURM_SLURM_VERSION", "")

	out, err := executeCommand(t, "--output", "json", "info")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "23.02.6"`)
	assert.Contains(t, out, `"output_paths": true`)
}

func TestInfoMissingSbatch(t *testing.T) {
	setupCLI(t)
	t.Setenv("QUICKSLURM_SBATCH_BIN", "/nonexistent/sbatch")

	out, err := executeCommand(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Not Found")
}

func TestInvalidOutputFormat(t *testing.T) {
	setupCLI(t)

	_, err := executeCommand(t, "--output", "xml", "status", "1")
	require.ErrorContains(t, err, `unknown output format "xml"`)
}
