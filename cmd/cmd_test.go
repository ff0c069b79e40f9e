package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Justype/quickslurm/internal/logging"
	"github.com/Justype/quickslurm/internal/utils"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	goleak.VerifyTestMain(m)
}

// fakeSlurm holds the directory of fake Slurm tools and their recorded arguments.
type fakeSlurm struct {
	dir string
}

func (f fakeSlurm) path(name string) string { return filepath.Join(f.dir, name) }

// recorded returns what a fake tool wrote to dir/name, or "" when absent.
func (f fakeSlurm) recorded(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

const fakeSbatch = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "slurm 23.02.6"
  exit 0
fi
printf '%s\n' "$@" > "$FAKE_DIR/sbatch.args"
for last; do :; done
if [ -f "$last" ]; then cat "$last" > "$FAKE_DIR/script.txt"; fi
if [ -n "$FAKE_SBATCH_FAIL" ]; then
  echo "sbatch: error: invalid partition specified" >&2
  exit 1
fi
echo "Submitted batch job ${FAKE_JOB_ID:-4242}"
`

const fakeSacct = `#!/bin/sh
case "$*" in
*--format=State\ *) echo "COMPLETED" ;;
*) echo "COMPLETED|${FAKE_EXIT:-0}:0|00:00:05|/tmp/job.out|/tmp/job.err" ;;
esac
`

const fakeSrun = `#!/bin/sh
exec "$@"
`

const fakeScancel = `#!/bin/sh
printf '%s\n' "$@" >> "$FAKE_DIR/scancel.args"
`

// setupCLI isolates the CLI from the host: temp HOME and working directory,
// fake Slurm tools configured through QUICKSLURM_* variables, and captured
// console output.
func setupCLI(t *testing.T) (fakeSlurm, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	f := fakeSlurm{dir: t.TempDir()}
	for name, body := range map[string]string{
		"sbatch":  fakeSbatch,
		"sacct":   fakeSacct,
		"srun":    fakeSrun,
		"scancel": fakeScancel,
	} {
		require.NoError(t, os.WriteFile(f.path(name), []byte(body), 0o755))
	}
	t.Setenv("FAKE_DIR", f.dir)
	t.Setenv("QUICKSLURM_SBATCH_BIN", f.path("sbatch"))
	t.Setenv("QUICKSLURM_SACCT_BIN", f.path("sacct"))
	t.Setenv("QUICKSLURM_SRUN_BIN", f.path("srun"))
	t.Setenv("QUICKSLURM_SCANCEL_BIN", f.path("scancel"))
	t.Setenv("QUICKSLURM_SLURM_VERSION", "23.02.6")
	t.Setenv("QUICKSLURM_POLL_INTERVAL", "10ms")

	console := &bytes.Buffer{}
	setConsole(t, console)
	t.Cleanup(viper.Reset)
	return f, console
}

// setConsole redirects the console printers to w for the duration of the test.
func setConsole(t *testing.T, w io.Writer) {
	t.Helper()
	oldOut, oldErr := utils.Stdout, utils.Stderr
	utils.Stdout, utils.Stderr = w, w
	t.Cleanup(func() {
		utils.Stdout, utils.Stderr = oldOut, oldErr
		utils.DebugMode, utils.QuietMode = false, false
	})
}

// executeCommand runs the root command with args and returns what the
// command wrote to its output stream.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--no-log-file"}, args...))
	err := rootCmd.ExecuteContext(context.Background())

	require.NoError(t, logSink.Close())
	logSink = logging.Nop()
	return out.String(), err
}

// resetFlags restores every flag to its default so commands do not see
// values from a previous execution.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}
