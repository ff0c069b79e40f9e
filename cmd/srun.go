package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/scheduler"
)

var (
	srunJob      JobFlags
	srunExitCode bool
)

var srunCmd = &cobra.Command{
	Use:   "srun [flags] -- <command> [args...]",
	Short: "Run a command through srun and wait for it",
	Long: `Run a command through srun. The command's output is printed once it exits.

Options from the config file (defaults.srun) are applied before -o/--option.
With --check=false a failing command is reported as FAILED instead of an error.`,
	Example: `  quickslurm srun -- hostname
  quickslurm srun -o ntasks=4 -o time=00:10:00 -- ./mpi_app
  quickslurm srun --check=false --exit-code -- ./flaky.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := srunJob.BuildOptions(config.Global.SrunDefaults)
		if err != nil {
			return err
		}
		env, err := srunJob.EnvMap()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		slurm := newSlurm(ctx, WaitFlags{}, false)
		result, runErr := slurm.Srun(ctx, args, scheduler.RunRequest{
			Options: opts,
			Env:     env,
			Check:   srunJob.Check,
		})
		if runErr != nil && !scheduler.IsCommandFailedError(runErr) {
			return runErr
		}

		if outputFormat == FormatText || outputFormat == "" {
			io.WriteString(cmd.OutOrStdout(), result.Stdout)
			io.WriteString(cmd.ErrOrStderr(), result.Stderr)
		} else if err := renderSubmission(cmd.OutOrStdout(), outputFormat, result); err != nil {
			return err
		}

		if srunExitCode && result.ExitCode != 0 {
			return &exitCodeError{code: result.ExitCode}
		}
		return runErr
	},
}

func init() {
	RegisterJobFlags(srunCmd, &srunJob, false)
	srunCmd.Flags().BoolVar(&srunExitCode, "exit-code", false, "exit with the command's exit code")

	// Stop flag parsing after the first positional argument
	srunCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(srunCmd)
}
