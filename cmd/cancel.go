package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/scheduler"
	"github.com/Justype/quickslurm/internal/utils"
)

var cancelJob JobFlags

var cancelCmd = &cobra.Command{
	Use:     "cancel <job-id>...",
	Aliases: []string{"scancel"},
	Short:   "Cancel jobs with scancel",
	Example: `  quickslurm cancel 123456
  quickslurm cancel -o signal=USR1 123456 123457`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseJobIDs(args)
		if err != nil {
			return err
		}
		opts, err := cancelJob.BuildOptions(nil)
		if err != nil {
			return err
		}
		env, err := cancelJob.EnvMap()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		slurm := newSlurm(ctx, WaitFlags{}, false)
		req := scheduler.RunRequest{Options: opts, Env: env, Check: cancelJob.Check}

		var errs []error
		for _, id := range ids {
			out, err := slurm.Scancel(ctx, id, req)
			switch {
			case err != nil:
				errs = append(errs, err)
			case out.ExitCode != 0:
				utils.PrintWarning("scancel %s exited with code %s", utils.StyleNumber(id), utils.StyleNumber(out.ExitCode))
			default:
				utils.PrintSuccess("Cancelled job %s", utils.StyleNumber(id))
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	RegisterJobFlags(cancelCmd, &cancelJob, false)
	rootCmd.AddCommand(cancelCmd)
}
