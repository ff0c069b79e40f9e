package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/scheduler"
)

var (
	submitJob  JobFlags
	submitWait WaitFlags
)

var submitCmd = &cobra.Command{
	Use:   "submit [flags] <script> [script-args...]",
	Short: "Submit a batch script with sbatch",
	Long: `Submit a batch script with sbatch.

Options from the config file (defaults.sbatch) are applied first, then the
--gpu preset, then every -o/--option. Flags after the script name are passed
to the script.

With --wait the command blocks until accounting reports a terminal state and
prints the job's exit code and output paths.`,
	Example: `  quickslurm submit job.sh
  quickslurm submit -o time=02:00:00 -o mem=8G job.sh input.txt
  quickslurm submit --gpu 2 --gpu-partition gpu --wait job.sh
  quickslurm submit --wait --exit-code --output json job.sh`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: scriptCompletion,
	RunE:              runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	opts, err := submitJob.BuildOptions(config.Global.SbatchDefaults)
	if err != nil {
		return err
	}
	env, err := submitJob.EnvMap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	slurm := newSlurm(ctx, submitWait, submitWait.Wait)
	result, err := slurm.Sbatch(ctx, args[0], scheduler.SubmitRequest{
		ScriptArgs: args[1:],
		Options:    opts,
		Env:        env,
		Check:      submitJob.Check,
		Wait:       submitWait.Wait,
	})
	return finishSubmission(cmd, result, err, submitWait)
}

func scriptCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return []string{"sh", "bash", "slurm", "sbatch"}, cobra.ShellCompDirectiveFilterFileExt
	}
	return nil, cobra.ShellCompDirectiveDefault
}

func init() {
	RegisterJobFlags(submitCmd, &submitJob, true)
	RegisterWaitFlags(submitCmd, &submitWait, true)

	// Stop flag parsing after the script name
	submitCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(submitCmd)
}
