package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/scheduler"
)

var (
	runJob       JobFlags
	runWait      WaitFlags
	runShebang   string
	runWorkdir   string
	runScriptDir string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Submit an inline command as a batch job",
	Long: `Wrap a command in a temporary batch script and submit it with sbatch.

The script starts with the shebang (default "#!/bin/bash -l"), enables
"set -euo pipefail", changes to --workdir when given and runs the command
with its arguments quoted. The script is removed after submission.`,
	Example: `  quickslurm run -- python train.py --epochs 10
  quickslurm run --workdir /scratch/me -o mem=16G -- ./analyze.sh
  quickslurm run --gpu 1 --wait --exit-code -- nvidia-smi`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runJob.BuildOptions(config.Global.SbatchDefaults)
		if err != nil {
			return err
		}
		env, err := runJob.EnvMap()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		slurm := newSlurm(ctx, runWait, runWait.Wait)
		result, err := slurm.SubmitInline(ctx, args, scheduler.InlineRequest{
			SubmitRequest: scheduler.SubmitRequest{
				Options: opts,
				Env:     env,
				Check:   runJob.Check,
				Wait:    runWait.Wait,
			},
			Shebang:   runShebang,
			Workdir:   runWorkdir,
			ScriptDir: runScriptDir,
		})
		return finishSubmission(cmd, result, err, runWait)
	},
}

func init() {
	RegisterJobFlags(runCmd, &runJob, true)
	RegisterWaitFlags(runCmd, &runWait, true)
	runCmd.Flags().StringVar(&runShebang, "shebang", scheduler.DefaultShebang, "first line of the generated script")
	runCmd.Flags().StringVar(&runWorkdir, "workdir", "", "directory the job changes into before running the command")
	runCmd.Flags().StringVar(&runScriptDir, "script-dir", "", "where the temporary script is written (default: system temp dir)")
	runCmd.MarkFlagDirname("workdir")
	runCmd.MarkFlagDirname("script-dir")

	// Stop flag parsing after the first positional argument
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}
