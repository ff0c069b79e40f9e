package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Justype/quickslurm/internal/scheduler"
)

var (
	waitFlags    WaitFlags
	waitParallel int
)

var waitCmd = &cobra.Command{
	Use:   "wait <job-id>...",
	Short: "Wait for existing jobs to finish",
	Long: `Poll accounting until every job reaches a terminal state, then print their
final state, exit code and output paths.

Up to --parallel jobs are polled at once. With --exit-code the command exits
with the first non-zero job exit code, in argument order.`,
	Example: `  quickslurm wait 123456
  quickslurm wait --wait-timeout 2h --output yaml 123456 123457`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseJobIDs(args)
		if err != nil {
			return err
		}

		slurm := newSlurm(cmd.Context(), waitFlags, true)
		results, err := waitAll(cmd, slurm, ids)
		if renderErr := renderSubmissions(cmd.OutOrStdout(), outputFormat, results); renderErr != nil {
			return errors.Join(err, renderErr)
		}
		if err != nil {
			return err
		}

		if waitFlags.ExitCode {
			for _, r := range results {
				if r.ExitCode != 0 {
					return &exitCodeError{code: r.ExitCode}
				}
			}
		}
		return nil
	},
}

// waitAll waits for ids concurrently. Results keep argument order; jobs whose
// wait failed report their last observed state.
func waitAll(cmd *cobra.Command, slurm *scheduler.Slurm, ids []int) ([]scheduler.SubmissionOutcome, error) {
	results := make([]scheduler.SubmissionOutcome, len(ids))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(waitParallel, 1))
	for i, id := range ids {
		g.Go(func() error {
			result, err := slurm.Wait(ctx, id)
			results[i] = result
			return err
		})
	}
	return results, g.Wait()
}

func init() {
	RegisterWaitFlags(waitCmd, &waitFlags, false)
	waitCmd.Flags().IntVarP(&waitParallel, "parallel", "p", 8, "number of jobs polled at once")
	rootCmd.AddCommand(waitCmd)
}
