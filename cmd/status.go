package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status <job-id>...",
	Aliases: []string{"st"},
	Short:   "Show the accounting record of jobs",
	Example: `  quickslurm status 123456
  quickslurm status --output json 123456 123457`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseJobIDs(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		slurm := newSlurm(ctx, WaitFlags{}, true)
		rows := make([]jobStatus, 0, len(ids))
		for _, id := range ids {
			rec, err := slurm.Status(ctx, id)
			if err != nil {
				return err
			}
			rows = append(rows, jobStatus{JobID: id, AccountingRecord: rec})
		}
		return renderStatuses(cmd.OutOrStdout(), outputFormat, rows)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
