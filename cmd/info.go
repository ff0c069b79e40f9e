package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/scheduler"
	"github.com/Justype/quickslurm/internal/utils"
)

var infoCmd = &cobra.Command{
	Use:     "info",
	Aliases: []string{"scheduler"},
	Short:   "Display Slurm information",
	Long: `Display information about the local Slurm installation.

Shows the sbatch binary, the Slurm version, whether sacct can report job
output paths, and whether submission is available.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		slurm := newSlurm(cmd.Context(), WaitFlags{}, false)
		info := slurm.Info(cmd.Context())
		report := infoReport{
			Info:        info,
			OutputPaths: scheduler.SupportsOutputPaths(info.Version),
			ConfigFile:  config.UsedConfigFile(),
		}
		return render(cmd.OutOrStdout(), outputFormat, report, report.writeText)
	},
}

type infoReport struct {
	scheduler.Info `yaml:",inline"`
	OutputPaths    bool   `json:"output_paths" yaml:"output_paths"`
	ConfigFile     string `json:"config_file,omitempty" yaml:"config_file,omitempty"`
}

func (r infoReport) writeText(w io.Writer) error {
	if r.Binary == "" {
		fmt.Fprintf(w, "Scheduler Status: %s\n", utils.StyleError("Not Found"))
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s was not found on PATH. Set sbatch_bin in the config file or QUICKSLURM_SBATCH_BIN.\n", config.Global.SbatchBin)
		return nil
	}

	fmt.Fprintln(w, "Scheduler Information:")
	fmt.Fprintf(w, "  Type:      %s\n", utils.StyleInfo(r.Type))
	fmt.Fprintf(w, "  Binary:    %s\n", utils.StylePath(r.Binary))
	if r.Version != "" {
		fmt.Fprintf(w, "  Version:   %s\n", utils.StyleNumber(r.Version))
	} else {
		fmt.Fprintf(w, "  Version:   %s\n", utils.StyleWarning("unknown"))
	}
	if r.OutputPaths {
		fmt.Fprintf(w, "  Output:    %s\n", utils.StyleSuccess("sacct reports StdOut/StdErr"))
	} else {
		fmt.Fprintf(w, "  Output:    %s\n", utils.StyleWarning("sacct cannot report StdOut/StdErr (Slurm < 23.02)"))
	}
	if r.ConfigFile != "" {
		fmt.Fprintf(w, "  Config:    %s\n", utils.StylePath(r.ConfigFile))
	}

	switch {
	case r.InJob:
		fmt.Fprintf(w, "  Status:    %s (inside job)\n", utils.StyleError("Unavailable"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "You are currently inside a Slurm job (detected via environment).")
		fmt.Fprintln(w, "Avoid nested submissions from within an allocation.")
	case r.Available:
		fmt.Fprintf(w, "  Status:    %s\n", utils.StyleSuccess("Available"))
	default:
		fmt.Fprintf(w, "  Status:    %s\n", utils.StyleError("Unavailable"))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
