package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/Justype/quickslurm/internal/scheduler"
	"github.com/Justype/quickslurm/internal/utils"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var outputFormats = []string{FormatText, FormatJSON, FormatYAML}

var outputFormat string

// render writes v in the structured formats and defers to text otherwise.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return text(w)
	default:
		return validateOutputFormat(format)
	}
}

func validateOutputFormat(format string) error {
	if format == "" || slices.Contains(outputFormats, format) {
		return nil
	}
	return fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(outputFormats, ", "))
}

func renderSubmission(w io.Writer, format string, result scheduler.SubmissionOutcome) error {
	return render(w, format, result, func(w io.Writer) error {
		writeSubmissionText(w, result)
		return nil
	})
}

func renderSubmissions(w io.Writer, format string, results []scheduler.SubmissionOutcome) error {
	return render(w, format, results, func(w io.Writer) error {
		for i, result := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeSubmissionText(w, result)
		}
		return nil
	})
}

func writeSubmissionText(w io.Writer, result scheduler.SubmissionOutcome) {
	if result.JobID != scheduler.NoJob {
		fmt.Fprintf(w, "Job ID:    %s\n", utils.StyleNumber(result.JobID))
	}
	fmt.Fprintf(w, "State:     %s\n", utils.StyleState(result.State.String()))
	fmt.Fprintf(w, "Exit Code: %s\n", utils.StyleNumber(result.ExitCode))
	if result.Accounting == nil {
		return
	}
	if result.Accounting.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed:   %s\n", scheduler.FormatTimeSpec(result.Accounting.Elapsed))
	}
	if result.Stdout != "" {
		fmt.Fprintf(w, "Stdout:    %s\n", utils.StylePath(result.Stdout))
	}
	if result.Stderr != "" {
		fmt.Fprintf(w, "Stderr:    %s\n", utils.StylePath(result.Stderr))
	}
}

// jobStatus is one row of the status command.
type jobStatus struct {
	JobID                      int `json:"job_id" yaml:"job_id"`
	scheduler.AccountingRecord `yaml:",inline"`
}

func renderStatuses(w io.Writer, format string, rows []jobStatus) error {
	return render(w, format, rows, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "JOBID\tSTATE\tEXIT\tELAPSED\tSTDOUT")
		for _, row := range rows {
			elapsed := scheduler.FormatTimeSpec(row.Elapsed)
			if elapsed == "" {
				elapsed = "-"
			}
			stdout := row.StdoutPath
			if stdout == "" {
				stdout = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", row.JobID, row.State, row.ExitCode, elapsed, stdout)
		}
		return tw.Flush()
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", FormatText, "output format: text, json or yaml")
	rootCmd.RegisterFlagCompletionFunc("output", fixedCompletion(outputFormats...))
}
