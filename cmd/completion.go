package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// detectShell auto-detects the current shell from environment
func detectShell() string {
	shellLower := strings.ToLower(os.Getenv("SHELL"))

	switch {
	case strings.Contains(shellLower, "fish"):
		return "fish"
	case strings.Contains(shellLower, "zsh"):
		return "zsh"
	case strings.Contains(shellLower, "pwsh"), strings.Contains(shellLower, "powershell"):
		return "powershell"
	}

	// Default to bash
	return "bash"
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for quickslurm.

If no shell is specified, it is auto-detected from $SHELL (bash by default).

Bash:
  $ source <(quickslurm completion bash)

Zsh:
  $ quickslurm completion zsh > "${fpath[1]}/_quickslurm"

Fish:
  $ quickslurm completion fish > ~/.config/fish/completions/quickslurm.fish

PowerShell:
  PS> quickslurm completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	Annotations:           map[string]string{noLogFileAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}
		return writeCompletion(cmd.Root(), cmd.OutOrStdout(), shell)
	},
}

func writeCompletion(root *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}

	// Generate to buffer so we can post-process
	var buf bytes.Buffer
	if err := root.GenBashCompletionV2(&buf, true); err != nil {
		return err
	}
	_, err := io.WriteString(w, postProcessBashCompletion(buf.String()))
	return err
}

// postProcessBashCompletion falls back to file completion after "--", so the
// command given to run and srun completes like a normal shell command.
func postProcessBashCompletion(script string) string {
	oldCode := `args=("${words[@]:1}")
    requestComp="${words[0]} __complete ${args[*]}"`

	newCode := `args=("${words[@]:1}")
    # Check if -- is in the command line; if so, use default file completion
    for word in "${words[@]}"; do
        if [[ "$word" == "--" ]]; then
            return
        fi
    done
    requestComp="${words[0]} __complete ${args[*]}"`

	return strings.Replace(script, oldCode, newCode, 1)
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
