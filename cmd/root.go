package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/logging"
	"github.com/Justype/quickslurm/internal/utils"
)

var (
	debugMode   bool
	quietMode   bool
	configFile  string
	logFile     string
	noLogFile   bool
	timeoutFlag time.Duration
)

// logSink is replaced during bootstrap and closed by Execute.
var logSink = logging.Nop()

// noLogFileAnnotation marks commands that never write the log file.
const noLogFileAnnotation = "quickslurm/no-log-file"

var rootCmd = &cobra.Command{
	Use:   "quickslurm",
	Short: "QuickSlurm: submit, run, cancel and wait for Slurm jobs.",
	Long: `QuickSlurm wraps sbatch, srun, scancel and sacct.

Jobs can be submitted from a script or an inline command, optionally waiting
until accounting reports a terminal state. Results are printed as text, JSON
or YAML.`,
	Version:       config.VERSION,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRunE: bootstrap,
}

func bootstrap(cmd *cobra.Command, args []string) error {
	// Step 1: Load built-in defaults
	config.LoadDefaults()

	// Step 2: Initialize Viper (config file, QUICKSLURM_* env vars)
	if err := config.InitViper(configFile); err != nil {
		return err
	}

	// Step 3: Load values from Viper into Global config
	if err := config.LoadFromViper(); err != nil {
		return err
	}

	// Step 4: Apply command-line flags (highest priority)
	if debugMode {
		utils.DebugMode = true
		config.Global.Debug = true
	}
	utils.QuietMode = quietMode
	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}
	if cmd.Flags().Changed("timeout") {
		config.Global.Timeout = timeoutFlag
	}
	if cmd.Flags().Changed("log-file") {
		config.Global.Log.File = logFile
	}
	if noLogFile || skipsLogFile(cmd) {
		config.Global.Log.Enabled = false
	}

	// Step 5: Build the logger shared by every scheduler component
	sink, err := logging.New(logging.Options{
		Debug:        config.Global.Debug,
		ConsoleLevel: config.Global.Log.Level,
		Console:      utils.Stderr,
		File:         config.Global.Log.File,
		DisableFile:  !config.Global.Log.Enabled,
	})
	if err != nil {
		return err
	}
	logSink = sink

	utils.PrintDebug("QuickSlurm Version: %s", utils.StyleInfo(config.VERSION))
	utils.PrintDebug("sbatch: %s, srun: %s, scancel: %s, sacct: %s",
		config.Global.SbatchBin, config.Global.SrunBin, config.Global.ScancelBin, config.Global.SacctBin)
	if sink.Path != "" {
		utils.PrintDebug("Log file: %s", utils.StylePath(sink.Path))
	}
	return nil
}

func skipsLogFile(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[noLogFileAnnotation] == "true" {
			return true
		}
	}
	return false
}

// Execute runs the root command and exits the process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logSink.Close()
	os.Exit(exitStatus(err))
}

// exitStatus reports err once and maps it to a process exit status.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	utils.PrintError("%v", err)
	return ExitCodeError
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Suppress informational messages")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: first quickslurm.yaml found in the search paths)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "JSON log file (default: ./quickslurm.log)")
	rootCmd.PersistentFlags().BoolVar(&noLogFile, "no-log-file", false, "Disable the log file")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Per-command timeout for Slurm tools, e.g. 30s (0 = none)")
}
