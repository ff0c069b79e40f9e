package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/Justype/quickslurm/internal/config"
	"github.com/Justype/quickslurm/internal/scheduler"
	"github.com/Justype/quickslurm/internal/utils"
)

var (
	initPath  string
	initForce bool
)

// configKeys is the list of known scalar configuration keys
var configKeys = []string{
	"sbatch_bin",
	"srun_bin",
	"scancel_bin",
	"sacct_bin",
	"slurm_version",
	"timeout",
	"poll.interval",
	"poll.retry_interval",
	"poll.max_interval",
	"poll.timeout",
	"log.enabled",
	"log.file",
	"log.level",
}

// configMapKeys must be edited in the config file
var configMapKeys = []string{"env", "defaults.sbatch", "defaults.srun"}

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return configKeys, cobra.ShellCompDirectiveNoFileComp
	}
	if len(args) == 1 {
		return configValueCompletion(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletion returns suggested values for a config key
func configValueCompletion(key string) []string {
	switch key {
	case "log.enabled":
		return []string{"true", "false"}
	case "log.level":
		return []string{"debug", "info", "warn", "error"}
	case "timeout", "poll.timeout":
		return []string{"0s", "30s", "5m", "1h"}
	case "poll.interval", "poll.retry_interval", "poll.max_interval":
		return []string{"2s", "10s", "30s", "1m"}
	default:
		return nil
	}
}

// validateConfigValue checks value for key and returns it typed for Viper.
func validateConfigValue(key, value string) (any, error) {
	switch key {
	case "timeout", "poll.interval", "poll.retry_interval", "poll.max_interval", "poll.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q for %s: %w", value, key, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid duration %q for %s: must not be negative", value, key)
		}
		return d.String(), nil
	case "log.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q for %s", value, key)
		}
		return b, nil
	case "log.level":
		if _, err := zapcore.ParseLevel(value); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", value, err)
		}
		return value, nil
	case "slurm_version":
		if value != "" && scheduler.CanonicalVersion(value) == "" {
			return nil, fmt.Errorf("%w: %q", scheduler.ErrInvalidVersion, value)
		}
		return value, nil
	}
	if slices.Contains(configMapKeys, key) {
		return nil, fmt.Errorf("'%s' is a list/map setting; edit the config file instead", key)
	}
	if !slices.Contains(configKeys, key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return value, nil
}

// configTarget is the file written by config set.
func configTarget() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	if used := config.UsedConfigFile(); used != "" {
		return used, nil
	}
	return config.GetUserConfigPath()
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage quickslurm configuration",
	Long: `Manage quickslurm configuration settings.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (QUICKSLURM_*, e.g. QUICKSLURM_POLL_INTERVAL=30s)
  3. Config file (--config, or the first quickslurm.yaml in the search paths)
  4. Defaults`,
	Annotations: map[string]string{noLogFileAnnotation: "true"},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		writeConfig(cmd.OutOrStdout())
		return nil
	},
}

func writeConfig(w io.Writer) {
	g := config.Global

	fmt.Fprintln(w, utils.StyleTitle("Config File Search Paths:"))
	used := config.UsedConfigFile()
	for i, dir := range config.SearchPaths() {
		fmt.Fprintf(w, "  %d. %s\n", i+1, dir)
	}
	if used != "" {
		fmt.Fprintf(w, "  In use: %s\n", utils.StylePath(used))
	} else {
		fmt.Fprintf(w, "  In use: %s\n", utils.StyleWarning("none (defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, utils.StyleTitle("Binaries:"))
	for _, b := range []struct{ name, path string }{
		{"sbatch", g.SbatchBin}, {"srun", g.SrunBin}, {"scancel", g.ScancelBin}, {"sacct", g.SacctBin},
	} {
		status := utils.StyleSuccess("✓")
		if !config.ValidateBinary(b.path) {
			status = utils.StyleError("✗ not found")
		}
		fmt.Fprintf(w, "  %-8s %s %s\n", b.name+":", b.path, status)
	}
	if g.SlurmVersion != "" {
		fmt.Fprintf(w, "  version: %s\n", utils.StyleNumber(g.SlurmVersion))
	} else {
		fmt.Fprintf(w, "  version: %s\n", utils.StyleDebug("auto-detect"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, utils.StyleTitle("Timing:"))
	fmt.Fprintf(w, "  timeout:             %s\n", durationOrNone(g.Timeout))
	fmt.Fprintf(w, "  poll.interval:       %s\n", g.Poll.Interval)
	fmt.Fprintf(w, "  poll.retry_interval: %s\n", g.Poll.RetryInterval)
	fmt.Fprintf(w, "  poll.max_interval:   %s\n", g.Poll.MaxInterval)
	fmt.Fprintf(w, "  poll.timeout:        %s\n", durationOrNone(g.Poll.Timeout))
	fmt.Fprintln(w)

	fmt.Fprintln(w, utils.StyleTitle("Logging:"))
	fmt.Fprintf(w, "  log.enabled: %t\n", viper.GetBool("log.enabled"))
	if g.Log.File != "" {
		fmt.Fprintf(w, "  log.file:    %s\n", utils.StylePath(g.Log.File))
	} else {
		fmt.Fprintf(w, "  log.file:    %s\n", utils.StyleDebug("./quickslurm.log"))
	}
	fmt.Fprintf(w, "  log.level:   %s\n", g.Log.Level)

	if len(g.Env) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, utils.StyleTitle("Environment:"))
		for _, key := range slices.Sorted(maps.Keys(g.Env)) {
			fmt.Fprintf(w, "  %s=%s\n", utils.StyleName(key), g.Env[key])
		}
	}
	for _, d := range []struct {
		title string
		opts  scheduler.OptionMap
	}{
		{"Default sbatch options:", g.SbatchDefaults},
		{"Default srun options:", g.SrunDefaults},
	} {
		if len(d.opts) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, utils.StyleTitle(d.title))
		fmt.Fprintf(w, "  %s\n", utils.StyleCommand(strings.Join(scheduler.EncodeFlags(d.opts), " ")))
	}

	if vars := getConfigEnvVars(); len(vars) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, utils.StyleTitle("Environment Overrides:"))
		for _, v := range vars {
			fmt.Fprintf(w, "  %s=%s\n", utils.StyleName(v), os.Getenv(v))
		}
	}
}

func durationOrNone(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}

// getConfigEnvVars returns the QUICKSLURM_* variables that are set, sorted.
func getConfigEnvVars() []string {
	var vars []string
	for _, key := range append(slices.Clone(configKeys), configMapKeys...) {
		env := config.EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if _, ok := os.LookupEnv(env); ok {
			vars = append(vars, env)
		}
	}
	slices.Sort(vars)
	return vars
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Get a configuration value",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: configKeysCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !slices.Contains(configKeys, key) && !slices.Contains(configMapKeys, key) {
			return fmt.Errorf("unknown config key: %s", key)
		}
		value := viper.Get(key)
		switch v := value.(type) {
		case []string, []any, map[string]any:
			return render(cmd.OutOrStdout(), FormatYAML, v, nil)
		default:
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it to the config file.

Examples:
  quickslurm config set poll.interval 30s
  quickslurm config set sbatch_bin /opt/slurm/bin/sbatch
  quickslurm config set log.enabled false

Durations use Go syntax: 30s, 5m, 1h30m.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeysCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]
		value, err := validateConfigValue(key, raw)
		if err != nil {
			return err
		}
		if strings.HasSuffix(key, "_bin") && !config.ValidateBinary(raw) {
			utils.PrintWarning("%s is not an executable on this host", raw)
		}

		target, err := configTarget()
		if err != nil {
			return err
		}
		viper.Set(key, value)
		path, err := config.SaveConfig(target)
		if err != nil {
			return err
		}
		utils.PrintSuccess("Set %s = %s", utils.StyleInfo(key), utils.StyleInfo(fmt.Sprint(value)))
		utils.PrintMessage("Config saved to: %s", utils.StylePath(path))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with defaults",
	Long: `Create a configuration file with default values and the Slurm tools found
on PATH pinned to absolute paths.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initPath
		if path == "" {
			var err error
			if path, err = config.GetUserConfigPath(); err != nil {
				return err
			}
		}
		if utils.FileExists(path) && !initForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		detected := config.DetectBinaries()
		written, err := config.SaveConfig(path)
		if err != nil {
			return err
		}

		utils.PrintSuccess("Config file created: %s", utils.StylePath(written))
		if len(detected) == 0 {
			utils.PrintHint("No Slurm tools found on PATH; set sbatch_bin and friends with 'quickslurm config set'")
			return nil
		}
		for _, key := range detected {
			utils.PrintMessage("  %s: %s", utils.StyleName(key), viper.GetString(key))
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&initPath, "path", "", "where to write the config file (default: user config dir)")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
