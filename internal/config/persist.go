package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Justype/quickslurm/internal/scheduler"
	"github.com/Justype/quickslurm/internal/utils"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "quickslurm"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// EnvPrefix prefixes environment overrides (QUICKSLURM_POLL_INTERVAL, ...).
const EnvPrefix = "QUICKSLURM"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (QUICKSLURM_*)
// 3. Explicit config file (--config), or the first found of
//    ~/.config/quickslurm, ~/.quickslurm, /etc/quickslurm, ./
// 4. Defaults
func InitViper(explicitPath string) error {
	viper.SetConfigType(ConfigType)
	if explicitPath != "" {
		if !utils.FileExists(explicitPath) {
			return fmt.Errorf("config file %s: %w", explicitPath, os.ErrNotExist)
		}
		viper.SetConfigFile(explicitPath)
	} else {
		viper.SetConfigName(ConfigFilename)
		for _, dir := range SearchPaths() {
			viper.AddConfigPath(dir)
		}
	}

	// Environment variables
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults (lowest priority)
	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if explicitPath == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SearchPaths lists the config directories in lookup order.
func SearchPaths() []string {
	var dirs []string
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userConfigDir, "quickslurm"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".quickslurm"))
	}
	return append(dirs, "/etc/quickslurm", ".")
}

// setDefaults sets default values for all config keys
func setDefaults() {
	viper.SetDefault("sbatch_bin", scheduler.DefaultSbatchBin)
	viper.SetDefault("srun_bin", scheduler.DefaultSrunBin)
	viper.SetDefault("scancel_bin", scheduler.DefaultScancelBin)
	viper.SetDefault("sacct_bin", scheduler.DefaultSacctBin)
	viper.SetDefault("slurm_version", "")
	viper.SetDefault("timeout", "0s")

	viper.SetDefault("poll.interval", scheduler.DefaultPollInterval.String())
	viper.SetDefault("poll.retry_interval", scheduler.DefaultRetryInterval.String())
	viper.SetDefault("poll.max_interval", scheduler.DefaultMaxRetryInterval.String())
	viper.SetDefault("poll.timeout", "0s")

	viper.SetDefault("log.enabled", true)
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.level", "warn")

	viper.SetDefault("env", []string{})
	viper.SetDefault("defaults.sbatch", map[string]any{})
	viper.SetDefault("defaults.srun", map[string]any{})
}

// UsedConfigFile returns the config file Viper read, or "" if none.
func UsedConfigFile() string {
	return viper.ConfigFileUsed()
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".quickslurm", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "quickslurm", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig writes the current Viper config to path, or to the user config
// file when path is empty. Returns the path written.
func SaveConfig(path string) (string, error) {
	if path == "" {
		var err error
		path, err = GetUserConfigPath()
		if err != nil {
			return "", fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

// ValidateBinary checks if a binary exists and is executable
func ValidateBinary(binPath string) bool {
	if binPath == "" {
		return false
	}

	// If it's a full path, check directly
	if filepath.IsAbs(binPath) {
		info, err := os.Stat(binPath)
		if err != nil {
			return false
		}
		// Check if it's executable (unix-style check)
		return !info.IsDir() && info.Mode()&0111 != 0
	}

	// Otherwise, try to find it in PATH
	_, err := exec.LookPath(binPath)
	return err == nil
}

// binaryKeys maps config keys to the tool each one names.
var binaryKeys = []struct{ key, tool string }{
	{"sbatch_bin", scheduler.DefaultSbatchBin},
	{"srun_bin", scheduler.DefaultSrunBin},
	{"scancel_bin", scheduler.DefaultScancelBin},
	{"sacct_bin", scheduler.DefaultSacctBin},
}

// DetectBinaries pins every Slurm tool found on PATH to its absolute path.
// Returns the keys that changed.
func DetectBinaries() []string {
	var changed []string
	for _, b := range binaryKeys {
		path, err := exec.LookPath(b.tool)
		if err != nil {
			continue
		}
		if viper.GetString(b.key) != path {
			viper.Set(b.key, path)
			changed = append(changed, b.key)
		}
	}
	return changed
}

// LoadFromViper loads config from Viper into Global struct
func LoadFromViper() error {
	for _, b := range []struct {
		key string
		dst *string
	}{
		{"sbatch_bin", &Global.SbatchBin},
		{"srun_bin", &Global.SrunBin},
		{"scancel_bin", &Global.ScancelBin},
		{"sacct_bin", &Global.SacctBin},
	} {
		if bin := viper.GetString(b.key); bin != "" {
			*b.dst = utils.ExpandHome(bin)
		}
	}
	Global.SlurmVersion = viper.GetString("slurm_version")

	var err error
	if Global.Timeout, err = getDuration("timeout", Global.Timeout); err != nil {
		return err
	}
	if Global.Poll.Interval, err = getDuration("poll.interval", Global.Poll.Interval); err != nil {
		return err
	}
	if Global.Poll.RetryInterval, err = getDuration("poll.retry_interval", Global.Poll.RetryInterval); err != nil {
		return err
	}
	if Global.Poll.MaxInterval, err = getDuration("poll.max_interval", Global.Poll.MaxInterval); err != nil {
		return err
	}
	if Global.Poll.Timeout, err = getDuration("poll.timeout", Global.Poll.Timeout); err != nil {
		return err
	}

	Global.Log.Enabled = viper.GetBool("log.enabled")
	if file := viper.GetString("log.file"); file != "" {
		Global.Log.File = utils.ExpandHome(file)
	}
	if level := viper.GetString("log.level"); level != "" {
		Global.Log.Level = level
	}

	if env := scheduler.ParseEnvList(viper.GetStringSlice("env")); len(env) > 0 {
		Global.Env = env
	}

	if Global.SbatchDefaults, err = scheduler.OptionsFromMap(viper.GetStringMap("defaults.sbatch")); err != nil {
		return fmt.Errorf("defaults.sbatch: %w", err)
	}
	if Global.SrunDefaults, err = scheduler.OptionsFromMap(viper.GetStringMap("defaults.srun")); err != nil {
		return fmt.Errorf("defaults.srun: %w", err)
	}
	return nil
}

// getDuration reads a Go duration string ("30s", "5m"). Unset keys keep def.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return def, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}
