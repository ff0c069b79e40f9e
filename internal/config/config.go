package config

import (
	"time"

	"github.com/Justype/quickslurm/internal/scheduler"
)

const VERSION = "0.3.0"

// PollConfig controls how long and how often jobs are polled.
type PollConfig struct {
	Interval      time.Duration // Between queries of a non-terminal job
	RetryInterval time.Duration // First backoff after a failed query
	MaxInterval   time.Duration // Backoff cap
	Timeout       time.Duration // Overall wait bound; zero means unbounded
}

// LogConfig controls the log file and console threshold.
type LogConfig struct {
	Enabled bool
	File    string // Empty selects ./quickslurm.log with a temp dir fallback
	Level   string // Console level when --debug is off
}

// Config holds global application settings
type Config struct {
	Debug   bool
	Version string

	SbatchBin  string
	SrunBin    string
	ScancelBin string
	SacctBin   string

	// SlurmVersion overrides detection when set (e.g. "23.02.6").
	SlurmVersion string

	Timeout time.Duration // Per-invocation budget; zero means none
	Poll    PollConfig
	Log     LogConfig

	Env            map[string]string
	SbatchDefaults scheduler.OptionMap
	SrunDefaults   scheduler.OptionMap
}

// Global holds the singleton configuration instance
var Global Config

// LoadDefaults resets Global to built-in defaults.
func LoadDefaults() {
	Global = Config{
		Debug:   false,
		Version: VERSION,

		SbatchBin:  scheduler.DefaultSbatchBin,
		SrunBin:    scheduler.DefaultSrunBin,
		ScancelBin: scheduler.DefaultScancelBin,
		SacctBin:   scheduler.DefaultSacctBin,

		Poll: PollConfig{
			Interval:      scheduler.DefaultPollInterval,
			RetryInterval: scheduler.DefaultRetryInterval,
			MaxInterval:   scheduler.DefaultMaxRetryInterval,
		},
		Log: LogConfig{Enabled: true, Level: "warn"},
	}
}

// SlurmConfig converts the settings into a scheduler client configuration.
func (c Config) SlurmConfig() scheduler.SlurmConfig {
	return scheduler.SlurmConfig{
		SbatchBin:        c.SbatchBin,
		SrunBin:          c.SrunBin,
		ScancelBin:       c.ScancelBin,
		SacctBin:         c.SacctBin,
		BaseEnv:          c.Env,
		Timeout:          c.Timeout,
		PollInterval:     c.Poll.Interval,
		RetryInterval:    c.Poll.RetryInterval,
		MaxRetryInterval: c.Poll.MaxInterval,
		WaitTimeout:      c.Poll.Timeout,
		Version:          c.SlurmVersion,
	}
}
