// Package logging builds the zap logger shared by the CLI and the scheduler.
//
// The logger tees two cores: a human-readable console core (stderr by
// default) and a JSON file core rotated by lumberjack. It is constructed once
// per process and passed to every component that logs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Justype/quickslurm/internal/utils"
)

// DefaultFileName is the log file name used by DefaultLogPath.
const DefaultFileName = "quickslurm.log"

// Rotation policy.
const (
	DefaultMaxSizeMB  = 5
	DefaultMaxBackups = 3
)

// Options configures New.
type Options struct {
	// Debug lowers the console level to debug.
	Debug bool
	// ConsoleLevel is the console threshold when Debug is off
	// ("info", "warn", ...). Defaults to warn.
	ConsoleLevel string
	// Console receives console output. Defaults to os.Stderr.
	Console io.Writer
	// File is the log file path. Empty selects DefaultLogPath.
	File string
	// DisableFile turns the file core off.
	DisableFile bool

	MaxSizeMB  int
	MaxBackups int
}

// Sink owns the logger and its rotating file.
type Sink struct {
	Logger *zap.Logger
	Path   string // Empty when file logging is disabled

	file *lumberjack.Logger
}

// New builds the process logger.
func New(opts Options) (*Sink, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := zapcore.WarnLevel
	if opts.ConsoleLevel != "" {
		parsed, err := zapcore.ParseLevel(opts.ConsoleLevel)
		if err != nil {
			return nil, fmt.Errorf("console log level: %w", err)
		}
		level = parsed
	}
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	sink := &Sink{}
	if !opts.DisableFile {
		path := opts.File
		if path == "" {
			path = DefaultLogPath()
		}
		sink.Path = path
		sink.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, DefaultMaxBackups),
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.AddSync(sink.file), zapcore.DebugLevel))
	}

	sink.Logger = zap.New(zapcore.NewTee(cores...))
	if sink.Path != "" {
		sink.Logger.Debug("logging initialized", zap.String("path", sink.Path))
	}
	return sink, nil
}

// Nop returns a sink that discards everything.
func Nop() *Sink {
	return &Sink{Logger: zap.NewNop()}
}

// Close flushes the logger and closes the log file.
func (s *Sink) Close() error {
	if s == nil || s.Logger == nil {
		return nil
	}
	// Sync on stderr reports EINVAL on some platforms; ignore it.
	_ = s.Logger.Sync()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// DefaultLogPath returns ./quickslurm.log when the current directory is
// writable and falls back to the system temp directory.
func DefaultLogPath() string {
	if cwd, err := os.Getwd(); err == nil {
		path := filepath.Join(cwd, DefaultFileName)
		if touch(path) == nil {
			return path
		}
	}
	return filepath.Join(os.TempDir(), DefaultFileName)
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, utils.PermFile)
	if err != nil {
		return err
	}
	return f.Close()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "message",
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
