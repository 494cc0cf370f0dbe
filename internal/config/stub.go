package config

import (
	"os"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"github.com/spf13/pflag"
)

// StubConfig configures the simulated thermostat server used during development
type StubConfig struct {
	Listen       string        `mapstructure:"listen"`
	Interval     time.Duration `mapstructure:"interval"`
	Desired      float64       `mapstructure:"desired"`
	History      bool          `mapstructure:"history"`
	Database     string        `mapstructure:"database"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout int           `mapstructure:"batch_timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	Debug        bool          `mapstructure:"debug"`
	Verbose      bool          `mapstructure:"verbose"`
}

var stubSource = source{name: "thermostub", envPrefix: "THERMOSTUB"}

// LoadStub reads the stub configuration from os.Args
func LoadStub() (*StubConfig, error) {
	return LoadStubArgs(os.Args[1:])
}

// LoadStubArgs is LoadArgs for the stub, using THERMOSTUB_* variables
func LoadStubArgs(args []string) (*StubConfig, error) {
	errFactory := errors.New()
	v := stubSource.newViper()

	fs := pflag.NewFlagSet("thermostub", pflag.ContinueOnError)
	fs.String("listen", "127.0.0.1:8000", "Address to serve /all-status and /status on")
	fs.Duration("interval", 5*time.Second, "Simulated sensor read interval")
	fs.Float64("desired", 20, "Initial setpoint")
	fs.Bool("history", false, "Keep sample history in SQLite")
	fs.String("database", "/var/lib/thermostub/history.db", "SQLite history path")
	fs.Int("batch-size", 10, "Samples buffered before a history flush")
	fs.Int("batch-timeout", 30, "Seconds between history flushes")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")

	if err := bind(v, fs, args); err != nil {
		return nil, err
	}

	if err := stubSource.read(v); err != nil {
		return nil, err
	}

	cfg := &StubConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	level, err := resolveLogLevel(cfg.LogLevel, cfg.Debug, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.Interval <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidInterval, cfg.Interval.String())
	}

	return cfg, nil
}
