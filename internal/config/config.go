package config

import (
	"net/url"
	"os"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"github.com/spf13/pflag"
)

const (
	DefaultServer         = "http://localhost:8000"
	DefaultListen         = "127.0.0.1:8090"
	DefaultWidth          = 800
	DefaultHeight         = 400
	DefaultZoom           = 15
	DefaultRedrawInterval = 2 * time.Second
	DefaultRetention      = 48 * time.Hour

	// The chart keeps a 20px margin on the left/bottom edges, anything
	// narrower than this leaves no plotting area.
	minViewportSize = 41
	maxViewportSize = 8192
)

type Config struct {
	Server              string        `mapstructure:"server"`
	Listen              string        `mapstructure:"listen"`
	Width               int           `mapstructure:"width"`
	Height              int           `mapstructure:"height"`
	Zoom                int           `mapstructure:"zoom"`
	RedrawInterval      time.Duration `mapstructure:"redraw_interval"`
	Format              Format        `mapstructure:"format"`
	Output              string        `mapstructure:"output"`
	Retention           time.Duration `mapstructure:"retention"`
	BackfillOnReconnect bool          `mapstructure:"backfill_on_reconnect"`
	Timezone            string        `mapstructure:"timezone"`
	Metrics             bool          `mapstructure:"metrics"`
	PIDDir              string        `mapstructure:"pid_dir"`
	LogLevel            string        `mapstructure:"log_level"`
	Debug               bool          `mapstructure:"debug"`
	Verbose             bool          `mapstructure:"verbose"`
}

var chartSource = source{name: "thermochart", envPrefix: "THERMOCHART"}

// Load reads the chart daemon configuration from os.Args
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs reads defaults, the config file, THERMOCHART_* environment variables
// and the given command line arguments, in increasing order of precedence
func LoadArgs(args []string) (*Config, error) {
	errFactory := errors.New()
	v := chartSource.newViper()

	fs := pflag.NewFlagSet("thermochart", pflag.ContinueOnError)
	fs.String("server", DefaultServer, "Base URL of the thermostat server")
	fs.String("listen", DefaultListen, "Address of the local chart HTTP surface")
	fs.Int("width", DefaultWidth, "Chart width in pixels")
	fs.Int("height", DefaultHeight, "Chart height in pixels")
	fs.Int("zoom", DefaultZoom, "Seconds of history per horizontal pixel")
	fs.Duration("redraw-interval", DefaultRedrawInterval, "Interval between chart redraws")
	fs.String("format", string(FormatPNG), "Frame encoding: png or svg")
	fs.String("output", "", "Also write every frame to this file")
	fs.Duration("retention", DefaultRetention, "Drop samples older than this (0 keeps everything)")
	fs.Bool("backfill-on-reconnect", false, "Re-fetch history when the stream is reopened")
	fs.String("timezone", "Local", "Time zone of the hour labels")
	fs.Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	fs.String("pid-dir", os.TempDir(), "Directory of the PID file")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")

	if err := bind(v, fs, args); err != nil {
		return nil, err
	}

	if err := chartSource.read(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	level, err := resolveLogLevel(cfg.LogLevel, cfg.Debug, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with
func (c *Config) Validate() error {
	errFactory := errors.New()

	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "server: "+c.Server)
	}

	if !ValidViewport(c.Width, c.Height) {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Width  int
			Height int
		}{c.Width, c.Height})
	}

	if c.Zoom < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct{ Zoom int }{c.Zoom})
	}

	if c.RedrawInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.RedrawInterval.String())
	}

	if c.Retention < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Retention.String())
	}

	if !c.Format.IsValid() {
		return errFactory.WithData(errors.ErrInvalidConfig, "format: "+string(c.Format))
	}

	if _, err := c.Location(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}

// Location returns the time zone of the hour labels
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ValidViewport reports whether a viewport size leaves room to plot and
// stays within what a frame can be allocated for
func ValidViewport(width, height int) bool {
	return width >= minViewportSize && height >= minViewportSize &&
		width <= maxViewportSize && height <= maxViewportSize
}
