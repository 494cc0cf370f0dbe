package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/thermochart/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// source describes where one binary looks for its settings
type source struct {
	name      string // config file base name, without extension
	envPrefix string // also names the "<PREFIX>_CONFIG" override
}

func (s source) newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(s.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// read loads the optional config file. "<PREFIX>_CONFIG" selects an explicit
// file; otherwise /etc/<name>.toml is used when present.
func (s source) read(v *viper.Viper) error {
	errFactory := errors.New()

	if path, ok := os.LookupEnv(s.envPrefix + "_CONFIG"); ok {
		if path == "" {
			return nil
		}
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(s.name)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// bind parses args into fs and binds every flag to the viper key of the same
// name with dashes turned into underscores
func bind(v *viper.Viper, fs *pflag.FlagSet, args []string) error {
	errFactory := errors.New()

	if err := fs.Parse(args); err != nil {
		return errFactory.Wrap(errors.ErrBindFlags, err)
	}

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if bindErr != nil {
		return errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	return nil
}

// resolveLogLevel applies the --debug and --verbose shortcuts on top of the
// configured level
func resolveLogLevel(level string, debug, verbose bool) (string, error) {
	switch {
	case debug:
		level = string(LogLevelDebug)
	case verbose:
		level = string(LogLevelInfo)
	}

	level = strings.ToLower(strings.TrimSpace(level))
	if !LogLevel(level).IsValid() {
		return "", errors.New().WithData(errors.ErrInvalidLogLevel, level)
	}

	return level, nil
}
