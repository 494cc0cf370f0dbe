package telemetry

import "codeberg.org/mutker/thermochart/internal/errors"

const defaultNamespace = "thermochart"

type Config struct {
	Enabled   bool
	Namespace string
}

func DefaultConfig() Config {
	return Config{
		Namespace: defaultNamespace,
		Enabled:   false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the namespace if telemetry is enabled
	if c.Enabled && c.Namespace == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "metrics namespace must not be empty")
	}
	return nil
}
