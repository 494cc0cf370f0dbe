package telemetry

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrRegister      = errors.ErrorCode("telemetry_register_failed")
)
