package simulator

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrInvalidSetpoint = errors.ErrorCode("simulator_invalid_setpoint")
	ErrInvalidConfig   = errors.ErrInvalidConfig
)
