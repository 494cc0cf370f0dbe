package sample

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrMalformed = errors.ErrorCode("sample_malformed")
	ErrDecode    = errors.ErrorCode("sample_decode_failed")
)
