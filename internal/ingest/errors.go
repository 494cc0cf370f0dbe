package ingest

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrInvalidServer    = errors.ErrorCode("ingest_invalid_server")
	ErrBootstrap        = errors.ErrorCode("ingest_bootstrap_failed")
	ErrStream           = errors.ErrorCode("ingest_stream_failed")
	ErrUnexpectedStatus = errors.ErrorCode("ingest_unexpected_status")
)
