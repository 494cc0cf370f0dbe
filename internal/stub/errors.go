package stub

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrHistoryLoad = errors.ErrorCode("stub_history_load_failed")
	ErrEncode      = errors.ErrorCode("stub_encode_failed")
)
