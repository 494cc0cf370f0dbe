package chart

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrCanvasInit = errors.ErrorCode("chart_canvas_init_failed")
	ErrEncode     = errors.ErrorCode("chart_encode_failed")
)
