package kiosk

import "codeberg.org/mutker/thermochart/internal/errors"

const (
	ErrInvalidZoom     = errors.ErrorCode("kiosk_invalid_zoom")
	ErrInvalidViewport = errors.ErrorCode("kiosk_invalid_viewport")
	ErrRender          = errors.ErrorCode("kiosk_render_failed")
	ErrWriteFrame      = errors.ErrorCode("kiosk_write_frame_failed")
	ErrStopped         = errors.ErrorCode("kiosk_stopped")
)
