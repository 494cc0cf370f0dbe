package logger_test

import (
	"bytes"
	"io"
	"testing"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel(" INFO "))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel(""))
}

func TestComponentLogger(t *testing.T) {
	var out bytes.Buffer
	logger.InitWriter(&out, "info", true)
	t.Cleanup(func() { logger.InitWriter(io.Discard, "warning", true) })

	log := logger.With("ingest")
	log.Debug().Msg("hidden")
	log.Info().Int("samples", 3).Msg("History loaded")

	text := out.String()
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, "History loaded")
	assert.Contains(t, text, "component=ingest")
	assert.Contains(t, text, "samples=3")
}

func TestErrorWithCode(t *testing.T) {
	var out bytes.Buffer
	logger.InitWriter(&out, "debug", true)
	t.Cleanup(func() { logger.InitWriter(io.Discard, "warning", true) })

	err := errors.New().Wrap(errors.ErrTimeout, io.ErrUnexpectedEOF)
	logger.With("kiosk").ErrorWithCode(err).Msg("Failed")

	text := out.String()
	assert.Contains(t, text, "error_code=operation_timeout")
	assert.Contains(t, text, "unexpected EOF")
}
