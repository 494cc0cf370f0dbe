package kiosk

import (
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
)

const outputFilePerm = 0o644

// Frame is one encoded chart image
type Frame struct {
	Data        []byte
	ContentType string
	RenderedAt  time.Time
	// Drawn is false when there were no samples to plot
	Drawn   bool
	Samples int
}

// writeFrame replaces path atomically so a viewer never reads a partial image
func writeFrame(path string, data []byte) error {
	errFactory := errors.New()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errFactory.Wrap(ErrWriteFrame, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errFactory.Wrap(ErrWriteFrame, err)
	}
	if err := tmp.Chmod(outputFilePerm); err != nil {
		tmp.Close()
		return errFactory.Wrap(ErrWriteFrame, err)
	}
	if err := tmp.Close(); err != nil {
		return errFactory.Wrap(ErrWriteFrame, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errFactory.Wrap(ErrWriteFrame, err)
	}
	return nil
}
