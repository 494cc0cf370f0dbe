package history

import (
	"context"

	"codeberg.org/mutker/thermochart/internal/sample"
)

// Store keeps the stub's sample history across restarts
type Store interface {
	Record(ctx context.Context, s sample.Sample) error
	// All returns every stored sample, oldest first, including ones still
	// waiting for a flush
	All(ctx context.Context) ([]sample.Sample, error)
	Close() error
	IsPersistent() bool
}

// Repository is the storage behind a persistent Store
type Repository interface {
	Record(s sample.Sample) error
	All(ctx context.Context) ([]sample.Sample, error)
	Close() error
}
