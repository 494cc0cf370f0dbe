package stub

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/history"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/sample"
)

const recordTimeout = 5 * time.Second

// Recorder keeps every published sample for /all-status, persists it and
// broadcasts it to stream subscribers
type Recorder struct {
	mu      sync.RWMutex
	samples []sample.Sample
	store   history.Store
	hub     *Hub
	logger  logger.Logger
}

// NewRecorder preloads the samples kept by store
func NewRecorder(ctx context.Context, store history.Store, hub *Hub) (*Recorder, error) {
	log := logger.With("recorder")

	samples, err := store.All(ctx)
	if err != nil {
		return nil, errors.New().Wrap(ErrHistoryLoad, err)
	}
	if len(samples) > 0 {
		log.Info().
			Int("samples", len(samples)).
			Int64("oldest", samples[0].Time).
			Msg("History restored")
	}

	return &Recorder{
		samples: samples,
		store:   store,
		hub:     hub,
		logger:  log,
	}, nil
}

func (r *Recorder) Publish(s sample.Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.Record(ctx, s); err != nil {
		r.logger.Warn().Err(err).Int64("time", s.Time).Msg("Failed to persist sample")
	}

	r.hub.Broadcast(s)
	r.logger.Debug().
		Int64("time", s.Time).
		Float64("current_temp", s.CurrentTemp).
		Bool("heater_is_on", s.HeaterIsOn).
		Msg("Sample published")
}

// All returns a copy of every sample, oldest first
func (r *Recorder) All() []sample.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(make([]sample.Sample, 0, len(r.samples)), r.samples...)
}
