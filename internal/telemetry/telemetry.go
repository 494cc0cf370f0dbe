package telemetry

import (
	"net/http"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/ingest"
	"codeberg.org/mutker/thermochart/internal/logger"
)

// No-op implementation
type noopCollector struct {
	ingest.NopObserver
}

// NewService returns a Prometheus backed Collector, or a no-op one when
// telemetry is disabled
func NewService(cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Telemetry disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	c, err := newPrometheusCollector(cfg.Namespace)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("namespace", cfg.Namespace).
		Msg("Telemetry initialized")

	return c, nil
}

func (*noopCollector) FrameRendered(time.Duration, bool) {}

func (*noopCollector) BufferSize(int) {}

func (*noopCollector) Handler() http.Handler {
	return nil
}
