package history

import (
	"context"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/sample"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopStore struct{}

func NewService(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If history is disabled, return a no-op store
	if !cfg.Enabled {
		log.Debug().Msg("History disabled, using no-op store")
		return &noopStore{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create history repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("History service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, smp sample.Sample) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(smp); err != nil {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	return nil
}

func (s *service) All(ctx context.Context) ([]sample.Sample, error) {
	return s.repo.All(ctx)
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*service) IsPersistent() bool {
	return true
}

func (*noopStore) Record(context.Context, sample.Sample) error {
	return nil
}

func (*noopStore) All(context.Context) ([]sample.Sample, error) {
	return nil, nil
}

func (*noopStore) Close() error {
	return nil
}

func (*noopStore) IsPersistent() bool {
	return false
}
