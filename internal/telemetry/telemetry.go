package telemetry

import (
	"context"

	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/sampling"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopArchiver struct{}

func NewService(cfg Config) (Archiver, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If the archive is disabled, return a no-op archiver
	if !cfg.Enabled {
		logger.Debug().Msg("Telemetry archive disabled, using no-op archiver")
		return &noopArchiver{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err // Already wrapped with appropriate error
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, r sampling.Reading) error {
	errFactory := errors.New()

	if r.At.IsZero() {
		return errFactory.New(ErrInvalidReading)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// No-op implementation
func (*noopArchiver) Record(_ context.Context, _ sampling.Reading) error {
	return nil
}

func (*noopArchiver) Close() error {
	return nil
}
