package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/observability/logger"
	"github.com/smallbiznis/motorbook/internal/observability/metrics"
	"github.com/smallbiznis/motorbook/internal/sequence/domain"
	"github.com/smallbiznis/motorbook/internal/sequence/retry"
	"github.com/smallbiznis/motorbook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Clock     clock.Clock
	Numbering *config.NumberingConfigHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	clock     clock.Clock
	numbering *config.NumberingConfigHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("sequence.service"),
		repo:      p.Repo,
		clock:     c,
		numbering: p.Numbering,
		metrics:   p.Metrics,
	}
}

func (s *Service) AllocateNext(ctx context.Context, key domain.Key, year int) (int64, error) {
	if err := validate(key, year); err != nil {
		return 0, err
	}

	var value int64
	err := retry.Do(ctx, s.numbering.Get().Retry, s.onRetry(ctx, key, year), func(ctx context.Context) error {
		v, err := s.allocate(ctx, s.db, key, year)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		s.metrics.RecordAllocationFailure(ctx, key.String(), failureReason(err))
		logger.WithSequence(logger.WithContext(ctx, s.log), key.String(), year).
			Error("sequence allocation failed", zap.Error(err))
		return 0, err
	}
	return value, nil
}

func (s *Service) AllocateNextTx(ctx context.Context, tx *gorm.DB, key domain.Key, year int) (int64, error) {
	if err := validate(key, year); err != nil {
		return 0, err
	}
	return s.allocate(ctx, tx, key, year)
}

func (s *Service) allocate(ctx context.Context, conn *gorm.DB, key domain.Key, year int) (int64, error) {
	start := time.Now()
	value, err := s.repo.Increment(ctx, conn, key, year, s.clock.Now().UTC())
	if err != nil {
		return 0, classify(err)
	}
	s.metrics.RecordAllocation(ctx, key.String(), time.Since(start))
	logger.WithSequence(logger.WithContext(ctx, s.log), key.String(), year).
		Debug("sequence allocated", zap.Int64("value", value))
	return value, nil
}

func (s *Service) onRetry(ctx context.Context, key domain.Key, year int) retry.Notify {
	return func(attempt int, err error, wait time.Duration) {
		s.metrics.RecordAllocationRetry(ctx, key.String())
		logger.WithSequence(logger.WithContext(ctx, s.log), key.String(), year).
			Warn("sequence allocation conflict, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
	}
}

func (s *Service) ResetCounter(ctx context.Context, key domain.Key, year int) error {
	if err := validate(key, year); err != nil {
		return err
	}
	if err := s.repo.Reset(ctx, s.db, key, year, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("reset %s/%d: %w", key, year, err)
	}
	s.metrics.RecordSequenceReset(ctx, key.String())
	logger.WithSequence(logger.WithContext(ctx, s.log), key.String(), year).
		Warn("sequence counter reset to zero")
	return nil
}

// PeekCounter may be stale under concurrent writers; never allocate from it.
func (s *Service) PeekCounter(ctx context.Context, key domain.Key, year int) (int64, error) {
	if err := validate(key, year); err != nil {
		return 0, err
	}
	row, err := s.repo.FindOne(ctx, s.db, key, year)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return row.Counter, nil
}

func (s *Service) List(ctx context.Context, year int) ([]domain.Sequence, error) {
	if !domain.ValidYear(year) {
		return nil, domain.ErrInvalidYear
	}
	return s.repo.ListByYear(ctx, s.db, year)
}

func (s *Service) Ensure(ctx context.Context, year int) error {
	if !domain.ValidYear(year) {
		return domain.ErrInvalidYear
	}
	now := s.clock.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range domain.Keys() {
			if err := s.repo.EnsureRow(ctx, tx, key, year, now); err != nil {
				return fmt.Errorf("ensure %s/%d: %w", key, year, err)
			}
		}
		return nil
	})
}

func validate(key domain.Key, year int) error {
	if !key.Valid() {
		return domain.ErrInvalidKey
	}
	if !domain.ValidYear(year) {
		return domain.ErrInvalidYear
	}
	return nil
}

func classify(err error) error {
	if db.IsTransientErr(err) {
		return fmt.Errorf("%w: %w", domain.ErrAllocationConflict, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrAllocationFailed, err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, retry.ErrExhausted):
		return "exhausted"
	default:
		return "store"
	}
}
