package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/internal/observability/logger"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrLocked = errors.New("maintenance_in_progress")

type CleanupRequest struct {
	Statuses []documentdomain.Status
	Types    []documentdomain.Type
	All      bool
	// Year selects the counters to reset, and narrows the delete to that year
	// when ResetSequences is set. Zero means the current year in the configured timezone.
	Year           int
	ResetSequences bool
	// Keys limits the reset. Empty resets every key.
	Keys []sequencedomain.Key
}

type CleanupResult struct {
	Deleted int64                `json:"deleted"`
	Year    int                  `json:"year"`
	Reset   []sequencedomain.Key `json:"reset"`
}

// ResetError reports a counter that could not be reset after documents were deleted.
type ResetError struct {
	Key  sequencedomain.Key
	Year int
	Err  error
}

func (e *ResetError) Error() string {
	return fmt.Sprintf("reset sequence %s/%d: %v", e.Key, e.Year, e.Err)
}

func (e *ResetError) Unwrap() error { return e.Err }

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Clock     clock.Clock
	Locker    Locker
	Documents documentdomain.Service
	Sequences sequencedomain.Service
}

type Service struct {
	log       *zap.Logger
	location  *time.Location
	lockTTL   time.Duration
	clock     clock.Clock
	locker    Locker
	documents documentdomain.Service
	sequences sequencedomain.Service
}

func New(p Params) *Service {
	c := p.Clock
	if c == nil {
		c = clock.System{}
	}
	locker := p.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	ttl := p.Cfg.MaintenanceLockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		log:       p.Log.Named("maintenance"),
		location:  p.Cfg.Location(),
		lockTTL:   ttl,
		clock:     c,
		locker:    locker,
		documents: p.Documents,
		sequences: p.Sequences,
	}
}

// Cleanup deletes matching documents and only then resets the requested
// counters. A failed delete leaves every counter untouched.
//
// The lock serializes maintenance runs only. Booking confirmations are not
// blocked, so resets still belong in a maintenance window.
func (s *Service) Cleanup(ctx context.Context, req CleanupRequest) (CleanupResult, error) {
	year := req.Year
	if year == 0 {
		year = clock.YearIn(s.clock, s.location)
	}
	if !sequencedomain.ValidYear(year) {
		return CleanupResult{}, sequencedomain.ErrInvalidYear
	}
	keys := req.Keys
	if len(keys) == 0 {
		keys = sequencedomain.Keys()
	}
	for _, key := range keys {
		if !key.Valid() {
			return CleanupResult{}, sequencedomain.ErrInvalidKey
		}
	}

	token, ok, err := s.locker.TryLock(ctx, LockKey, s.lockTTL)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("acquire maintenance lock: %w", err)
	}
	if !ok {
		return CleanupResult{}, ErrLocked
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), LockKey, token); err != nil {
			s.log.Warn("release maintenance lock", zap.Error(err))
		}
	}()

	log := logger.WithContext(ctx, s.log).With(zap.Int("year", year))
	result := CleanupResult{Year: year, Reset: []sequencedomain.Key{}}

	filter := documentdomain.Filter{
		Statuses: req.Statuses,
		Types:    req.Types,
		All:      req.All,
	}
	// The year alone never turns an empty request into a delete.
	if req.ResetSequences && (filter.HasCriteria() || filter.All) {
		filter.Year = year
	}
	deleted, err := s.documents.Delete(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("delete documents: %w", err)
	}
	result.Deleted = deleted
	log.Info("cleanup deleted documents", zap.Int64("count", deleted))

	if !req.ResetSequences {
		return result, nil
	}

	var errs []error
	for _, key := range keys {
		s.warnRemaining(ctx, log, key, year)
		if err := s.sequences.ResetCounter(ctx, key, year); err != nil {
			log.Error("cleanup reset failed", zap.String("sequence_key", key.String()), zap.Error(err))
			errs = append(errs, &ResetError{Key: key, Year: year, Err: err})
			continue
		}
		result.Reset = append(result.Reset, key)
	}

	return result, errors.Join(errs...)
}

// warnRemaining logs when documents numbered by key survive for year. Their
// numbers are handed out again after the reset and fail as duplicates.
func (s *Service) warnRemaining(ctx context.Context, log *zap.Logger, key sequencedomain.Key, year int) {
	docType, ok := documentdomain.TypeForKey(key)
	if !ok {
		return
	}
	filter := documentdomain.Filter{Types: []documentdomain.Type{docType}, Year: year}
	for doc, err := range s.documents.Query(ctx, filter, 1) {
		if err != nil {
			log.Warn("check remaining documents", zap.String("sequence_key", key.String()), zap.Error(err))
			return
		}
		log.Warn("resetting counter while documents of that year remain",
			zap.String("sequence_key", key.String()),
			zap.String("number", doc.Number),
		)
		return
	}
}
