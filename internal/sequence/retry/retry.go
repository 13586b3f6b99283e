// Package retry re-runs whole allocation units after a lost sequence race.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/sequence/domain"
)

// ErrExhausted marks an allocation that kept conflicting until the policy ran
// out of attempts.
var ErrExhausted = errors.New("allocation_retries_exhausted")

// Notify is called before each retry with the failed attempt number (1-based).
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, fails with anything other than
// domain.ErrAllocationConflict, or the policy runs out of attempts.
// Exhaustion surfaces domain.ErrAllocationFailed.
func Do(ctx context.Context, policy config.RetryPolicy, notify Notify, op func(ctx context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultNumberingConfig().Retry.MaxAttempts
	}

	exp := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		exp.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(maxAttempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrAllocationConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrAllocationConflict) {
		return fmt.Errorf("%w: %w after %d attempts: %v", domain.ErrAllocationFailed, ErrExhausted, attempt, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrAllocationFailed, err)
	}
	return err
}
