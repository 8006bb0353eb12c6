package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/metrics"
)

// RetryPolicy bounds how long a transaction is retried on store contention.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

type retrier struct {
	policy RetryPolicy
	log    logrus.FieldLogger
}

// run calls fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. fn must be safe to call again.
func (r retrier) run(ctx context.Context, op string, fn func() error) error {
	attempts := r.policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		b.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		b.MaxInterval = r.policy.MaxInterval
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if !domain.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.RecordStoreRetry(op)
			r.log.WithFields(logrus.Fields{
				"operation": op,
				"retry_in":  next,
			}).WithError(err).Warn("store contention, retrying")
		}),
	)
	return err
}
