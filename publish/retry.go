package publish

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"example.com/curve/curveerr"
)

// isPermanent reports whether err should short-circuit retry: a
// curveerr.Error of kind serialization, PII crypto, invalid event,
// permanent broker, or publish config. Every other error, including one
// outside the curveerr taxonomy, is treated as retryable.
func isPermanent(err error) bool {
	var ce *curveerr.Error
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Kind {
	case curveerr.KindSerialization, curveerr.KindPiiCrypto, curveerr.KindInvalidEvent, curveerr.KindPermanentBroker, curveerr.KindPublishConfig:
		return true
	default:
		return false
	}
}

// withRetry runs op, retrying on transient failures per cfg's backoff
// policy, grounded on the reference stack's cenkalti/backoff/v4 usage
// (fairyhunter13-ai-cv-evaluator's adapter/ai/real/client.go):
// exponential backoff with an initial interval, a multiplier, a cap,
// and a bounded number of attempts. A permanent error short-circuits
// immediately via backoff.Permanent.
func withRetry(ctx context.Context, cfg Config, op func() error) error {
	if !cfg.RetryEnabled || cfg.MaxAttempts <= 1 {
		return op()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.Multiplier = cfg.Multiplier
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
