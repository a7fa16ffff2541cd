// Package retry provides bounded retries with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ErrMaxAttemptsExceeded wraps the last error once the attempt budget is spent.
var ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")

// Policy configures retry behaviour.
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterFactor  float64
	RetryableFunc func(error) bool
}

// Validate checks the policy for usable values.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("base delay must be positive, got %s", p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %f", p.Multiplier)
	}
	return nil
}

// Backoff computes per-attempt delays for a policy.
type Backoff struct {
	policy Policy
}

// NewBackoff creates a backoff calculator.
func NewBackoff(policy Policy) *Backoff {
	return &Backoff{policy: policy}
}

// Calculate returns the delay before the given attempt (1-based).
func (b *Backoff) Calculate(attempt int) time.Duration {
	delay := float64(b.policy.BaseDelay) * math.Pow(b.policy.Multiplier, float64(attempt-1))
	if b.policy.MaxDelay > 0 && delay > float64(b.policy.MaxDelay) {
		delay = float64(b.policy.MaxDelay)
	}
	if b.policy.JitterFactor > 0 {
		delay += delay * b.policy.JitterFactor * (rand.Float64()*2 - 1)
	}
	if delay < float64(b.policy.BaseDelay) {
		delay = float64(b.policy.BaseDelay)
	}
	return time.Duration(delay)
}

// Retrier executes operations under a policy.
type Retrier struct {
	policy  Policy
	backoff *Backoff
	logger  *zap.Logger
}

// NewRetrier creates a retrier; the policy must be valid.
func NewRetrier(policy Policy, logger *zap.Logger) *Retrier {
	if err := policy.Validate(); err != nil {
		panic(fmt.Sprintf("invalid retry policy: %v", err))
	}
	return &Retrier{policy: policy, backoff: NewBackoff(policy), logger: logger}
}

// Do executes operation until it succeeds, fails non-retryably, the context
// is cancelled, or the attempt budget runs out.
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("operation succeeded after retries",
					zap.Int("attempt", attempt))
			}
			return nil
		}

		if !r.isRetryable(lastErr) {
			return lastErr
		}

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.backoff.Calculate(attempt)
		r.logger.Debug("retrying operation",
			zap.Error(lastErr),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w: %v", ErrMaxAttemptsExceeded, lastErr)
}

func (r *Retrier) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if r.policy.RetryableFunc != nil {
		return r.policy.RetryableFunc(err)
	}
	return true
}

// Do is a package-level helper for one-off retries.
func Do(ctx context.Context, policy Policy, logger *zap.Logger, operation func() error) error {
	return NewRetrier(policy, logger).Do(ctx, operation)
}
