package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// RetryPolicy is an interface that defines retry logic.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the backoff interval (in milliseconds) before the attempt after attempt.
	// attempt starts from 1.
	GetBackoffInterval(attempt int) int
	// GetMaxAttempts returns the maximum number of attempts, the first call included.
	GetMaxAttempts() int
}

// DefaultRetryPolicyFactory is a factory for creating RetryPolicy.
type DefaultRetryPolicyFactory struct{}

// NewDefaultRetryPolicyFactory creates a new DefaultRetryPolicyFactory.
func NewDefaultRetryPolicyFactory() *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{}
}

// Create creates a RetryPolicy from the batch retry configuration.
func (f *DefaultRetryPolicyFactory) Create(cfg config.RetryConfig) RetryPolicy {
	factor := cfg.Factor
	if factor < 1 {
		factor = 1
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{
		maxAttempts:         maxAttempts,
		initialInterval:     cfg.InitialInterval,
		maxInterval:         cfg.MaxInterval,
		factor:              factor,
		retryableExceptions: cfg.RetryableExceptions,
	}
}

// defaultRetryPolicy backs off exponentially from initialInterval, capped at maxInterval.
type defaultRetryPolicy struct {
	maxAttempts         int
	initialInterval     int
	maxInterval         int
	factor              float64
	retryableExceptions []string
}

func (p *defaultRetryPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry is true for a BatchError flagged retryable, or an error matching one of the
// configured retryable exception names.
func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var be *exception.BatchError
	if errors.As(err, &be) && be.IsRetryable() {
		return true
	}

	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

func (p *defaultRetryPolicy) GetBackoffInterval(attempt int) int {
	if attempt < 1 {
		attempt = 1
	}
	interval := float64(p.initialInterval) * math.Pow(p.factor, float64(attempt-1))
	if p.maxInterval > 0 && interval > float64(p.maxInterval) {
		return p.maxInterval
	}
	return int(interval)
}

var _ RetryPolicy = (*defaultRetryPolicy)(nil)

// Do calls fn until it succeeds, returns a non-retryable error, or policy runs out of attempts.
// It waits the policy's backoff between attempts and gives up early when ctx is done.
func Do(ctx context.Context, policy RetryPolicy, operation string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= policy.GetMaxAttempts(); attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !policy.ShouldRetry(err) || attempt == policy.GetMaxAttempts() {
			return err
		}

		wait := time.Duration(policy.GetBackoffInterval(attempt)) * time.Millisecond
		logger.Warnf("Retry: %s failed (attempt %d/%d), retrying in %s: %v", operation, attempt, policy.GetMaxAttempts(), wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
