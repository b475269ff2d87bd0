package retry_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/engine/step/retry"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

func newPolicy(maxAttempts int) retry.RetryPolicy {
	return retry.NewDefaultRetryPolicyFactory().Create(config.RetryConfig{
		MaxAttempts:         maxAttempts,
		InitialInterval:     1,
		MaxInterval:         4,
		Factor:              2,
		RetryableExceptions: []string{"io.ErrUnexpectedEOF"},
	})
}

func TestShouldRetry(t *testing.T) {
	p := newPolicy(3)

	assert.False(t, p.ShouldRetry(nil))
	assert.True(t, p.ShouldRetry(exception.NewBatchError("mail", "rate limited", errors.New("429"), false, true)))
	assert.False(t, p.ShouldRetry(exception.NewBatchError("mail", "bad request", errors.New("400"), false, false)))
	assert.True(t, p.ShouldRetry(io.ErrUnexpectedEOF))
	assert.False(t, p.ShouldRetry(io.EOF))
	assert.False(t, p.ShouldRetry(context.Canceled))
}

func TestGetBackoffInterval_ExponentialAndCapped(t *testing.T) {
	p := newPolicy(5)

	assert.Equal(t, 1, p.GetBackoffInterval(1))
	assert.Equal(t, 2, p.GetBackoffInterval(2))
	assert.Equal(t, 4, p.GetBackoffInterval(3))
	assert.Equal(t, 4, p.GetBackoffInterval(4))
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), newPolicy(3), "fetch", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), newPolicy(2), "fetch", func(ctx context.Context) error {
		calls++
		return io.ErrUnexpectedEOF
	})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 2, calls)
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	permanent := errors.New("invalid argument")
	err := retry.Do(context.Background(), newPolicy(5), "fetch", func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Do(ctx, newPolicy(5), "fetch", func(ctx context.Context) error {
		calls++
		cancel()
		return io.ErrUnexpectedEOF
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
