package lmsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetryTransient_SucceedsAfterFailure(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), zap.NewNop(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return &TransientError{Op: "save", Err: errors.New("connection reset")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryTransient_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), zap.NewNop(), 2, func(context.Context) error {
		calls++
		return &TransientError{Op: "save", Err: errors.New("timeout")}
	})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 2, calls)
}

func TestRetryTransient_DoesNotRetryValidation(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), zap.NewNop(), 3, func(context.Context) error {
		calls++
		return &ValidationError{Field: "history_id", Msg: "must be positive"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "validation errors never succeed on retry")
}

func TestRetryTransient_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryTransient(ctx, zap.NewNop(), 5, func(context.Context) error {
		calls++
		cancel()
		return &TransientError{Op: "save", Err: errors.New("timeout")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDelay_Capped(t *testing.T) {
	for attempt := 0; attempt < 12; attempt++ {
		d := retryDelay(attempt)
		assert.GreaterOrEqual(t, d.Seconds(), 0.0)
		assert.LessOrEqual(t, d.Seconds(), retryMaxDelay.Seconds()*(1+retryJitter))
	}
}
