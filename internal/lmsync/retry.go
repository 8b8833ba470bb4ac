package lmsync

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
	retryJitter    = 0.25
)

// retryTransient runs fn up to attempts times, backing off between tries.
// Only transient errors are retried; validation and unknown errors surface
// immediately. The failure ledger handles anything that outlives this.
func retryTransient(ctx context.Context, log *zap.Logger, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(lastErr) {
			return lastErr
		}
		if attempt >= attempts-1 {
			break
		}

		delay := retryDelay(attempt)
		log.Warn("transient failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// retryDelay is exponential backoff with ±25% jitter, capped at retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	delay := float64(retryBaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(retryMaxDelay) {
		delay = float64(retryMaxDelay)
	}
	delay += (rand.Float64()*2 - 1) * delay * retryJitter
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
